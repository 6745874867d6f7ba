package dummystore

import (
	"context"
	"sort"

	"github.com/tutorke/darasa/core"
	"github.com/tutorke/darasa/core/student"
)

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) table(session string) map[string]*student.Student {
	tbl, ok := repo.db.students[session]
	if !ok {
		tbl = make(map[string]*student.Student)
		repo.db.students[session] = tbl
	}
	return tbl
}

// rosterLocked returns the session roster ordered by RegisteredAt descending.
func (repo *studentRepository) rosterLocked(session string) []student.Student {
	tbl := repo.table(session)
	roster := make([]student.Student, 0, len(tbl))
	for _, std := range tbl {
		roster = append(roster, *std)
	}
	sort.Slice(roster, func(i, j int) bool {
		if !roster[i].RegisteredAt.Equal(roster[j].RegisteredAt) {
			return roster[i].RegisteredAt.After(roster[j].RegisteredAt)
		}
		return roster[i].ParentPhone < roster[j].ParentPhone
	})
	return roster
}

// notifyLocked delivers the current roster to every live subscriber.
func (repo *studentRepository) notifyLocked(session string) {
	roster := repo.rosterLocked(session)
	for _, onUpdate := range repo.db.subs[session] {
		onUpdate(roster)
	}
}

func (repo *studentRepository) GetStudent(_ context.Context, session, phone string) (student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if std, ok := repo.table(session)[phone]; ok {
		return *std, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) CreateStudent(_ context.Context, session, phone string, std student.Student) (student.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	tbl := repo.table(session)
	if _, exists := tbl[phone]; exists {
		return student.Student{}, core.ErrPermissionDenied
	}

	now := repo.db.Now()
	std.RegisteredAt = now
	std.LastAccessed = now
	tbl[phone] = &std
	repo.notifyLocked(session)
	return std, nil
}

func (repo *studentRepository) PutStudent(_ context.Context, session, phone string, std student.Student) (student.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	tbl := repo.table(session)
	if std.RegisteredAt.IsZero() {
		std.RegisteredAt = repo.db.Now()
	}
	tbl[phone] = &std
	repo.notifyLocked(session)
	return std, nil
}

func (repo *studentRepository) TouchLastAccessed(_ context.Context, session, phone string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	std, ok := repo.table(session)[phone]
	if !ok {
		return student.ErrNotFound
	}
	std.LastAccessed = repo.db.Now()
	repo.notifyLocked(session)
	return nil
}

func (repo *studentRepository) SubmitReceipt(_ context.Context, session, phone, message string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	std, ok := repo.table(session)[phone]
	if !ok {
		return student.ErrNotFound
	}
	std.ReceiptStatus = student.ReceiptPending
	std.PendingReceipt = message
	repo.notifyLocked(session)
	return nil
}

func (repo *studentRepository) ApproveReceipt(_ context.Context, session, phone string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	std, ok := repo.table(session)[phone]
	if !ok {
		return student.ErrNotFound
	}
	if std.PendingReceipt != "" {
		std.ReceiptMessage = std.PendingReceipt
	}
	std.Blocked = false
	std.BlockReason = ""
	std.ReceiptStatus = student.ReceiptNone
	std.PendingReceipt = ""
	repo.notifyLocked(session)
	return nil
}

func (repo *studentRepository) DeclineReceipt(_ context.Context, session, phone string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	std, ok := repo.table(session)[phone]
	if !ok {
		return student.ErrNotFound
	}
	std.ReceiptStatus = student.ReceiptDeclined
	std.PendingReceipt = ""
	repo.notifyLocked(session)
	return nil
}

func (repo *studentRepository) BlockStudent(_ context.Context, session, phone, reason string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	std, ok := repo.table(session)[phone]
	if !ok {
		return student.ErrNotFound
	}
	std.Blocked = true
	std.BlockReason = reason
	std.ReceiptStatus = student.ReceiptNone
	std.PendingReceipt = ""
	repo.notifyLocked(session)
	return nil
}

func (repo *studentRepository) UnblockStudent(_ context.Context, session, phone string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	std, ok := repo.table(session)[phone]
	if !ok {
		return student.ErrNotFound
	}
	std.Blocked = false
	std.BlockReason = ""
	repo.notifyLocked(session)
	return nil
}

func (repo *studentRepository) DeleteStudent(_ context.Context, session, phone string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	delete(repo.table(session), phone)
	repo.notifyLocked(session)
	return nil
}

func (repo *studentRepository) QueryStudents(_ context.Context, session string) ([]student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.rosterLocked(session), nil
}

func (repo *studentRepository) SubscribeStudents(_ context.Context, session string, onUpdate func([]student.Student)) (func(), error) {
	repo.db.mu.Lock()
	if repo.db.subs[session] == nil {
		repo.db.subs[session] = make(map[int]func([]student.Student))
	}
	repo.db.nextSub++
	id := repo.db.nextSub
	repo.db.subs[session][id] = onUpdate
	roster := repo.rosterLocked(session)
	repo.db.mu.Unlock()

	// initial delivery of the current roster
	onUpdate(roster)

	cancel := func() {
		repo.db.mu.Lock()
		delete(repo.db.subs[session], id)
		repo.db.mu.Unlock()
	}
	return cancel, nil
}
