package docstore

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/tutorke/darasa/core"
	"github.com/tutorke/darasa/core/student"
)

type studentRepository struct {
	client *redis.Client
	logger core.Logger
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(client *redis.Client, logger core.Logger) student.Repository {
	return &studentRepository{client: client, logger: logger}
}

func (repo *studentRepository) getStudent(ctx context.Context, session, phone string) (student.Student, error) {
	raw, err := repo.client.Get(ctx, studentKey(session, phone)).Result()
	if err == redis.Nil {
		return student.Student{}, student.ErrNotFound
	}
	if err != nil {
		return student.Student{}, wrapStoreErr(err, "getting student")
	}

	var std student.Student
	if err := json.Unmarshal([]byte(raw), &std); err != nil {
		return student.Student{}, errors.Wrap(err, "decoding student")
	}
	return std, nil
}

// putStudent writes the document and keeps the roster index in step.
func (repo *studentRepository) putStudent(ctx context.Context, session, phone string, std student.Student) error {
	raw, err := json.Marshal(std)
	if err != nil {
		return errors.Wrap(err, "encoding student")
	}
	pipe := repo.client.TxPipeline()
	pipe.Set(ctx, studentKey(session, phone), raw, 0)
	pipe.ZAdd(ctx, rosterKey(session), redis.Z{
		Score:  float64(std.RegisteredAt.UnixMicro()),
		Member: phone,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return wrapStoreErr(err, "writing student")
	}
	return nil
}

// publish signals roster subscribers that something changed. Best effort; a
// missed publish only delays the next full-roster delivery.
func (repo *studentRepository) publish(ctx context.Context, session string) {
	if err := repo.client.Publish(ctx, eventsChannel(session), "update").Err(); err != nil {
		repo.logger.Warn("publishing roster update for "+session, err)
	}
}

func (repo *studentRepository) GetStudent(ctx context.Context, session, phone string) (student.Student, error) {
	return repo.getStudent(ctx, session, phone)
}

func (repo *studentRepository) CreateStudent(ctx context.Context, session, phone string, std student.Student) (student.Student, error) {
	now, err := serverNow(ctx, repo.client)
	if err != nil {
		return student.Student{}, err
	}
	std.RegisteredAt = now
	std.LastAccessed = now

	raw, err := json.Marshal(std)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "encoding student")
	}

	// create-only write rule: a live record at this key rejects the create
	created, err := repo.client.SetNX(ctx, studentKey(session, phone), raw, 0).Result()
	if err != nil {
		return student.Student{}, wrapStoreErr(err, "creating student")
	}
	if !created {
		return student.Student{}, core.ErrPermissionDenied
	}

	if err := repo.client.ZAdd(ctx, rosterKey(session), redis.Z{
		Score:  float64(now.UnixMicro()),
		Member: phone,
	}).Err(); err != nil {
		return student.Student{}, wrapStoreErr(err, "indexing student")
	}
	repo.publish(ctx, session)
	return std, nil
}

func (repo *studentRepository) PutStudent(ctx context.Context, session, phone string, std student.Student) (student.Student, error) {
	if std.RegisteredAt.IsZero() {
		now, err := serverNow(ctx, repo.client)
		if err != nil {
			return student.Student{}, err
		}
		std.RegisteredAt = now
		std.LastAccessed = now
	}
	if err := repo.putStudent(ctx, session, phone, std); err != nil {
		return student.Student{}, err
	}
	repo.publish(ctx, session)
	return std, nil
}

func (repo *studentRepository) TouchLastAccessed(ctx context.Context, session, phone string) error {
	std, err := repo.getStudent(ctx, session, phone)
	if err != nil {
		return err
	}
	now, err := serverNow(ctx, repo.client)
	if err != nil {
		return err
	}
	std.LastAccessed = now
	if err := repo.putStudent(ctx, session, phone, std); err != nil {
		return err
	}
	repo.publish(ctx, session)
	return nil
}

func (repo *studentRepository) SubmitReceipt(ctx context.Context, session, phone, message string) error {
	return repo.mutate(ctx, session, phone, func(std *student.Student) {
		std.ReceiptStatus = student.ReceiptPending
		std.PendingReceipt = message
	})
}

func (repo *studentRepository) ApproveReceipt(ctx context.Context, session, phone string) error {
	return repo.mutate(ctx, session, phone, func(std *student.Student) {
		if std.PendingReceipt != "" {
			std.ReceiptMessage = std.PendingReceipt
		}
		std.Blocked = false
		std.BlockReason = ""
		std.ReceiptStatus = student.ReceiptNone
		std.PendingReceipt = ""
	})
}

func (repo *studentRepository) DeclineReceipt(ctx context.Context, session, phone string) error {
	return repo.mutate(ctx, session, phone, func(std *student.Student) {
		std.ReceiptStatus = student.ReceiptDeclined
		std.PendingReceipt = ""
	})
}

func (repo *studentRepository) BlockStudent(ctx context.Context, session, phone, reason string) error {
	return repo.mutate(ctx, session, phone, func(std *student.Student) {
		std.Blocked = true
		std.BlockReason = reason
		std.ReceiptStatus = student.ReceiptNone
		std.PendingReceipt = ""
	})
}

func (repo *studentRepository) UnblockStudent(ctx context.Context, session, phone string) error {
	return repo.mutate(ctx, session, phone, func(std *student.Student) {
		std.Blocked = false
		std.BlockReason = ""
	})
}

// mutate is a read-modify-write on one document. The store's native
// last-write-wins semantics apply to a true concurrent write race.
func (repo *studentRepository) mutate(ctx context.Context, session, phone string, fn func(*student.Student)) error {
	std, err := repo.getStudent(ctx, session, phone)
	if err != nil {
		return err
	}
	fn(&std)
	if err := repo.putStudent(ctx, session, phone, std); err != nil {
		return err
	}
	repo.publish(ctx, session)
	return nil
}

func (repo *studentRepository) DeleteStudent(ctx context.Context, session, phone string) error {
	pipe := repo.client.TxPipeline()
	pipe.Del(ctx, studentKey(session, phone))
	pipe.ZRem(ctx, rosterKey(session), phone)
	if _, err := pipe.Exec(ctx); err != nil {
		return wrapStoreErr(err, "deleting student")
	}
	repo.publish(ctx, session)
	return nil
}

func (repo *studentRepository) QueryStudents(ctx context.Context, session string) ([]student.Student, error) {
	phones, err := repo.client.ZRevRange(ctx, rosterKey(session), 0, -1).Result()
	if err != nil {
		return nil, wrapStoreErr(err, "querying roster")
	}

	roster := make([]student.Student, 0, len(phones))
	for _, phone := range phones {
		std, err := repo.getStudent(ctx, session, phone)
		if err != nil {
			if errors.Cause(err) == student.ErrNotFound {
				continue // index entry raced a delete
			}
			return nil, err
		}
		roster = append(roster, std)
	}
	return roster, nil
}

func (repo *studentRepository) SubscribeStudents(ctx context.Context, session string, onUpdate func([]student.Student)) (func(), error) {
	pubsub := repo.client.Subscribe(ctx, eventsChannel(session))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, wrapStoreErr(err, "subscribing to roster")
	}

	var mu sync.Mutex
	var cancelled bool

	deliver := func() {
		roster, err := repo.QueryStudents(ctx, session)
		if err != nil {
			repo.logger.Warn("querying roster for subscriber", err)
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if cancelled {
			return
		}
		onUpdate(roster)
	}

	go func() {
		deliver() // initial delivery of the current roster
		for range pubsub.Channel() {
			deliver()
		}
	}()

	cancel := func() {
		mu.Lock()
		cancelled = true
		mu.Unlock()
		if err := pubsub.Close(); err != nil {
			repo.logger.Warn("closing roster subscription", err)
		}
	}
	return cancel, nil
}
