package student

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/tutorke/darasa/core"
)

var (
	// errors
	ErrNotFound       = errors.New("student not found")
	ErrInvalidSession = errors.New("invalid session")
	ErrEmptyReceipt   = errors.New("receipt message is required")
)

type (
	// Repository is the document-store contract the portal depends on.
	// Records live at sessions/{session}/students/{phone}; implementations
	// assign RegisteredAt/LastAccessed from the store clock at commit time
	// and translate their native failures to core.ErrPermissionDenied /
	// core.ErrUnavailable before returning.
	Repository interface {
		// GetStudent is a point lookup with no side effects. ErrNotFound
		// when no record exists at the key.
		GetStudent(ctx context.Context, session, phone string) (Student, error)
		// CreateStudent creates the record at its key. Write rules are
		// create-only: an existing record yields core.ErrPermissionDenied.
		CreateStudent(ctx context.Context, session, phone string, std Student) (Student, error)
		// PutStudent fully overwrites the record at its key (teacher edits).
		PutStudent(ctx context.Context, session, phone string, std Student) (Student, error)
		// TouchLastAccessed merges a fresh store timestamp into LastAccessed
		// without touching other fields.
		TouchLastAccessed(ctx context.Context, session, phone string) error
		SubmitReceipt(ctx context.Context, session, phone, message string) error
		ApproveReceipt(ctx context.Context, session, phone string) error
		DeclineReceipt(ctx context.Context, session, phone string) error
		BlockStudent(ctx context.Context, session, phone, reason string) error
		UnblockStudent(ctx context.Context, session, phone string) error
		DeleteStudent(ctx context.Context, session, phone string) error
		// QueryStudents returns the full session roster ordered by
		// RegisteredAt descending.
		QueryStudents(ctx context.Context, session string) ([]Student, error)
		// SubscribeStudents registers onUpdate to receive the full ordered
		// roster on every store-side change, starting with the current one.
		// The returned function cancels the subscription; onUpdate is never
		// called after it returns.
		SubscribeStudents(ctx context.Context, session string, onUpdate func([]Student)) (func(), error)
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		logger  core.Logger
		conf    *core.Config
	}
)

func NewService(repo Repository, mailSvc core.EmailService, logger core.Logger, conf *core.Config) *Service {
	return &Service{repo: repo, mailSvc: mailSvc, logger: logger, conf: conf}
}

// CheckIn looks up an existing registration. When one exists and is not
// blocked, LastAccessed is touched fire-and-forget: a touch failure is logged,
// never surfaced. Blocked records are deliberately not touched so the teacher
// sees when the student last got through.
func (svc *Service) CheckIn(ctx context.Context, session, phone string) (Student, bool, error) {
	if !ValidSession(session) {
		return Student{}, false, ErrInvalidSession
	}

	std, err := svc.repo.GetStudent(ctx, session, phone)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Student{}, false, nil
		}
		return Student{}, false, errors.Wrap(err, "getting student")
	}

	if !std.Blocked {
		if err := svc.repo.TouchLastAccessed(ctx, session, phone); err != nil {
			svc.logger.Warn(fmt.Sprintf("touching lastAccessed for %s/%s", session, phone), err)
		}
	}
	return std, true, nil
}

// Register creates the registration record for phone in session.
func (svc *Service) Register(ctx context.Context, session, phone string, reg Registration) (Student, error) {
	if !ValidSession(session) {
		return Student{}, ErrInvalidSession
	}
	std := Student{
		StudentName:    reg.StudentName,
		ParentPhone:    phone,
		Class:          reg.Class,
		Subjects:       reg.Subjects,
		ReceiptMessage: reg.ReceiptMessage,
		Session:        session,
		ReceiptStatus:  ReceiptNone,
	}
	created, err := svc.repo.CreateStudent(ctx, session, phone, std)
	if err != nil {
		return Student{}, errors.Wrap(err, "creating student")
	}
	return created, nil
}

func (svc *Service) Get(ctx context.Context, session, phone string) (Student, error) {
	if !ValidSession(session) {
		return Student{}, ErrInvalidSession
	}
	return svc.repo.GetStudent(ctx, session, phone)
}

// SubmitReceipt records a resubmitted payment receipt as pending teacher
// approval, notifies the teacher and returns the refreshed record.
func (svc *Service) SubmitReceipt(ctx context.Context, session, phone, message string) (Student, error) {
	if !ValidSession(session) {
		return Student{}, ErrInvalidSession
	}
	message = core.CleanString(message)
	if message == "" {
		return Student{}, core.NewValidationError(ErrEmptyReceipt,
			core.FieldError{Field: "receiptMessage", Error: ErrEmptyReceipt.Error()})
	}

	if err := svc.repo.SubmitReceipt(ctx, session, phone, message); err != nil {
		return Student{}, errors.Wrap(err, "submitting receipt")
	}
	svc.notifyTeacher(session, phone, message)

	std, err := svc.repo.GetStudent(ctx, session, phone)
	if err != nil {
		return Student{}, errors.Wrap(err, "refreshing student")
	}
	return std, nil
}

func (svc *Service) notifyTeacher(session, phone, message string) {
	to := svc.conf.Teacher.NotifyEmail
	if to.Address == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{to},
		Subject: "New payment receipt awaiting approval",
		BodyStr: fmt.Sprintf(
			"A blocked student resubmitted a payment receipt.\n\nSession: %s\nPhone: %s\n\n%s",
			session, phone, message,
		),
	})
}

// ApproveReceipt unblocks the student and clears the pending receipt.
func (svc *Service) ApproveReceipt(ctx context.Context, session, phone string) error {
	if !ValidSession(session) {
		return ErrInvalidSession
	}
	return svc.repo.ApproveReceipt(ctx, session, phone)
}

// DeclineReceipt keeps the student blocked and marks the receipt declined.
func (svc *Service) DeclineReceipt(ctx context.Context, session, phone string) error {
	if !ValidSession(session) {
		return ErrInvalidSession
	}
	return svc.repo.DeclineReceipt(ctx, session, phone)
}

func (svc *Service) Block(ctx context.Context, session, phone, reason string) error {
	if !ValidSession(session) {
		return ErrInvalidSession
	}
	return svc.repo.BlockStudent(ctx, session, phone, core.CleanString(reason))
}

func (svc *Service) Unblock(ctx context.Context, session, phone string) error {
	if !ValidSession(session) {
		return ErrInvalidSession
	}
	return svc.repo.UnblockStudent(ctx, session, phone)
}

// Update applies a teacher edit. A changed phone number deletes the old
// record and writes a new one; there is no atomic rename.
func (svc *Service) Update(ctx context.Context, session, origPhone string, upd UpdateStudent) (Student, error) {
	if !ValidSession(session) {
		return Student{}, ErrInvalidSession
	}

	orig, err := svc.repo.GetStudent(ctx, session, origPhone)
	if err != nil {
		return Student{}, errors.Wrap(err, "getting student")
	}

	if upd.ParentPhone != origPhone {
		if err := svc.repo.DeleteStudent(ctx, session, origPhone); err != nil {
			return Student{}, errors.Wrap(err, "deleting re-keyed student")
		}
	}

	orig.StudentName = upd.StudentName
	orig.ParentPhone = upd.ParentPhone
	orig.Class = upd.Class
	orig.Subjects = upd.Subjects
	if upd.ReceiptMessage != "" {
		orig.ReceiptMessage = upd.ReceiptMessage
	}
	updated, err := svc.repo.PutStudent(ctx, session, upd.ParentPhone, orig)
	if err != nil {
		return Student{}, errors.Wrap(err, "updating student")
	}
	return updated, nil
}

func (svc *Service) Delete(ctx context.Context, session, phone string) error {
	if !ValidSession(session) {
		return ErrInvalidSession
	}
	return svc.repo.DeleteStudent(ctx, session, phone)
}

func (svc *Service) Query(ctx context.Context, session string) ([]Student, error) {
	if !ValidSession(session) {
		return nil, ErrInvalidSession
	}
	return svc.repo.QueryStudents(ctx, session)
}

func (svc *Service) Subscribe(ctx context.Context, session string, onUpdate func([]Student)) (func(), error) {
	if !ValidSession(session) {
		return nil, ErrInvalidSession
	}
	return svc.repo.SubscribeStudents(ctx, session, onUpdate)
}
