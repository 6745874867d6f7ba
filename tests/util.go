package testutil

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/tutorke/darasa/core"
	"github.com/tutorke/darasa/core/student"
)

// Logger is a quiet core.Logger for tests.
type Logger struct {
	std *log.Logger
}

var _ core.Logger = (*Logger)(nil)

func NewLogger() *Logger {
	return &Logger{std: log.New(io.Discard, "", 0)}
}

func (l Logger) Enable(bool)                           {}
func (l Logger) Debug(msg string, args ...interface{}) { l.std.Println(msg, args) }
func (l Logger) Info(msg string, args ...interface{})  { l.std.Println(msg, args) }
func (l Logger) Warn(msg string, args ...interface{})  { l.std.Println(msg, args) }
func (l Logger) Error(msg string, args ...interface{}) { l.std.Println(msg, args) }
func (l Logger) Fatal(msg string, args ...interface{}) { l.std.Fatalln(msg, args) }

// Mail is a recording core.EmailService.
type Mail struct {
	Sent []*core.EmailMessage
}

var _ core.EmailService = (*Mail)(nil)

func (m *Mail) SendMessages(messages ...*core.EmailMessage) {
	m.Sent = append(m.Sent, messages...)
}

// NewConfig returns a config with fast portal timings for tests and sets the
// core.Conf global.
func NewConfig() *core.Config {
	core.Conf = &core.Config{
		Debug:    true,
		TestMode: true,
		Env:      "TEST",
		AppName:  "Darasa",
		Portal: core.PortalConfig{
			WelcomeCountdown: 3 * time.Second,
			RedirectDelay:    2 * time.Second,
		},
	}
	return core.Conf
}

// CreateStudent seeds a registration record through the repository.
func CreateStudent(
	t *testing.T,
	repo student.Repository,
	session, phone, name string,
	blocked bool,
	blockReason ...string,
) student.Student {
	t.Helper()

	std := student.Student{
		StudentName:    name,
		ParentPhone:    phone,
		Class:          "Form 3",
		Subjects:       "Mathematics, Physics",
		ReceiptMessage: "MPESA ref QWE123RT45 paid in full",
		Session:        session,
		ReceiptStatus:  student.ReceiptNone,
	}
	std, err := repo.CreateStudent(context.Background(), session, phone, std)
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}

	if blocked {
		reason := "Payment receipt could not be verified"
		if len(blockReason) > 0 {
			reason = blockReason[0]
		}
		if err := repo.BlockStudent(context.Background(), session, phone, reason); err != nil {
			t.Fatalf("BlockStudent() failed: %v", err)
		}
		std, err = repo.GetStudent(context.Background(), session, phone)
		if err != nil {
			t.Fatalf("GetStudent() failed: %v", err)
		}
	}
	return std
}
