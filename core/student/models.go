package student

import (
	"time"

	"github.com/tutorke/darasa/core"
)

// Sessions are the two fixed daily class time-slots. They double as storage
// path segments; no other session name is valid anywhere.
const (
	SessionMorning = "morning"
	SessionEvening = "evening"
)

var Sessions = []string{SessionMorning, SessionEvening}

func ValidSession(session string) bool {
	return session == SessionMorning || session == SessionEvening
}

// Receipt statuses. A blocked student resubmitting a receipt moves to
// ReceiptPending until the teacher approves (clears back to ReceiptNone and
// unblocks) or declines.
const (
	ReceiptNone     = "none"
	ReceiptPending  = "pending"
	ReceiptDeclined = "declined"
)

// Student is one registration record, keyed by (session, parent phone).
// The phone number is the identity: changing it means delete + create.
// RegisteredAt and LastAccessed are store-assigned, never the client clock.
type Student struct {
	StudentName    string    `json:"studentName"`
	ParentPhone    string    `json:"parentPhone"`
	Class          string    `json:"class"`
	Subjects       string    `json:"subjects"`
	ReceiptMessage string    `json:"receiptMessage"`
	RegisteredAt   time.Time `json:"registeredAt"`
	LastAccessed   time.Time `json:"lastAccessed"`
	Session        string    `json:"session"`
	Blocked        bool      `json:"blocked,omitempty"`
	BlockReason    string    `json:"blockReason,omitempty"`
	ReceiptStatus  string    `json:"receiptStatus,omitempty"`
	PendingReceipt string    `json:"pendingReceipt,omitempty"`
}

// Registration contains the information needed to register a new Student.
type Registration struct {
	StudentName    string `json:"studentName" validate:"required,min=2,max=100,alpha_space"`
	Class          string `json:"class" validate:"required"`
	Subjects       string `json:"subjects" validate:"required,min=3,max=200"`
	ReceiptMessage string `json:"receiptMessage" validate:"required,min=10,max=500"`
}

func (r *Registration) Validate() error {
	r.StudentName = core.CleanString(r.StudentName)
	r.Class = core.CleanString(r.Class)
	r.Subjects = core.CleanString(r.Subjects)
	r.ReceiptMessage = core.CleanString(r.ReceiptMessage)
	return core.Validate.Struct(r)
}

// UpdateStudent defines what the teacher dashboard may modify on an existing
// record. A changed phone number re-keys the record (delete old, create new).
type UpdateStudent struct {
	StudentName    string `json:"studentName" validate:"required,min=2,max=100,alpha_space"`
	ParentPhone    string `json:"parentPhone" validate:"required,e164"`
	Class          string `json:"class" validate:"required"`
	Subjects       string `json:"subjects" validate:"required,min=3,max=200"`
	ReceiptMessage string `json:"receiptMessage" validate:"omitempty,max=500"`
}

func (u *UpdateStudent) Validate() error {
	u.StudentName = core.CleanString(u.StudentName)
	u.ParentPhone = core.CleanString(u.ParentPhone)
	u.Class = core.CleanString(u.Class)
	u.Subjects = core.CleanString(u.Subjects)
	u.ReceiptMessage = core.CleanString(u.ReceiptMessage)
	return core.Validate.Struct(u)
}
