package tests

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	. "github.com/tutorke/darasa/apps/api/echo"
	"github.com/tutorke/darasa/core/meeting"
	"github.com/tutorke/darasa/core/student"
	testutil "github.com/tutorke/darasa/tests"
)

func TestDashboardLogin(t *testing.T) {
	e := setup(t)

	body := marchallObj(t, LoginRequest{Email: teacherEmail, Password: teacherPassword})
	req, rec := newRequest(http.MethodPost, "/v1/dashboard/login", body)
	e.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var lr LoginResponse
	unmarchallObj(t, rec.Body.Bytes(), &lr)
	assert.NotEmpty(t, lr.Token)
}

func TestDashboardLogin_badCredentials(t *testing.T) {
	e := setup(t)

	body := marchallObj(t, LoginRequest{Email: teacherEmail, Password: "nope"})
	req, rec := newRequest(http.MethodPost, "/v1/dashboard/login", body)
	e.app.ServeHTTP(rec, req)
	checkCodeAndData(t, rec, http.StatusBadRequest, marchallObj(t, httpErr{Error: "authentication failed"}))

	// unknown email gets the same answer
	body = marchallObj(t, LoginRequest{Email: "someone@else.test", Password: teacherPassword})
	req, rec = newRequest(http.MethodPost, "/v1/dashboard/login", body)
	e.app.ServeHTTP(rec, req)
	checkCodeAndData(t, rec, http.StatusBadRequest, marchallObj(t, httpErr{Error: "authentication failed"}))
}

func TestDashboardRequiresAuth(t *testing.T) {
	e := setup(t)

	req, rec := newRequest(http.MethodGet, "/v1/dashboard/morning/students")
	e.app.ServeHTTP(rec, req)
	checkCodeAndData(t, rec, http.StatusUnauthorized, marchallObj(t, errMissingToken))
}

func TestDashboardQuery(t *testing.T) {
	e := setup(t)
	testutil.CreateStudent(t, e.studentRepo, student.SessionMorning, "+254700000001", "First Student", false)
	testutil.CreateStudent(t, e.studentRepo, student.SessionMorning, "+254700000002", "Second Student", false)
	token := getToken(t, e.conf)

	req, rec := newAuthRequest(http.MethodGet, "/v1/dashboard/morning/students", token)
	e.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var roster []student.Student
	unmarchallObj(t, rec.Body.Bytes(), &roster)
	if assert.Len(t, roster, 2) {
		assert.False(t, roster[0].RegisteredAt.Before(roster[1].RegisteredAt), "newest registration first")
	}

	// an empty session reads as an empty list, not null
	req, rec = newAuthRequest(http.MethodGet, "/v1/dashboard/evening/students", token)
	e.app.ServeHTTP(rec, req)
	checkCodeAndData(t, rec, http.StatusOK, []byte("[]"))
}

func TestDashboardBlockUnblock(t *testing.T) {
	e := setup(t)
	testutil.CreateStudent(t, e.studentRepo, student.SessionMorning, testPhone, "Brian Otieno", false)
	token := getToken(t, e.conf)

	body := marchallObj(t, BlockRequest{Reason: "Payment receipt could not be verified"})
	req, rec := newAuthRequest(http.MethodPost, "/v1/dashboard/morning/students/"+testPhone+"/block", token, body)
	e.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var std student.Student
	unmarchallObj(t, rec.Body.Bytes(), &std)
	assert.True(t, std.Blocked)
	assert.Equal(t, "Payment receipt could not be verified", std.BlockReason)

	req, rec = newAuthRequest(http.MethodPost, "/v1/dashboard/morning/students/"+testPhone+"/unblock", token)
	e.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	unmarchallObj(t, rec.Body.Bytes(), &std)
	assert.False(t, std.Blocked)
	assert.Empty(t, std.BlockReason)
}

func TestDashboardReceiptApproval(t *testing.T) {
	e := setup(t)
	testutil.CreateStudent(t, e.studentRepo, student.SessionMorning, testPhone, "Brian Otieno", true)
	if err := e.studentRepo.SubmitReceipt(context.Background(), student.SessionMorning, testPhone, "MPESA ref XYZ789 resubmitted"); err != nil {
		t.Fatalf("SubmitReceipt(): %v", err)
	}
	token := getToken(t, e.conf)

	req, rec := newAuthRequest(http.MethodPost, "/v1/dashboard/morning/students/"+testPhone+"/receipt/approve", token)
	e.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var std student.Student
	unmarchallObj(t, rec.Body.Bytes(), &std)
	assert.False(t, std.Blocked)
	assert.Equal(t, student.ReceiptNone, std.ReceiptStatus)
	assert.Equal(t, "MPESA ref XYZ789 resubmitted", std.ReceiptMessage)
}

func TestDashboardReceiptDecline(t *testing.T) {
	e := setup(t)
	testutil.CreateStudent(t, e.studentRepo, student.SessionMorning, testPhone, "Brian Otieno", true)
	if err := e.studentRepo.SubmitReceipt(context.Background(), student.SessionMorning, testPhone, "MPESA ref XYZ789 resubmitted"); err != nil {
		t.Fatalf("SubmitReceipt(): %v", err)
	}
	token := getToken(t, e.conf)

	req, rec := newAuthRequest(http.MethodPost, "/v1/dashboard/morning/students/"+testPhone+"/receipt/decline", token)
	e.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var std student.Student
	unmarchallObj(t, rec.Body.Bytes(), &std)
	assert.True(t, std.Blocked, "declining keeps the student blocked")
	assert.Equal(t, student.ReceiptDeclined, std.ReceiptStatus)
}

func TestDashboardUpdate_rekeysOnPhoneChange(t *testing.T) {
	e := setup(t)
	testutil.CreateStudent(t, e.studentRepo, student.SessionMorning, testPhone, "Brian Otieno", false)
	token := getToken(t, e.conf)

	newPhone := "+254798765432"
	body := marchallObj(t, student.UpdateStudent{
		StudentName: "Brian Otieno",
		ParentPhone: newPhone,
		Class:       "Form 4",
		Subjects:    "Mathematics, Physics",
	})
	req, rec := newAuthRequest(http.MethodPut, "/v1/dashboard/morning/students/"+testPhone, token, body)
	e.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var std student.Student
	unmarchallObj(t, rec.Body.Bytes(), &std)
	assert.Equal(t, newPhone, std.ParentPhone)

	_, err := e.studentRepo.GetStudent(context.Background(), student.SessionMorning, testPhone)
	assert.Equal(t, student.ErrNotFound, errors.Cause(err), "old key must be gone")
}

func TestDashboardDestroy(t *testing.T) {
	e := setup(t)
	testutil.CreateStudent(t, e.studentRepo, student.SessionMorning, testPhone, "Brian Otieno", false)
	token := getToken(t, e.conf)

	req, rec := newAuthRequest(http.MethodDelete, "/v1/dashboard/morning/students/"+testPhone, token)
	e.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, err := e.studentRepo.GetStudent(context.Background(), student.SessionMorning, testPhone)
	assert.Equal(t, student.ErrNotFound, errors.Cause(err))
}

func TestDashboardLinks(t *testing.T) {
	e := setup(t)
	token := getToken(t, e.conf)

	body := marchallObj(t, SetLinkRequest{URL: morningZoom})
	req, rec := newAuthRequest(http.MethodPut, "/v1/dashboard/links/morning", token, body)
	e.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var links meeting.Links
	unmarchallObj(t, rec.Body.Bytes(), &links)
	assert.Equal(t, morningZoom, links.Morning)
	assert.False(t, links.MorningUpdated.IsZero())
	assert.Empty(t, links.Evening)

	req, rec = newAuthRequest(http.MethodGet, "/v1/dashboard/links", token)
	e.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	unmarchallObj(t, rec.Body.Bytes(), &links)
	assert.Equal(t, morningZoom, links.Morning)
}

func TestDashboardSetLink_rejectsForeignHost(t *testing.T) {
	e := setup(t)
	token := getToken(t, e.conf)

	body := marchallObj(t, SetLinkRequest{URL: "https://example.com/j/99887766"})
	req, rec := newAuthRequest(http.MethodPut, "/v1/dashboard/links/morning", token, body)
	e.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var fldErrs map[string]string
	unmarchallObj(t, rec.Body.Bytes(), &fldErrs)
	assert.Contains(t, fldErrs, "url")
}

func TestDashboardStream(t *testing.T) {
	e := setup(t)
	testutil.CreateStudent(t, e.studentRepo, student.SessionMorning, testPhone, "Brian Otieno", false)
	token := getToken(t, e.conf)

	ctx, cancel := context.WithCancel(context.Background())
	req, rec := newAuthRequest(http.MethodGet, "/v1/dashboard/morning/students/stream", token)
	req = req.WithContext(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		e.app.ServeHTTP(rec, req)
	}()

	// give the initial delivery a moment, then hang up
	time.Sleep(50 * time.Millisecond)
	cancel()
	wg.Wait()

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "data: "), "expected an SSE frame, got %q", body)
	assert.Contains(t, body, "Brian Otieno")
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
}

func TestDashboardStream_unknownSession(t *testing.T) {
	e := setup(t)
	token := getToken(t, e.conf)

	req, rec := newAuthRequest(http.MethodGet, "/v1/dashboard/night/students/stream", token)
	e.app.ServeHTTP(rec, req)
	checkCodeAndData(t, rec, http.StatusNotFound, marchallObj(t, httpErr{Error: "not found"}))
	assert.NotEqual(t, "text/event-stream", rec.Header().Get("Content-Type"))
}
