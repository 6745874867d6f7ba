package tests

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/tutorke/darasa/apps/api/echo"
	"github.com/tutorke/darasa/core/country"
	"github.com/tutorke/darasa/core/registration"
	"github.com/tutorke/darasa/core/student"
	testutil "github.com/tutorke/darasa/tests"
)

const (
	testPhone   = "+254712345678"
	localDigits = "712 345 678"
	morningZoom = "https://zoom.us/j/99887766"
)

func openVisit(t *testing.T, e *env, session string) VisitResponse {
	t.Helper()
	req, rec := newRequest(http.MethodPost, "/v1/portal/"+session+"/visits")
	e.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("openVisit(): code = %v; body %s", rec.Code, rec.Body.String())
	}
	var vr VisitResponse
	unmarchallObj(t, rec.Body.Bytes(), &vr)
	return vr
}

func checkIn(t *testing.T, e *env, id, countryCode, phoneNumber string) *httptest.ResponseRecorder {
	t.Helper()
	body := marchallObj(t, CheckInRequest{Country: countryCode, PhoneNumber: phoneNumber})
	req, rec := newRequest(http.MethodPost, "/v1/portal/visits/"+id+"/check-in", body)
	e.app.ServeHTTP(rec, req)
	return rec
}

func snapshotOf(t *testing.T, rec *httptest.ResponseRecorder) registration.Snapshot {
	t.Helper()
	var snap registration.Snapshot
	unmarchallObj(t, rec.Body.Bytes(), &snap)
	return snap
}

func validForm(t *testing.T) []byte {
	return marchallObj(t, student.Registration{
		StudentName:    "Amina Wanjiku",
		Class:          "Form 2",
		Subjects:       "Mathematics, Chemistry, Physics",
		ReceiptMessage: "MPESA ref QAB12CD34E paid 1500 KES",
	})
}

func TestPortalCountries(t *testing.T) {
	e := setup(t)

	req, rec := newRequest(http.MethodGet, "/v1/portal/countries")
	e.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var dir []country.Country
	unmarchallObj(t, rec.Body.Bytes(), &dir)
	assert.Len(t, dir, len(country.Countries))
	assert.Equal(t, "KE", dir[0].Code, "the default country leads the directory")
}

func TestPortalOpenVisit(t *testing.T) {
	e := setup(t)

	vr := openVisit(t, e, student.SessionMorning)
	assert.NotEmpty(t, vr.ID)
	assert.Equal(t, registration.StateCheckIn, vr.Snapshot.State)

	// unknown sessions do not get a visit
	req, rec := newRequest(http.MethodPost, "/v1/portal/night/visits")
	e.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPortalCheckIn_newNumber(t *testing.T) {
	e := setup(t)
	vr := openVisit(t, e, student.SessionMorning)

	rec := checkIn(t, e, vr.ID, "KE", localDigits)
	assert.Equal(t, http.StatusOK, rec.Code)

	snap := snapshotOf(t, rec)
	assert.Equal(t, registration.StateRegistering, snap.State)
	assert.Equal(t, testPhone, snap.Phone, "canonical number is derived server-side")
}

func TestPortalCheckIn_invalidNumber(t *testing.T) {
	e := setup(t)
	vr := openVisit(t, e, student.SessionMorning)

	rec := checkIn(t, e, vr.ID, "KE", "712")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var fldErrs map[string]string
	unmarchallObj(t, rec.Body.Bytes(), &fldErrs)
	assert.Contains(t, fldErrs, "phoneNumber")
}

func TestPortalCheckIn_unknownCountry(t *testing.T) {
	e := setup(t)
	vr := openVisit(t, e, student.SessionMorning)

	rec := checkIn(t, e, vr.ID, "ZZ", localDigits)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPortalCheckIn_unknownVisit(t *testing.T) {
	e := setup(t)

	rec := checkIn(t, e, "f2bdee10-0000-4000-8000-c0ffeec0ffee", "KE", localDigits)
	checkCodeAndData(t, rec, http.StatusNotFound, marchallObj(t, httpErr{Error: "visit not found or expired"}))
}

func TestPortalRegister_journey(t *testing.T) {
	e := setup(t)
	if err := e.meetingRepo.SetLink(context.Background(), student.SessionMorning, morningZoom); err != nil {
		t.Fatalf("SetLink(): %v", err)
	}
	vr := openVisit(t, e, student.SessionMorning)
	checkIn(t, e, vr.ID, "KE", localDigits)

	req, rec := newRequest(http.MethodPost, "/v1/portal/visits/"+vr.ID+"/register", validForm(t))
	e.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	snap := snapshotOf(t, rec)
	assert.Equal(t, registration.StateRedirecting, snap.State)
	assert.Equal(t, morningZoom, snap.RedirectURL)
	if assert.NotNil(t, snap.Record) {
		assert.Equal(t, "Amina Wanjiku", snap.Record.StudentName)
		assert.False(t, snap.Record.RegisteredAt.IsZero())
	}
}

func TestPortalRegister_invalidForm(t *testing.T) {
	e := setup(t)
	vr := openVisit(t, e, student.SessionMorning)
	checkIn(t, e, vr.ID, "KE", localDigits)

	body := marchallObj(t, student.Registration{
		StudentName:    "A",
		Class:          "Form 2",
		Subjects:       "Maths",
		ReceiptMessage: "too short",
	})
	req, rec := newRequest(http.MethodPost, "/v1/portal/visits/"+vr.ID+"/register", body)
	e.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var fldErrs map[string]string
	unmarchallObj(t, rec.Body.Bytes(), &fldErrs)
	assert.Contains(t, fldErrs, "studentName")
}

func TestPortalRegister_linkNotConfigured(t *testing.T) {
	e := setup(t)
	vr := openVisit(t, e, student.SessionMorning)
	checkIn(t, e, vr.ID, "KE", localDigits)

	req, rec := newRequest(http.MethodPost, "/v1/portal/visits/"+vr.ID+"/register", validForm(t))
	e.app.ServeHTTP(rec, req)
	checkCodeAndData(t, rec, http.StatusConflict,
		marchallObj(t, httpErr{Error: "the class link is not available; please contact your teacher"}))
}

func TestPortalCheckIn_returningStudent(t *testing.T) {
	e := setup(t)
	testutil.CreateStudent(t, e.studentRepo, student.SessionMorning, testPhone, "Brian Otieno", false)
	if err := e.meetingRepo.SetLink(context.Background(), student.SessionMorning, morningZoom); err != nil {
		t.Fatalf("SetLink(): %v", err)
	}
	vr := openVisit(t, e, student.SessionMorning)

	rec := checkIn(t, e, vr.ID, "KE", localDigits)
	snap := snapshotOf(t, rec)
	assert.Equal(t, registration.StateWelcomeBack, snap.State)
	assert.Equal(t, 3, snap.Countdown)
	if assert.NotNil(t, snap.Record) {
		assert.Equal(t, "Brian Otieno", snap.Record.StudentName)
	}

	// skip the countdown
	req, rec2 := newRequest(http.MethodPost, "/v1/portal/visits/"+vr.ID+"/join")
	e.app.ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusOK, rec2.Code)
	snap = snapshotOf(t, rec2)
	assert.Equal(t, registration.StateRedirecting, snap.State)
	assert.Equal(t, morningZoom, snap.RedirectURL)
}

func TestPortalCheckIn_blockedStudent(t *testing.T) {
	e := setup(t)
	testutil.CreateStudent(t, e.studentRepo, student.SessionMorning, testPhone, "Brian Otieno", true)
	vr := openVisit(t, e, student.SessionMorning)

	rec := checkIn(t, e, vr.ID, "KE", localDigits)
	snap := snapshotOf(t, rec)
	assert.Equal(t, registration.StateBlocked, snap.State)
	if assert.NotNil(t, snap.Record) {
		assert.NotEmpty(t, snap.Record.BlockReason)
	}

	// resubmit a receipt; the flow stays blocked pending teacher approval
	body := marchallObj(t, ReceiptRequest{ReceiptMessage: "MPESA ref XYZ789 resubmitted"})
	req, rec2 := newRequest(http.MethodPost, "/v1/portal/visits/"+vr.ID+"/receipt", body)
	e.app.ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusOK, rec2.Code)
	snap = snapshotOf(t, rec2)
	assert.Equal(t, registration.StateBlocked, snap.State)
	if assert.NotNil(t, snap.Record) {
		assert.Equal(t, student.ReceiptPending, snap.Record.ReceiptStatus)
	}
	assert.Len(t, e.mailSvc.Sent, 1, "teacher gets notified")
}

func TestPortalReset(t *testing.T) {
	e := setup(t)
	vr := openVisit(t, e, student.SessionMorning)
	checkIn(t, e, vr.ID, "KE", localDigits)

	req, rec := newRequest(http.MethodPost, "/v1/portal/visits/"+vr.ID+"/reset")
	e.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	snap := snapshotOf(t, rec)
	assert.Equal(t, registration.StateCheckIn, snap.State)
	assert.Empty(t, snap.Phone)
}

func TestPortalJoinNow_wrongStep(t *testing.T) {
	e := setup(t)
	vr := openVisit(t, e, student.SessionMorning)

	req, rec := newRequest(http.MethodPost, "/v1/portal/visits/"+vr.ID+"/join")
	e.app.ServeHTTP(rec, req)
	checkCodeAndData(t, rec, http.StatusConflict,
		marchallObj(t, httpErr{Error: "action not available in the current step"}))
}

func TestPortalCloseVisit(t *testing.T) {
	e := setup(t)
	vr := openVisit(t, e, student.SessionMorning)

	req, rec := newRequest(http.MethodDelete, "/v1/portal/visits/"+vr.ID)
	e.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req, rec = newRequest(http.MethodGet, "/v1/portal/visits/"+vr.ID)
	e.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
