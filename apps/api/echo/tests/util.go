package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	. "github.com/tutorke/darasa/apps/api/echo"
	"github.com/tutorke/darasa/core"
	"github.com/tutorke/darasa/core/meeting"
	"github.com/tutorke/darasa/core/registration"
	"github.com/tutorke/darasa/core/student"
	dummystore "github.com/tutorke/darasa/storage/docstore/dummy"
	testutil "github.com/tutorke/darasa/tests"
)

const (
	teacherEmail    = "teacher@darasa.test"
	teacherPassword = "Sup3rS3cret!"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type env struct {
	app         Server
	conf        *core.Config
	studentRepo student.Repository
	meetingRepo meeting.Repository
	mailSvc     *testutil.Mail
}

func setup(t *testing.T) *env {
	t.Helper()

	conf := testutil.NewConfig()
	conf.Debug = false // exercise the production error rendering
	conf.SecretKey = "secret"
	conf.Server.JWTExpirationDelta = 10 * time.Minute
	conf.Teacher.Email = teacherEmail
	conf.Teacher.NotifyEmail.Address = teacherEmail
	hash, err := bcrypt.GenerateFromPassword([]byte(teacherPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing teacher password: %v", err)
	}
	conf.Teacher.PasswordHash = string(hash)

	// set up store & repos
	db, err := dummystore.Open()
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	studentRepo := dummystore.NewStudentRepository(db)
	meetingRepo := dummystore.NewMeetingRepository(db)

	// set up services
	logger := testutil.NewLogger()
	mailSvc := &testutil.Mail{}
	studentSvc := student.NewService(studentRepo, mailSvc, logger, conf)
	meetingSvc := meeting.NewService(meetingRepo)
	visits := registration.NewRegistry(studentSvc, meetingSvc, logger, conf)
	t.Cleanup(visits.Shutdown)

	// set up server
	app := NewServer(
		ServerDeps{
			Conf:       conf,
			Logger:     logger,
			StudentSvc: studentSvc,
			MeetingSvc: meetingSvc,
			Visits:     visits,
		},
	)
	return &env{
		app:         app,
		conf:        conf,
		studentRepo: studentRepo,
		meetingRepo: meetingRepo,
		mailSvc:     mailSvc,
	}
}

type httpErr struct {
	Error string `json:"error"`
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, conf *core.Config) string {
	claims := GetTeacherClaims(conf)
	token, err := GenerateToken(conf, claims)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func unmarchallObj(t *testing.T, data []byte, obj interface{}) {
	if err := json.Unmarshal(data, obj); err != nil {
		t.Fatalf("unmarchallObj(): %v\n%s", err, data)
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, rec *httptest.ResponseRecorder, wantCode int, wantData []byte) {
	t.Helper()
	if rec.Code != wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, wantCode, rec.Body.String())
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(wantData))
	}
}
