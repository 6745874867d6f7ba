package main

import (
	"context"
	"testing"

	"github.com/tutorke/darasa/core/meeting"
	"github.com/tutorke/darasa/core/student"
	dummystore "github.com/tutorke/darasa/storage/docstore/dummy"
	testutil "github.com/tutorke/darasa/tests"
)

var studentRepo student.Repository

func setup(t *testing.T) *commandLine {
	t.Helper()

	conf := testutil.NewConfig()
	conf.SecretKey = "secret"
	conf.Teacher.Email = "teacher@darasa.test"

	db, err := dummystore.Open()
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	studentRepo = dummystore.NewStudentRepository(db)

	// start CLI
	return &commandLine{
		students: student.NewService(studentRepo, &testutil.Mail{}, testutil.NewLogger(), conf),
		meetings: meeting.NewService(dummystore.NewMeetingRepository(db)),
		conf:     conf,
	}
}

type cliTest struct {
	name    string
	args    []string // without program name
	wantErr error
}

func runCases(t *testing.T, cli *commandLine, tests []cliTest) {
	t.Helper()
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_setLink(t *testing.T) {
	cli := setup(t)

	runCases(t, cli, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"setlink"}, wantErr: errHelp},
		{name: "missing url", args: []string{"setlink", "-session", "morning"}, wantErr: errHelp},
		{name: "bad session", args: []string{"setlink", "-session", "night", "-url", "https://zoom.us/j/1"}, wantErr: student.ErrInvalidSession},
		{name: "foreign host", args: []string{"setlink", "-session", "morning", "-url", "https://example.com/j/1"}, wantErr: meeting.ErrInvalidLink},
		{name: "set morning link", args: []string{"setlink", "-session", "morning", "-url", "https://zoom.us/j/1"}},
		{name: "print links", args: []string{"links"}},
	})

	links, err := cli.meetings.Links(context.Background())
	if err != nil {
		t.Fatalf("Links(): %v", err)
	}
	if links.Morning != "https://zoom.us/j/1" {
		t.Errorf("morning link = %q, want %q", links.Morning, "https://zoom.us/j/1")
	}
}

func Test_commandLine_blockUnblock(t *testing.T) {
	cli := setup(t)
	testutil.CreateStudent(t, studentRepo, student.SessionMorning, "+254712345678", "Brian Otieno", false)

	runCases(t, cli, []cliTest{
		{name: "block: no args", args: []string{"block"}, wantErr: errHelp},
		{name: "block: unknown phone", args: []string{"block", "-session", "morning", "-phone", "+254700000000", "-reason", "lol"}, wantErr: student.ErrNotFound},
		{name: "block", args: []string{"block", "-session", "morning", "-phone", "+254712345678", "-reason", "Receipt not verified"}},
	})

	std, err := studentRepo.GetStudent(context.Background(), student.SessionMorning, "+254712345678")
	if err != nil {
		t.Fatalf("GetStudent(): %v", err)
	}
	if !std.Blocked || std.BlockReason != "Receipt not verified" {
		t.Errorf("expected a blocked record, got %+v", std)
	}

	runCases(t, cli, []cliTest{
		{name: "unblock: no args", args: []string{"unblock"}, wantErr: errHelp},
		{name: "unblock", args: []string{"unblock", "-session", "morning", "-phone", "+254712345678"}},
	})

	std, err = studentRepo.GetStudent(context.Background(), student.SessionMorning, "+254712345678")
	if err != nil {
		t.Fatalf("GetStudent(): %v", err)
	}
	if std.Blocked {
		t.Error("expected the record to be unblocked")
	}
}

func Test_commandLine_roster(t *testing.T) {
	cli := setup(t)
	testutil.CreateStudent(t, studentRepo, student.SessionMorning, "+254700000001", "First Student", false)
	testutil.CreateStudent(t, studentRepo, student.SessionMorning, "+254700000002", "Second Student", true)

	runCases(t, cli, []cliTest{
		{name: "no session", args: []string{"roster"}, wantErr: errHelp},
		{name: "bad session", args: []string{"roster", "-session", "night"}, wantErr: student.ErrInvalidSession},
		{name: "morning roster", args: []string{"roster", "-session", "morning"}},
		{name: "empty roster", args: []string{"roster", "-session", "evening"}},
	})
}

func Test_commandLine_hashPassword(t *testing.T) {
	cli := setup(t)

	readPasswordFunc = func(fd int) ([]byte, error) { return []byte("Sup3rS3cret!"), nil }
	runCases(t, cli, []cliTest{
		{name: "hashpassword", args: []string{"hashpassword"}},
	})

	readPasswordFunc = func(fd int) ([]byte, error) { return nil, nil }
	runCases(t, cli, []cliTest{
		{name: "empty password", args: []string{"hashpassword"}, wantErr: errHelp},
	})
}

func Test_commandLine_genToken(t *testing.T) {
	cli := setup(t)

	runCases(t, cli, []cliTest{
		{name: "gentoken", args: []string{"gentoken"}},
	})
}
