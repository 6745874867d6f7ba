package main

import (
	"log"
	"os"

	"github.com/tutorke/darasa/core"
	"github.com/tutorke/darasa/core/meeting"
	"github.com/tutorke/darasa/core/student"
	emailsvc "github.com/tutorke/darasa/services/email"
	logsvc "github.com/tutorke/darasa/services/logger"
	"github.com/tutorke/darasa/storage/docstore"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	// set up store
	client, err := docstore.Open(conf)
	errAndDie(err)
	defer client.Close()

	svcLogger := logsvc.NewRollbarLogger(logger, conf)
	svcLogger.Enable(false) // CLI; local output only

	// start CLI
	cli := commandLine{
		students: student.NewService(
			docstore.NewStudentRepository(client, svcLogger),
			emailsvc.NewConsoleService(conf),
			svcLogger,
			conf,
		),
		meetings: meeting.NewService(docstore.NewMeetingRepository(client, svcLogger)),
		conf:     conf,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
