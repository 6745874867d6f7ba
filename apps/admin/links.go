package main

import (
	"context"
	"fmt"

	"github.com/tutorke/darasa/core/student"
)

func (cli *commandLine) setLink(session, rawURL string) error {
	return cli.meetings.SetLink(context.Background(), session, rawURL)
}

func (cli *commandLine) printLinks() error {
	links, err := cli.meetings.Links(context.Background())
	if err != nil {
		return err
	}
	for _, session := range student.Sessions {
		link := links.For(session)
		if link == "" {
			link = "(not set)"
		}
		fmt.Printf("%-8s %s\n", session, link)
	}
	return nil
}
