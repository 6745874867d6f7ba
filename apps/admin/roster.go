package main

import (
	"context"
	"fmt"
	"time"
)

func (cli *commandLine) printRoster(session string) error {
	roster, err := cli.students.Query(context.Background(), session)
	if err != nil {
		return err
	}
	for _, std := range roster {
		mark := " "
		if std.Blocked {
			mark = "B"
		}
		fmt.Printf("%s  %-16s %-30s %-10s registered %s\n",
			mark, std.ParentPhone, std.StudentName, std.Class, std.RegisteredAt.Format(time.RFC3339))
	}
	fmt.Printf("%d registration(s)\n", len(roster))
	return nil
}

func (cli *commandLine) block(session, phoneNum, reason string) error {
	return cli.students.Block(context.Background(), session, phoneNum, reason)
}

func (cli *commandLine) unblock(session, phoneNum string) error {
	return cli.students.Unblock(context.Background(), session, phoneNum)
}
