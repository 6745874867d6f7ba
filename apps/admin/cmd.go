package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/tutorke/darasa/core"
	"github.com/tutorke/darasa/core/meeting"
	"github.com/tutorke/darasa/core/student"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	students *student.Service
	meetings *meeting.Service
	conf     *core.Config
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  hashpassword                                       - prompt for the teacher password and print its hash")
	fmt.Println("  gentoken                                           - print a signed dashboard token")
	fmt.Println("  setlink -session SESSION -url URL                  - set a session's class meeting link")
	fmt.Println("  links                                              - print the class meeting links")
	fmt.Println("  roster -session SESSION                            - print a session's registrations")
	fmt.Println("  block -session SESSION -phone PHONE -reason REASON - block a registration")
	fmt.Println("  unblock -session SESSION -phone PHONE              - unblock a registration")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	setLinkCmd := flag.NewFlagSet("setlink", flag.ExitOnError)
	setLinkSession := setLinkCmd.String("session", "", "The class session: morning|evening.")
	setLinkURL := setLinkCmd.String("url", "", "The meeting URL students get redirected to.")

	rosterCmd := flag.NewFlagSet("roster", flag.ExitOnError)
	rosterSession := rosterCmd.String("session", "", "The class session: morning|evening.")

	blockCmd := flag.NewFlagSet("block", flag.ExitOnError)
	blockSession := blockCmd.String("session", "", "The class session: morning|evening.")
	blockPhone := blockCmd.String("phone", "", "The registered parent phone number.")
	blockReason := blockCmd.String("reason", "", "The reason shown to the student.")

	unblockCmd := flag.NewFlagSet("unblock", flag.ExitOnError)
	unblockSession := unblockCmd.String("session", "", "The class session: morning|evening.")
	unblockPhone := unblockCmd.String("phone", "", "The registered parent phone number.")

	switch args[1] {
	case "hashpassword":
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			cli.printUsage()
			return errHelp
		}
		return cli.hashPassword(string(pwd))
	case "gentoken":
		return cli.genToken()
	case "setlink":
		if err := setLinkCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *setLinkSession == "" || *setLinkURL == "" {
			setLinkCmd.Usage()
			return errHelp
		}
		return cli.setLink(*setLinkSession, *setLinkURL)
	case "links":
		return cli.printLinks()
	case "roster":
		if err := rosterCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *rosterSession == "" {
			rosterCmd.Usage()
			return errHelp
		}
		return cli.printRoster(*rosterSession)
	case "block":
		if err := blockCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *blockSession == "" || *blockPhone == "" || *blockReason == "" {
			blockCmd.Usage()
			return errHelp
		}
		return cli.block(*blockSession, *blockPhone, *blockReason)
	case "unblock":
		if err := unblockCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *unblockSession == "" || *unblockPhone == "" {
			unblockCmd.Usage()
			return errHelp
		}
		return cli.unblock(*unblockSession, *unblockPhone)
	default:
		cli.printUsage()
		return errHelp
	}
}
