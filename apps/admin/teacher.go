package main

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	echoapi "github.com/tutorke/darasa/apps/api/echo"
)

// hashPassword prints the bcrypt hash to configure as the teacher's password.
func (cli *commandLine) hashPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	fmt.Println(string(hash))
	return nil
}

// genToken prints a signed dashboard token for the configured teacher.
func (cli *commandLine) genToken() error {
	token, err := echoapi.GenerateToken(cli.conf, echoapi.GetTeacherClaims(cli.conf))
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
