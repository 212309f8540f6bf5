package client

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Prompter asks for input line by line.
type Prompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// NewPrompter reads answers from in and writes questions to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{scanner: bufio.NewScanner(in), out: out}
}

// Line prints label and returns the next input line without its newline.
// It returns an empty string once input is exhausted.
func (p *Prompter) Line(label string) string {
	fmt.Fprint(p.out, label)
	if !p.scanner.Scan() {
		return ""
	}
	return strings.TrimRight(p.scanner.Text(), "\r")
}

// Credentials asks for a username and a password.
func (p *Prompter) Credentials() (username, password string) {
	username = strings.TrimSpace(p.Line("Username: "))
	password = p.Line("Password: ")
	return username, password
}

// NewAccount asks for a username, a password and its confirmation.
func (p *Prompter) NewAccount() (username, password, confirm string) {
	username = strings.TrimSpace(p.Line("New username: "))
	password = p.Line("New password: ")
	confirm = p.Line("Repeat password: ")
	return username, password, confirm
}
