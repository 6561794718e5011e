package utils

import (
	"errors"
	"log"
	"os"
	"strings"
)

// MailSender delivers transactional email (password resets). Stub only, same
// contract as SMSSender: delivery failure surfaces as a request-level error
// in the flow that asked for it.
type MailSender interface {
	Send(to, subject, body string) error
}

type StubMailer struct{}

func NewStubMailer() *StubMailer { return &StubMailer{} }

func (m *StubMailer) Send(to, subject, body string) error {
	if strings.ToLower(os.Getenv("MAIL_FAIL")) == "true" {
		return errors.New("mail provider unavailable")
	}
	log.Printf("[mail] to=%s subject=%q", to, subject)
	return nil
}
