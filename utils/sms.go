package utils

import (
	"errors"
	"log"
	"os"
	"strings"
)

// SMSSender delivers a short text to a phone number. The production gateway
// is not integrated yet; the stub logs the message and can be forced to fail
// via SMS_FAIL for testing the error path.
type SMSSender interface {
	Send(phone, message string) error
}

type StubSMS struct{}

func NewStubSMS() *StubSMS { return &StubSMS{} }

func (s *StubSMS) Send(phone, message string) error {
	if strings.ToLower(os.Getenv("SMS_FAIL")) == "true" {
		return errors.New("sms provider unavailable")
	}
	log.Printf("[sms] to=%s body=%q", phone, message)
	return nil
}
