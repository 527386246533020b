package core

import (
	"net/mail"
	"strings"
)

type (
	EmailMessage struct {
		To          []mail.Address
		Cc          []mail.Address
		Bcc         []mail.Address
		Subject     string
		TextContent string
		HTMLContent string
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

// NewEmailMessage builds a plain text message for the given recipients (blank addresses are skipped).
func NewEmailMessage(subject, body string, to ...string) *EmailMessage {
	msg := &EmailMessage{Subject: subject, TextContent: body}
	for _, addr := range to {
		if addr = strings.TrimSpace(addr); addr != "" {
			msg.To = append(msg.To, mail.Address{Address: addr})
		}
	}
	return msg
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }
