package app

import (
	"compliance_reminders/internal/domain/reminder"
)

// Envelope is the visible/blind arrangement of one message's recipients.
type Envelope struct {
	To  []string
	CC  []string
	BCC []string
}

// BuildEnvelope places recipients according to the delivery mode:
// bcc sends to the sender and blind-copies everyone, cc addresses the first
// recipient and copies the rest, to addresses everyone directly.
func BuildEnvelope(mode reminder.DeliveryMode, recipients []string, sender string) Envelope {
	if len(recipients) == 0 {
		return Envelope{}
	}
	rcpts := append([]string(nil), recipients...)

	switch mode {
	case reminder.DeliveryTo:
		return Envelope{To: rcpts}
	case reminder.DeliveryCC:
		env := Envelope{To: rcpts[:1]}
		if len(rcpts) > 1 {
			env.CC = rcpts[1:]
		}
		return env
	default:
		return Envelope{To: []string{sender}, BCC: rcpts}
	}
}
