package mailer

import "context"

// SimulatedProviderID is reported for test runs that never reach a provider.
const SimulatedProviderID = "simulated"

// Message is one outgoing summary email.
type Message struct {
	From    string
	To      []string
	CC      []string
	BCC     []string
	Subject string
	HTML    string
}

// Recipients returns every envelope address of the message.
func (m *Message) Recipients() []string {
	all := make([]string, 0, len(m.To)+len(m.CC)+len(m.BCC))
	all = append(all, m.To...)
	all = append(all, m.CC...)
	return append(all, m.BCC...)
}

// Sender delivers a message through one external provider.
type Sender interface {
	Name() string
	// Send returns the provider's identifier for the accepted message.
	Send(ctx context.Context, msg *Message) (string, error)
}
