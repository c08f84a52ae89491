package notifications

import (
	"context"
	"strings"
	"sync"
)

type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Mailer delivers a single message. Errors are returned to the caller, never
// swallowed.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// MemoryMailer keeps every message it is asked to send. An optional Fail hook
// lets callers simulate delivery errors.
type MemoryMailer struct {
	mu   sync.Mutex
	sent []Message
	Fail func(Message) error
}

func (m *MemoryMailer) Send(_ context.Context, msg Message) error {
	if m.Fail != nil {
		if err := m.Fail(msg); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *MemoryMailer) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.sent))
	copy(out, m.sent)
	return out
}

// To returns the messages addressed to recipient.
func (m *MemoryMailer) To(recipient string) []Message {
	var out []Message
	for _, msg := range m.Sent() {
		if strings.EqualFold(msg.To, recipient) {
			out = append(out, msg)
		}
	}
	return out
}
