// Package transport defines the reply-delivery edge: the engine hands
// outbound text to a pre-existing send API and gets back an optional
// correlation token. Concrete gateways (LINE, WhatsApp, web chat) live
// outside this repository; the Memory implementation here backs tests and
// local runs.
package transport

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Transport delivers the bot's replies to the end-user channel.
type Transport interface {
	// Send delivers text to the conversation identified by replyHandle,
	// with optional quick-reply options. Returns the gateway's correlation
	// token when it has one.
	Send(ctx context.Context, replyHandle, text string, quickReplies []string) (string, error)

	// ShowTyping surfaces a "processing" indicator on channels that
	// support one. Best-effort; errors are for logging only.
	ShowTyping(ctx context.Context, replyHandle string) error
}

// SentMessage is one delivery recorded by the Memory transport.
type SentMessage struct {
	ReplyHandle      string
	Text             string
	QuickReplies     []string
	CorrelationToken string
}

// Memory is an in-process transport that records every send. Used by tests
// and the local dry-run mode.
type Memory struct {
	mu     sync.Mutex
	sent   []SentMessage
	typing int
}

// NewMemory creates an empty recording transport.
func NewMemory() *Memory {
	return &Memory{}
}

// Send records the message and returns a fresh correlation token.
func (m *Memory) Send(_ context.Context, replyHandle, text string, quickReplies []string) (string, error) {
	token := uuid.NewString()
	m.mu.Lock()
	m.sent = append(m.sent, SentMessage{
		ReplyHandle:      replyHandle,
		Text:             text,
		QuickReplies:     quickReplies,
		CorrelationToken: token,
	})
	m.mu.Unlock()
	return token, nil
}

// ShowTyping counts indicator requests.
func (m *Memory) ShowTyping(context.Context, string) error {
	m.mu.Lock()
	m.typing++
	m.mu.Unlock()
	return nil
}

// Sent returns a copy of everything delivered so far.
func (m *Memory) Sent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

// TypingCount returns how many typing indicators were requested.
func (m *Memory) TypingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.typing
}
