// SPDX-License-Identifier: AGPL-3.0-only
package relay

import (
	"sync"

	"github.com/fluffyriot/bookshare/internal/models"
)

// MessageLog is the chat history shown for one room. Each inbound envelope
// adds exactly one entry.
type MessageLog struct {
	mu       sync.RWMutex
	messages []models.ChatMessage
}

func NewMessageLog() *MessageLog {
	return &MessageLog{}
}

// Seed replaces the log with history loaded from the backend.
func (l *MessageLog) Seed(history []models.ChatMessage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append([]models.ChatMessage(nil), history...)
}

func (l *MessageLog) Append(m models.ChatMessage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, m)
}

func (l *MessageLog) Messages() []models.ChatMessage {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]models.ChatMessage(nil), l.messages...)
}

func (l *MessageLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

// Handler returns a relay handler that appends each envelope's body.
func (l *MessageLog) Handler() Handler {
	return func(env models.ChatEnvelope) {
		l.Append(env.Body)
	}
}
