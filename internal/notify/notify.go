// Package notify is the terminal's replacement for the browser build's
// transient toasts: one-line, leveled messages aimed at the operator. Every
// notification is written through the structured logger and kept in a small
// in-memory feed so the session can re-display recent messages; nothing is
// persisted.
package notify

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"posterm/internal/logger"
)

// Level classifies a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is one message shown to the operator.
type Notification struct {
	Level   Level
	Message string
	At      time.Time
}

// Notifier is what the services depend on. Tests swap in a recording
// implementation.
type Notifier interface {
	Info(msg string)
	Success(msg string)
	Warning(msg string)
	Error(msg string)
}

// Hub is the default Notifier: log output plus a bounded feed of the most
// recent notifications, newest last.
type Hub struct {
	mu       sync.Mutex
	feed     []Notification
	capacity int
	log      zerolog.Logger

	// OnNotify, when set, is called for every notification after it is
	// recorded. The interactive session uses it to echo messages into the
	// rendered UI.
	OnNotify func(Notification)
}

// NewHub creates a Hub keeping up to capacity recent notifications.
func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = 50
	}
	return &Hub{
		capacity: capacity,
		log:      logger.WithComponent("notify"),
	}
}

func (h *Hub) push(level Level, msg string) {
	n := Notification{Level: level, Message: msg, At: time.Now()}

	h.mu.Lock()
	h.feed = append(h.feed, n)
	if len(h.feed) > h.capacity {
		h.feed = h.feed[len(h.feed)-h.capacity:]
	}
	callback := h.OnNotify
	h.mu.Unlock()

	switch level {
	case LevelError:
		h.log.Error().Msg(msg)
	case LevelWarning:
		h.log.Warn().Msg(msg)
	default:
		h.log.Info().Str("level", string(level)).Msg(msg)
	}

	if callback != nil {
		callback(n)
	}
}

// Info records an informational message.
func (h *Hub) Info(msg string) { h.push(LevelInfo, msg) }

// Success records a success message.
func (h *Hub) Success(msg string) { h.push(LevelSuccess, msg) }

// Warning records a warning.
func (h *Hub) Warning(msg string) { h.push(LevelWarning, msg) }

// Error records an error message.
func (h *Hub) Error(msg string) { h.push(LevelError, msg) }

// Recent returns up to n of the latest notifications, newest last.
func (h *Hub) Recent(n int) []Notification {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n <= 0 || n > len(h.feed) {
		n = len(h.feed)
	}
	out := make([]Notification, n)
	copy(out, h.feed[len(h.feed)-n:])
	return out
}
