// Package notify delivers short user-facing messages such as the
// "Exam Submitted" toast.
package notify

import (
	"time"

	"github.com/rs/zerolog"
)

// Kind classifies a notification.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Notification is a single message as sent to a client.
type Notification struct {
	Title   string    `json:"title"`
	Message string    `json:"message"`
	Kind    Kind      `json:"kind"`
	At      time.Time `json:"at"`
}

// Notifier displays a notification to the user.
type Notifier interface {
	Notify(title, message string, kind Kind)
}

// Func adapts a plain function to Notifier.
type Func func(title, message string, kind Kind)

func (f Func) Notify(title, message string, kind Kind) { f(title, message, kind) }

// Discard drops every notification.
var Discard Notifier = Func(func(string, string, Kind) {})

// LogNotifier writes notifications to a zerolog logger. It is the fallback
// when no client is attached.
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With().Str("component", "notify").Logger()}
}

func (n *LogNotifier) Notify(title, message string, kind Kind) {
	ev := n.log.Info()
	if kind == KindError {
		ev = n.log.Warn()
	}
	ev.Str("title", title).Str("kind", string(kind)).Msg(message)
}
