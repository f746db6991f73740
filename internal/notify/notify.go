// Package notify delivers user-facing toasts.
//
// Effects report mutation failures and confirmations through a Notifier. The
// CLI prints them through slog; tests and the scenario harness record them.
package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Level is the severity of a toast.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Toast is one notification.
type Toast struct {
	Level   Level  `json:"level" yaml:"level"`
	Message string `json:"message" yaml:"message"`
}

// Notifier shows toasts. Implementations must be safe for concurrent use.
type Notifier interface {
	Notify(ctx context.Context, t Toast)
}

// Log writes toasts to a slog logger.
type Log struct {
	logger *slog.Logger
}

// NewLog returns a Notifier logging to l, or to slog.Default() when l is nil.
func NewLog(l *slog.Logger) *Log {
	return &Log{logger: l}
}

func (n *Log) Notify(ctx context.Context, t Toast) {
	logger := n.logger
	if logger == nil {
		logger = slog.Default()
	}
	level := slog.LevelInfo
	switch t.Level {
	case LevelWarning:
		level = slog.LevelWarn
	case LevelError:
		level = slog.LevelError
	}
	logger.Log(ctx, level, t.Message, "toast", string(t.Level))
}

// Recorder keeps every toast in memory.
type Recorder struct {
	mu     sync.Mutex
	toasts []Toast
}

func (r *Recorder) Notify(_ context.Context, t Toast) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, t)
}

// Toasts returns a copy of the recorded toasts in arrival order.
func (r *Recorder) Toasts() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Toast, len(r.toasts))
	copy(out, r.toasts)
	return out
}

// Reset forgets every recorded toast.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = nil
}

// Discard drops every toast.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Notify(context.Context, Toast) {}
