package notify

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	var r Recorder
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Notify(ctx, Toast{Level: LevelError, Message: "failed"})
		}()
	}
	wg.Wait()
	assert.Len(t, r.Toasts(), 10)

	got := r.Toasts()
	got[0].Message = "mutated"
	assert.Equal(t, "failed", r.Toasts()[0].Message, "Toasts returns a copy")

	r.Reset()
	assert.Empty(t, r.Toasts())
}

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	n := NewLog(slog.New(slog.NewTextHandler(&buf, nil)))

	n.Notify(context.Background(), Toast{Level: LevelError, Message: "could not delete user"})
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), `msg="could not delete user"`)
	assert.Contains(t, buf.String(), "toast=error")

	buf.Reset()
	n.Notify(context.Background(), Toast{Level: LevelSuccess, Message: "saved"})
	assert.Contains(t, buf.String(), "level=INFO")
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() {
		Discard.Notify(context.Background(), Toast{Message: "x"})
	})
}
