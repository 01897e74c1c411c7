package spinner

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// syncWriter guards the buffer against the spinner goroutine.
type syncWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func (w *syncWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func TestSpinnerDrawsAndClears(t *testing.T) {
	w := &syncWriter{}

	stop := Start(w, "Evaluating Acme")
	time.Sleep(3 * frameInterval)
	stop()

	out := w.String()
	assert.Contains(t, out, "Evaluating Acme")

	// the final write blanks the line and returns the cursor
	assert.True(t, strings.HasSuffix(out, "\r"), "line must end cleared: %q", out)
	assert.Contains(t, out, strings.Repeat(" ", len("Evaluating Acme")+2))
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	w := &syncWriter{}

	stop := Start(w, "working")
	stop()
	assert.NotPanics(t, func() { stop() })
}
