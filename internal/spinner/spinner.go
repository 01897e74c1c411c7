// Package spinner renders a single-line activity indicator while a vendor
// evaluation is in flight on an interactive terminal.
package spinner

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
)

const frameInterval = 100 * time.Millisecond

var frames = []string{"⠷", "⠯", "⠟", "⠻", "⠽", "⠾"}

// Start animates a spinner with the given message on w. The returned stop
// function clears the line and blocks until the spinner goroutine exits; it
// is safe to call more than once.
func Start(w io.Writer, message string) (stop func()) {
	done := make(chan struct{})
	finished := make(chan struct{})
	var once sync.Once

	// wide runes in vendor names need their display width cleared, not
	// their byte length
	clearWidth := runewidth.StringWidth(message) + 2

	go func() {
		defer close(finished)

		ticker := time.NewTicker(frameInterval)
		defer ticker.Stop()

		for frame := 0; ; frame++ {
			select {
			case <-done:
				fmt.Fprintf(w, "\r%s\r", strings.Repeat(" ", clearWidth)) //nolint:errcheck
				return
			case <-ticker.C:
				fmt.Fprintf(w, "\r%s %s", frames[frame%len(frames)], message) //nolint:errcheck
			}
		}
	}()

	return func() {
		once.Do(func() { close(done) })
		<-finished
	}
}
