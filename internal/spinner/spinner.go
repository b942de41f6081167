// Package spinner draws a one-line activity indicator while a slow
// strategy call is in flight.
package spinner

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

var frames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const interval = 80 * time.Millisecond

// Enabled reports whether w is a terminal. Spinners written to files or
// pipes only add noise.
func Enabled(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Start displays an animated spinner with the given message on w.
// Call the returned function to stop the spinner and clear the line; it is
// safe to call more than once.
func Start(w io.Writer, message string) (stop func()) {
	done := make(chan struct{})
	cleared := make(chan struct{})
	blank := "\r" + strings.Repeat(" ", runewidth.StringWidth(message)+2) + "\r"

	go func() {
		defer close(cleared)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for i := 0; ; i++ {
			select {
			case <-done:
				fmt.Fprint(w, blank) //nolint:errcheck
				return
			case <-ticker.C:
				fmt.Fprintf(w, "\r%s %s", frames[i%len(frames)], message) //nolint:errcheck
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
		<-cleared
	}
}
