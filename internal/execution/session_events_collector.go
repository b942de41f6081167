package execution

import (
	"errors"
	"strings"
	"sync"

	copilot "github.com/github/copilot-sdk/go"
)

var errSessionFailed = errors.New("session failed with unknown error")

// replyCollector accumulates the assistant's reply from Copilot session
// events. Register On with the session before sending the prompt.
type replyCollector struct {
	mu    sync.Mutex
	parts []string
	err   error

	done     chan struct{}
	doneOnce sync.Once
}

func newReplyCollector() *replyCollector {
	return &replyCollector{done: make(chan struct{})}
}

// On handles a single session event.
func (c *replyCollector) On(event copilot.SessionEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch event.Type {
	case copilot.AssistantMessage:
		if event.Data.Content != nil {
			c.parts = append(c.parts, *event.Data.Content)
		}
	case copilot.SessionError:
		c.err = errSessionFailed
		if event.Data.Message != nil && *event.Data.Message != "" {
			c.err = errors.New(*event.Data.Message)
		}
		c.doneOnce.Do(func() { close(c.done) })
	case copilot.SessionIdle:
		c.doneOnce.Do(func() { close(c.done) })
	}
}

// Reply joins every assistant message received so far.
func (c *replyCollector) Reply() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.Join(c.parts, "")
}

// Err returns the session error, if one was reported.
func (c *replyCollector) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Done is closed once the session goes idle or fails.
func (c *replyCollector) Done() <-chan struct{} { return c.done }
