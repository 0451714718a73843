package runner

import (
	"strings"

	copilot "github.com/github/copilot-sdk/go"
)

// answerCollector accumulates assistant message text from session events.
type answerCollector struct {
	parts    []string
	errorMsg string
}

// On is a callback, intended to be passed to [copilot.Session.On] to receive
// events in real-time.
func (c *answerCollector) On(event copilot.SessionEvent) {
	switch event.Type {
	case copilot.AssistantMessage, copilot.AssistantMessageDelta:
		if event.Data.Content != nil {
			c.parts = append(c.parts, *event.Data.Content)
		}
	case copilot.SessionError:
		if event.Data.Message != nil {
			c.errorMsg = *event.Data.Message
		} else {
			c.errorMsg = "session failed with unknown error"
		}
	}
}

// Text returns the concatenated assistant output.
func (c *answerCollector) Text() string {
	var b strings.Builder
	for _, p := range c.parts {
		b.WriteString(p)
	}
	return b.String()
}
