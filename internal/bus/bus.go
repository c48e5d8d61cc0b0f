// Package bus carries typed notifications between panels that must not hold
// references to each other. Publishing is synchronous: every handler
// subscribed at publish time runs before Publish returns. There is no
// buffering and no replay; a subscriber registered after a publish never sees
// that message.
package bus

import "policyproof/internal/finding"

// Message is implemented by every bus payload.
type Message interface {
	busMessage()
}

// ScrollToFinding asks the document panel to show a page and emphasize the
// finding's overlay.
type ScrollToFinding struct {
	PageNumber int
	Finding    finding.Finding
}

func (ScrollToFinding) busMessage() {}

// Article is one citation the assistant surfaced for the current conversation.
type Article struct {
	Title  string
	Source string
}

// PolicyContextUpdate replaces the policy-context panel contents wholesale.
type PolicyContextUpdate struct {
	ReferencedFrameworks []string
	RelevantArticles     []Article
}

func (PolicyContextUpdate) busMessage() {}

// Handler receives every published message; handlers filter by type.
type Handler func(Message)

// Bus fans messages out to subscribers. Not safe for concurrent use; all
// publishing and subscribing happens on the Bubble Tea update goroutine.
type Bus struct {
	handlers []*Handler
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{}
}

// Subscribe registers h and returns a disposer. Calling the disposer more
// than once is harmless, and unsubscribing from within a handler is safe:
// the slot is nilled rather than removed mid-dispatch.
func (b *Bus) Subscribe(h Handler) func() {
	slot := &h
	b.handlers = append(b.handlers, slot)
	return func() {
		for i, s := range b.handlers {
			if s == slot {
				b.handlers = append(b.handlers[:i], b.handlers[i+1:]...)
				*slot = nil
				return
			}
		}
	}
}

// Publish delivers msg to the handlers subscribed right now, in subscription
// order. Handlers added during dispatch do not receive msg.
func (b *Bus) Publish(msg Message) {
	snapshot := make([]*Handler, len(b.handlers))
	copy(snapshot, b.handlers)
	for _, slot := range snapshot {
		if h := *slot; h != nil {
			h(msg)
		}
	}
}
