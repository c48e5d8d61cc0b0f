package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policyproof/internal/finding"
)

func TestPublishFansOutInOrder(t *testing.T) {
	b := New()
	var order []string
	b.Subscribe(func(Message) { order = append(order, "first") })
	b.Subscribe(func(Message) { order = append(order, "second") })

	b.Publish(ScrollToFinding{PageNumber: 3})

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestTypedDelivery(t *testing.T) {
	b := New()
	var scrolls []ScrollToFinding
	var updates []PolicyContextUpdate
	b.Subscribe(func(m Message) {
		switch m := m.(type) {
		case ScrollToFinding:
			scrolls = append(scrolls, m)
		case PolicyContextUpdate:
			updates = append(updates, m)
		}
	})

	b.Publish(ScrollToFinding{PageNumber: 2, Finding: finding.Finding{Title: "x"}})
	b.Publish(PolicyContextUpdate{ReferencedFrameworks: []string{"gdpr"}})

	require.Len(t, scrolls, 1)
	assert.Equal(t, 2, scrolls[0].PageNumber)
	require.Len(t, updates, 1)
	assert.Equal(t, []string{"gdpr"}, updates[0].ReferencedFrameworks)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	calls := 0
	unsub := b.Subscribe(func(Message) { calls++ })

	b.Publish(ScrollToFinding{PageNumber: 1})
	unsub()
	b.Publish(ScrollToFinding{PageNumber: 2})

	assert.Equal(t, 1, calls)

	// Second disposal is a no-op.
	unsub()
	b.Publish(ScrollToFinding{PageNumber: 3})
	assert.Equal(t, 1, calls)
}

func TestUnsubscribeDuringDispatch(t *testing.T) {
	b := New()
	var unsubSecond func()
	firstCalls, secondCalls := 0, 0
	b.Subscribe(func(Message) {
		firstCalls++
		unsubSecond()
	})
	unsubSecond = b.Subscribe(func(Message) { secondCalls++ })

	b.Publish(ScrollToFinding{PageNumber: 1})

	assert.Equal(t, 1, firstCalls)
	assert.Equal(t, 0, secondCalls, "handler removed mid-dispatch must not run")
}

func TestSubscribeDuringDispatchMissesCurrentMessage(t *testing.T) {
	b := New()
	lateCalls := 0
	b.Subscribe(func(Message) {
		b.Subscribe(func(Message) { lateCalls++ })
	})

	b.Publish(ScrollToFinding{PageNumber: 1})
	assert.Equal(t, 0, lateCalls)

	b.Publish(ScrollToFinding{PageNumber: 2})
	assert.Equal(t, 1, lateCalls)
}

func TestNoReplayForLateSubscriber(t *testing.T) {
	b := New()
	b.Publish(PolicyContextUpdate{})
	got := 0
	b.Subscribe(func(Message) { got++ })
	assert.Zero(t, got)
}
