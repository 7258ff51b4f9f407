package widget

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrameBusDeliversToAllListeners(t *testing.T) {
	bus := NewFrameBus()

	var first, second []FrameMessageType
	bus.Subscribe(func(msg FrameMessage) { first = append(first, msg.Type) })
	bus.Subscribe(func(msg FrameMessage) { second = append(second, msg.Type) })

	bus.Post(FrameMessage{Type: FrameMessageFocus})
	bus.Post(FrameMessage{Type: FrameMessageFocus})

	assert.Equal(t, []FrameMessageType{FrameMessageFocus, FrameMessageFocus}, first)
	assert.Equal(t, []FrameMessageType{FrameMessageFocus, FrameMessageFocus}, second)
}

func TestFrameBusPostWithoutListeners(t *testing.T) {
	bus := NewFrameBus()

	// Fire-and-forget: an unhandled message is dropped, not an error
	assert.NotPanics(t, func() {
		bus.Post(FrameMessage{Type: FrameMessageFocus})
	})
}
