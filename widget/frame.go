package widget

import "sync"

// FrameMessageType tags messages crossing the host/frame boundary. The
// channel is a tagged union with a single defined variant today; new
// variants can be added without breaking existing listeners, which must
// ignore types they do not know.
type FrameMessageType string

// FrameMessageFocus asks the frame to focus whatever input its current view
// considers relevant. It carries no payload and expects no response.
const FrameMessageFocus FrameMessageType = "WIDGET_FOCUS"

// FrameMessage is one message posted across the host/frame boundary.
type FrameMessage struct {
	Type FrameMessageType `json:"type"`
}

// FrameBus is the message channel between the host-side loader and the
// embedded frame. Posting is fire-and-forget, idempotent, and safe at any
// time: a message nobody handles is simply dropped.
type FrameBus struct {
	mu        sync.RWMutex
	listeners []func(FrameMessage)
}

func NewFrameBus() *FrameBus {
	return &FrameBus{}
}

// Subscribe registers a listener for all frame messages.
func (b *FrameBus) Subscribe(fn func(FrameMessage)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, fn)
}

// Post delivers a message to every listener.
func (b *FrameBus) Post(msg FrameMessage) {
	b.mu.RLock()
	listeners := make([]func(FrameMessage), len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.RUnlock()

	for _, fn := range listeners {
		fn(msg)
	}
}
