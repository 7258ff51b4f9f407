package widget

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// View is the frame's current screen.
type View string

const (
	ViewLoading View = "loading"
	ViewActions View = "actions" // channel choice (AI chat vs WhatsApp)
	ViewIntake  View = "intake"  // name + contact form
	ViewChat    View = "chat"
)

// Focus targets the frame resolves a focus request against, based on its
// current view. An empty target means the request was a no-op.
const (
	FocusIntakeName = "intake.name"
	FocusComposer   = "composer"
)

var (
	// ErrIntakeInvalid is returned when the intake form is rejected locally,
	// before any network call.
	ErrIntakeInvalid = errors.New("intake requires a name and either email or phone")

	// ErrNotReady is returned for sends issued with no guest bound or
	// outside the chat view.
	ErrNotReady = errors.New("widget is not ready to send")
)

const defaultNoticeTTL = 3 * time.Second

// Lifecycle owns the embedded frame's session state: guest registration,
// lazy session creation, continuation, resumption from history, and the
// transition between "no session" and "active session". All UI-facing state
// lives here; callers render from the accessors.
type Lifecycle struct {
	transport *Transport
	store     IdentityStore
	frame     FrameParams
	userAgent string
	noticeTTL time.Duration

	mu              sync.Mutex
	config          *Config
	view            View
	guestID         string
	sessionID       string
	originHint      string
	messages        []Message
	inFlight        int
	history         []SessionSummary
	browsingHistory bool
	focusTarget     string
	notice          string
	noticeAt        time.Time

	// deliverMu serializes deliveries so that two rapid sends can never
	// race into two session-init calls: the second delivery waits here and
	// then sees the session id the first one captured.
	deliverMu sync.Mutex
}

// New builds a lifecycle manager for one widget load. userAgent and frame
// params come from the environment the loader constructed.
func New(transport *Transport, store IdentityStore, userAgent string, frame FrameParams) *Lifecycle {
	return &Lifecycle{
		transport:  transport,
		store:      store,
		frame:      frame,
		userAgent:  userAgent,
		noticeTTL:  defaultNoticeTTL,
		view:       ViewLoading,
		originHint: "auto-start",
	}
}

// Boot resolves the widget config and the stored identity, then picks the
// initial view. A returning guest lands in chat with NO session bound: a
// fresh load always starts a new conversation thread, and continuity is
// opt-in through the history browser.
func (lc *Lifecycle) Boot(ctx context.Context) {
	config, err := lc.transport.FetchConfig(ctx)

	lc.mu.Lock()
	defer lc.mu.Unlock()

	if err != nil {
		// Config failure inside the frame falls back to the intake view;
		// only the host-side loader treats it as terminal.
		slog.Error("Widget config load failed", "error", err, "widgetID", lc.transport.WidgetID)
		lc.view = ViewIntake
		return
	}
	lc.config = config

	if guestID, ok := lc.store.Get(lc.transport.WidgetID); ok {
		lc.guestID = guestID
		lc.sessionID = ""
		lc.messages = lc.seededMessages()
		lc.view = ViewChat
		return
	}

	if config.WhatsappEnabled {
		lc.view = ViewActions
	} else {
		lc.view = ViewIntake
	}
}

// ChooseDirectChat moves from the channel-choice view to the intake form.
func (lc *Lifecycle) ChooseDirectChat() {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	if lc.view == ViewActions {
		lc.view = ViewIntake
	}
}

// WhatsAppLink returns the alternative-channel URL, or "" when the widget
// has no WhatsApp number configured.
func (lc *Lifecycle) WhatsAppLink() string {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	if lc.config == nil || lc.config.WhatsappNumber == "" {
		return ""
	}
	return "https://wa.me/" + lc.config.WhatsappNumber + "?text=Hi%2C%20I%20would%20like%20to%20chat%20with%20you."
}

// SubmitIntake validates and submits the intake form. Validation failures
// stay local: they surface a transient notice and never touch the network.
// Success persists the guest identity and enters chat with no session.
func (lc *Lifecycle) SubmitIntake(ctx context.Context, name, email, phone string) error {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	phone = strings.TrimSpace(phone)

	if name == "" || (email == "" && phone == "") {
		lc.mu.Lock()
		lc.setNoticeLocked("Please provide name and either email or phone.")
		lc.mu.Unlock()
		return ErrIntakeInvalid
	}

	guestID, err := lc.transport.StartGuest(ctx, name, email, phone)
	if err != nil {
		lc.mu.Lock()
		lc.setNoticeLocked("Error starting chat. Please try again.")
		lc.mu.Unlock()
		return err
	}

	if err := lc.store.Set(lc.transport.WidgetID, guestID); err != nil {
		// Identity persistence failure costs re-intake on the next load,
		// nothing more
		slog.Warn("Failed to persist guest identity", "error", err, "widgetID", lc.transport.WidgetID)
	}

	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.guestID = guestID
	lc.sessionID = ""
	lc.messages = lc.seededMessages()
	lc.view = ViewChat
	lc.focusTarget = FocusComposer
	return nil
}

// Send delivers a guest message. With no session bound it optimistically
// appends the message, creates the session with the captured context, and
// swaps in the server-confirmed pair; with a session bound it hits the
// continuation endpoint with the text only. On failure the optimistic
// message stays visible so the guest's typed content is never lost.
func (lc *Lifecycle) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)

	lc.mu.Lock()
	if text == "" {
		lc.mu.Unlock()
		return nil
	}
	if lc.guestID == "" || lc.view != ViewChat {
		lc.mu.Unlock()
		return ErrNotReady
	}
	guestID := lc.guestID
	temp := Message{
		ID:        "temp-" + uuid.New().String(),
		Sender:    SenderGuest,
		Text:      text,
		CreatedAt: time.Now(),
	}
	lc.messages = append(lc.messages, temp)
	lc.inFlight++
	lc.mu.Unlock()

	// Serialize: a send racing a pending session-init queues here instead
	// of opening a second session.
	lc.deliverMu.Lock()
	defer lc.deliverMu.Unlock()

	lc.mu.Lock()
	sessionID := lc.sessionID
	origin := lc.originHint
	lc.mu.Unlock()

	var pair *ChatResponse
	var err error
	if sessionID == "" {
		captured := CaptureContext(lc.userAgent, lc.frame)
		pair, err = lc.transport.InitSession(ctx, guestID, text, origin, captured)
	} else {
		pair, err = lc.transport.ContinueSession(ctx, sessionID, text)
	}

	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.inFlight--

	if err != nil {
		slog.Error("Send failed", "error", err, "widgetID", lc.transport.WidgetID)
		lc.setNoticeLocked("Failed to send message. Please try again.")
		return err
	}

	if pair.Message.SessionID != "" {
		lc.sessionID = pair.Message.SessionID
	}

	// Replace-by-correlation-id: drop the temporary message, append the
	// confirmed pair atomically.
	kept := make([]Message, 0, len(lc.messages)+1)
	for _, msg := range lc.messages {
		if msg.ID != temp.ID {
			kept = append(kept, msg)
		}
	}
	lc.messages = append(kept, pair.Message, pair.Response)
	lc.focusTarget = FocusComposer
	return nil
}

// NewChat detaches from the bound session without closing the widget: it
// clears the session id, reseeds the configured initial AI message, and
// leaves history browsing. The next send opens a manually started session.
func (lc *Lifecycle) NewChat() {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.messages = lc.seededMessages()
	lc.sessionID = ""
	lc.browsingHistory = false
	lc.originHint = "manual"
	lc.focusTarget = FocusComposer
}

// BrowseHistory fetches the guest's prior sessions and enters the history
// view. A fetch failure shows as an empty list rather than an error; the
// failure is still logged.
func (lc *Lifecycle) BrowseHistory(ctx context.Context) {
	lc.mu.Lock()
	guestID := lc.guestID
	lc.mu.Unlock()
	if guestID == "" {
		return
	}

	sessions, err := lc.transport.ListSessions(ctx, guestID)
	if err != nil {
		slog.Error("History fetch failed", "error", err, "guestID", guestID)
		sessions = nil
	}

	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.history = sessions
	lc.browsingHistory = true
}

// CloseHistory returns to the chat view without resuming anything.
func (lc *Lifecycle) CloseHistory() {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.browsingHistory = false
}

// Resume loads a prior session's transcript and binds its id, so the next
// send continues that thread. Further session creations from this state are
// tagged as resumed.
func (lc *Lifecycle) Resume(ctx context.Context, sessionID string) error {
	messages, err := lc.transport.SessionMessages(ctx, sessionID)
	if err != nil {
		slog.Error("Session resume failed", "error", err, "sessionID", sessionID)
		return err
	}

	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.messages = messages
	lc.sessionID = sessionID
	lc.browsingHistory = false
	lc.originHint = "resumed"
	return nil
}

// HandleFrameMessage services the cross-frame channel. A focus request
// targets the input relevant to the current view; in any other view it is
// a no-op. Safe to receive at any time, any number of times.
func (lc *Lifecycle) HandleFrameMessage(msg FrameMessage) {
	if msg.Type != FrameMessageFocus {
		return
	}

	lc.mu.Lock()
	defer lc.mu.Unlock()
	switch {
	case lc.view == ViewIntake:
		lc.focusTarget = FocusIntakeName
	case lc.view == ViewChat && !lc.browsingHistory:
		lc.focusTarget = FocusComposer
	}
}

// seededMessages returns the fresh-conversation starting list: the
// configured initial AI message, or nothing. Callers hold lc.mu.
func (lc *Lifecycle) seededMessages() []Message {
	if lc.config == nil || strings.TrimSpace(lc.config.InitialAIMessage) == "" {
		return []Message{}
	}
	return []Message{{
		ID:        "init-" + uuid.New().String(),
		Sender:    SenderAI,
		Text:      lc.config.InitialAIMessage,
		CreatedAt: time.Now(),
	}}
}

func (lc *Lifecycle) setNoticeLocked(text string) {
	lc.notice = text
	lc.noticeAt = time.Now()
}

// View returns the current screen.
func (lc *Lifecycle) View() View {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.view
}

// Config returns the loaded widget configuration, or nil before Boot or
// after a failed config fetch.
func (lc *Lifecycle) Config() *Config {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.config
}

// GuestID returns the bound guest identity, or "".
func (lc *Lifecycle) GuestID() string {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.guestID
}

// SessionID returns the bound session id, or "" while no session exists.
func (lc *Lifecycle) SessionID() string {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.sessionID
}

// Messages returns a copy of the current transcript.
func (lc *Lifecycle) Messages() []Message {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	out := make([]Message, len(lc.messages))
	copy(out, lc.messages)
	return out
}

// Sending reports whether any delivery is in flight, including sends
// queued behind a pending session creation; the composer is disabled while
// true.
func (lc *Lifecycle) Sending() bool {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.inFlight > 0
}

// History returns the fetched session summaries.
func (lc *Lifecycle) History() []SessionSummary {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	out := make([]SessionSummary, len(lc.history))
	copy(out, lc.history)
	return out
}

// BrowsingHistory reports whether the history list is showing.
func (lc *Lifecycle) BrowsingHistory() bool {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.browsingHistory
}

// FocusTarget returns the input the last focus request resolved to.
func (lc *Lifecycle) FocusTarget() string {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.focusTarget
}

// Notice returns the current transient error text; it auto-dismisses after
// the notice TTL.
func (lc *Lifecycle) Notice() string {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	if lc.notice == "" || time.Since(lc.noticeAt) > lc.noticeTTL {
		return ""
	}
	return lc.notice
}
