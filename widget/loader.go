package widget

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// EmbedTag models the single script tag a business drops on its site: the
// only input is the widget identifier data attribute.
type EmbedTag struct {
	WidgetID string
}

// HostInfo is what the loader reads from the host page at frame
// construction time. These values are passed into the frame via its URL and
// never re-read later.
type HostInfo struct {
	URL      string
	Referrer string
	Timezone string
}

// ErrMissingWidgetID means the embed tag carries no widget identifier; the
// loader logs and renders nothing.
var ErrMissingWidgetID = errors.New("embed tag has no widget id")

const defaultSettleDelay = 200 * time.Millisecond

// LoaderOptions tune a Loader. Zero values give production behavior.
type LoaderOptions struct {
	HTTPClient  *http.Client
	SettleDelay time.Duration // delay before the focus handoff; <0 fires synchronously

	// Host-side focus steps of the handoff. The frame cannot reliably take
	// focus on its own when revealed, so the loader also focuses the frame
	// element and its window before posting the focus message.
	FocusFrameElement func()
	FocusFrameWindow  func()
}

// Loader is the host-page side of the widget: it resolves the embed tag,
// fetches configuration, decides whether a launcher exists at all, builds
// the frame URL with the capture parameters, and owns the open/closed
// state plus the focus handoff. A loader failure is always silent toward
// the host page; the worst outcome is that no widget appears.
type Loader struct {
	transport         *Transport
	widgetBaseURL     string
	host              HostInfo
	bus               *FrameBus
	settleDelay       time.Duration
	focusFrameElement func()
	focusFrameWindow  func()

	mu       sync.Mutex
	config   *Config
	rendered bool
	open     bool
	frameURL string
}

// NewLoader builds a loader for one host page load.
func NewLoader(apiBaseURL, widgetBaseURL string, tag EmbedTag, host HostInfo, opts LoaderOptions) *Loader {
	settle := opts.SettleDelay
	if settle == 0 {
		settle = defaultSettleDelay
	}
	return &Loader{
		transport:         NewTransport(apiBaseURL, tag.WidgetID, opts.HTTPClient),
		widgetBaseURL:     widgetBaseURL,
		host:              host,
		bus:               NewFrameBus(),
		settleDelay:       settle,
		focusFrameElement: opts.FocusFrameElement,
		focusFrameWindow:  opts.FocusFrameWindow,
	}
}

// Boot resolves the embed tag and the widget config. Any failure is
// terminal for this page load: no retry, no launcher, no error surfaced to
// the host page. An inactive widget is terminal but not an error.
func (l *Loader) Boot(ctx context.Context) error {
	if l.transport.WidgetID == "" {
		slog.Error("Widget loader: missing widget id on embed tag")
		return ErrMissingWidgetID
	}

	config, err := l.transport.FetchConfig(ctx)
	if err != nil {
		slog.Error("Widget loader: config fetch failed", "error", err, "widgetID", l.transport.WidgetID)
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.config = config

	if !config.IsActive {
		slog.Info("Widget is currently disabled", "widgetID", l.transport.WidgetID)
		return nil
	}

	l.frameURL = l.buildFrameURL()
	l.rendered = true
	return nil
}

// buildFrameURL appends the capture parameters to the chat application URL.
// Callers hold l.mu.
func (l *Loader) buildFrameURL() string {
	params := url.Values{}
	if l.host.Referrer != "" {
		params.Set("ref", l.host.Referrer)
	}
	params.Set("loc", l.host.URL)
	params.Set("tz", l.host.Timezone)
	return l.widgetBaseURL + "/widget/" + url.PathEscape(l.transport.WidgetID) + "?" + params.Encode()
}

// Rendered reports whether a launcher exists for this page load.
func (l *Loader) Rendered() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rendered
}

// FrameURL returns the frame URL built at construction time, or "" when
// nothing rendered.
func (l *Loader) FrameURL() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.frameURL
}

// Bus returns the host/frame message channel so the frame side can
// subscribe.
func (l *Loader) Bus() *FrameBus {
	return l.bus
}

// IsOpen reports whether the frame is currently shown.
func (l *Loader) IsOpen() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.open
}

// Open reveals the frame and runs the focus handoff after the settle
// delay: focus the frame element, focus its window, then post the typed
// focus message. All three are fire-and-forget.
func (l *Loader) Open() {
	l.mu.Lock()
	if !l.rendered || l.open {
		l.mu.Unlock()
		return
	}
	l.open = true
	l.mu.Unlock()

	if l.settleDelay < 0 {
		l.focusHandoff()
		return
	}
	time.AfterFunc(l.settleDelay, l.focusHandoff)
}

func (l *Loader) focusHandoff() {
	if l.focusFrameElement != nil {
		l.focusFrameElement()
	}
	if l.focusFrameWindow != nil {
		l.focusFrameWindow()
	}
	l.bus.Post(FrameMessage{Type: FrameMessageFocus})
}

// Close hides the frame. The container is never torn down; only visibility
// changes.
func (l *Loader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.open = false
}

// Toggle flips the frame between open and closed.
func (l *Loader) Toggle() {
	l.mu.Lock()
	open := l.open
	l.mu.Unlock()
	if open {
		l.Close()
	} else {
		l.Open()
	}
}
