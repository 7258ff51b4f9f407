package widget

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLoader(b *stubBackend, tag EmbedTag) *Loader {
	host := HostInfo{
		URL:      "https://shop.example.com/pricing?utm_source=newsletter",
		Referrer: "https://google.com/",
		Timezone: "Europe/Berlin",
	}
	return NewLoader(b.srv.URL, "https://widget.example.com", tag, host, LoaderOptions{
		SettleDelay: -1,
	})
}

func TestLoaderBootMissingWidgetID(t *testing.T) {
	b := newStubBackend(activeConfig())
	defer b.close()

	loader := newTestLoader(b, EmbedTag{})
	err := loader.Boot(context.Background())

	assert.ErrorIs(t, err, ErrMissingWidgetID)
	assert.False(t, loader.Rendered())
}

func TestLoaderBootConfigFailureIsTerminal(t *testing.T) {
	b := newStubBackend(activeConfig())
	defer b.close()
	b.configStatus = http.StatusInternalServerError

	loader := newTestLoader(b, EmbedTag{WidgetID: "w1"})
	err := loader.Boot(context.Background())

	assert.Error(t, err)
	assert.False(t, loader.Rendered())
	assert.Empty(t, loader.FrameURL())
}

func TestLoaderBootInactiveWidgetRendersNothing(t *testing.T) {
	config := activeConfig()
	config.IsActive = false
	b := newStubBackend(config)
	defer b.close()

	loader := newTestLoader(b, EmbedTag{WidgetID: "w1"})
	err := loader.Boot(context.Background())

	// Disabled is a clean outcome, not an error
	assert.NoError(t, err)
	assert.False(t, loader.Rendered())
}

func TestLoaderFrameURLCarriesCaptureParams(t *testing.T) {
	b := newStubBackend(activeConfig())
	defer b.close()

	loader := newTestLoader(b, EmbedTag{WidgetID: "w1"})
	require.NoError(t, loader.Boot(context.Background()))
	require.True(t, loader.Rendered())

	frameURL, err := url.Parse(loader.FrameURL())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(frameURL.Path, "/widget/w1"))

	query := frameURL.Query()
	assert.Equal(t, "https://google.com/", query.Get("ref"))
	assert.Equal(t, "https://shop.example.com/pricing?utm_source=newsletter", query.Get("loc"))
	assert.Equal(t, "Europe/Berlin", query.Get("tz"))
}

func TestLoaderFrameURLOmitsEmptyReferrer(t *testing.T) {
	b := newStubBackend(activeConfig())
	defer b.close()

	loader := NewLoader(b.srv.URL, "https://widget.example.com", EmbedTag{WidgetID: "w1"}, HostInfo{
		URL:      "https://shop.example.com/",
		Timezone: "Europe/Berlin",
	}, LoaderOptions{SettleDelay: -1})
	require.NoError(t, loader.Boot(context.Background()))

	frameURL, err := url.Parse(loader.FrameURL())
	require.NoError(t, err)
	_, hasRef := frameURL.Query()["ref"]
	assert.False(t, hasRef, "a direct visit sends no ref param at all")
}

func TestLoaderOpenRunsFocusHandoff(t *testing.T) {
	b := newStubBackend(activeConfig())
	defer b.close()

	var steps []string
	loader := NewLoader(b.srv.URL, "https://widget.example.com", EmbedTag{WidgetID: "w1"}, HostInfo{}, LoaderOptions{
		SettleDelay:       -1,
		FocusFrameElement: func() { steps = append(steps, "element") },
		FocusFrameWindow:  func() { steps = append(steps, "window") },
	})
	loader.Bus().Subscribe(func(msg FrameMessage) {
		steps = append(steps, "post:"+string(msg.Type))
	})
	require.NoError(t, loader.Boot(context.Background()))

	loader.Open()

	assert.True(t, loader.IsOpen())
	assert.Equal(t, []string{"element", "window", "post:WIDGET_FOCUS"}, steps)

	// Opening an already-open frame repeats nothing
	loader.Open()
	assert.Len(t, steps, 3)
}

func TestLoaderOpenBeforeRenderIsNoop(t *testing.T) {
	b := newStubBackend(activeConfig())
	defer b.close()
	b.configStatus = http.StatusInternalServerError

	loader := newTestLoader(b, EmbedTag{WidgetID: "w1"})
	loader.Boot(context.Background())

	loader.Open()
	assert.False(t, loader.IsOpen())
}

func TestLoaderToggle(t *testing.T) {
	b := newStubBackend(activeConfig())
	defer b.close()

	loader := newTestLoader(b, EmbedTag{WidgetID: "w1"})
	require.NoError(t, loader.Boot(context.Background()))

	loader.Toggle()
	assert.True(t, loader.IsOpen())
	loader.Toggle()
	assert.False(t, loader.IsOpen())
}
