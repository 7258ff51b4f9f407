package widget

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureContextUserAgents(t *testing.T) {
	tests := []struct {
		name      string
		userAgent string
		device    string
		browser   string
		os        string
	}{
		{
			name:      "windows chrome",
			userAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
			device:    "desktop",
			browser:   "Chrome",
			os:        "Windows",
		},
		{
			name:      "mac safari",
			userAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
			device:    "desktop",
			browser:   "Safari",
			os:        "macOS",
		},
		{
			name:      "android chrome",
			userAgent: "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Mobile Safari/537.36",
			device:    "mobile",
			browser:   "Chrome",
			os:        "Android",
		},
		{
			name:      "iphone safari",
			userAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
			device:    "mobile",
			browser:   "Safari",
			os:        "iOS",
		},
		{
			name:      "linux firefox",
			userAgent: "Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0",
			device:    "desktop",
			browser:   "Firefox",
			os:        "Unknown",
		},
		{
			name:      "empty agent",
			userAgent: "",
			device:    "desktop",
			browser:   "Unknown",
			os:        "Unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := CaptureContext(tt.userAgent, FrameParams{})
			assert.Equal(t, tt.device, ctx.DeviceType)
			assert.Equal(t, tt.browser, ctx.Browser)
			assert.Equal(t, tt.os, ctx.OS)
		})
	}
}

func TestCaptureContextUTMs(t *testing.T) {
	params := FrameParams{
		Referrer: "https://google.com/",
		HostURL:  "https://shop.example.com/pricing?utm_source=newsletter&utm_medium=email&utm_campaign=spring",
		Timezone: "Europe/Berlin",
	}

	ctx := CaptureContext("", params)

	assert.Equal(t, "newsletter", ctx.UTMSource)
	assert.Equal(t, "email", ctx.UTMMedium)
	assert.Equal(t, "spring", ctx.UTMCampaign)
	assert.Equal(t, "https://google.com/", ctx.Referrer)
	assert.Equal(t, "Europe/Berlin", ctx.Timezone)
}

func TestCaptureContextOmitsAbsentFields(t *testing.T) {
	ctx := CaptureContext("", FrameParams{HostURL: "https://shop.example.com/"})

	data, err := json.Marshal(ctx)
	require.NoError(t, err)

	var wire map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &wire))

	// Blank values never reach the wire as empty strings
	_, hasSource := wire["utm_source"]
	_, hasReferrer := wire["referrer"]
	_, hasTimezone := wire["timezone"]
	assert.False(t, hasSource)
	assert.False(t, hasReferrer)
	assert.False(t, hasTimezone)
	assert.Equal(t, "desktop", wire["device_type"])
}

func TestCaptureContextBadHostURL(t *testing.T) {
	ctx := CaptureContext("", FrameParams{HostURL: "://not-a-url"})

	assert.Empty(t, ctx.UTMSource)
	assert.Empty(t, ctx.UTMMedium)
	assert.Empty(t, ctx.UTMCampaign)
}
