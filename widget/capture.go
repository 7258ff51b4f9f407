package widget

import (
	"net/url"
	"regexp"
	"strings"
)

// FrameParams are the values the loader appended to the frame URL at
// construction time. The frame reads these instead of its own environment:
// its own referrer would be the widget application origin, not the site the
// visitor is actually on.
type FrameParams struct {
	Referrer string // ref: the host page's document referrer
	HostURL  string // loc: the full URL of the embedding page
	Timezone string // tz: IANA timezone name
}

// Context is the one-time snapshot attached to a session-creation request.
// Blank fields are omitted on the wire, never sent as empty strings.
type Context struct {
	DeviceType  string `json:"device_type,omitempty"`
	Browser     string `json:"browser,omitempty"`
	OS          string `json:"os,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
	Referrer    string `json:"referrer,omitempty"`
	UTMSource   string `json:"utm_source,omitempty"`
	UTMMedium   string `json:"utm_medium,omitempty"`
	UTMCampaign string `json:"utm_campaign,omitempty"`
}

var mobilePattern = regexp.MustCompile(`(?i)Mobi|Android`)

// CaptureContext derives the session context from the user agent and the
// loader-passed frame params. It runs exactly once, when the first message
// of a fresh session is sent, not at page load.
func CaptureContext(userAgent string, params FrameParams) Context {
	ctx := Context{
		DeviceType: "desktop",
		Browser:    detectBrowser(userAgent),
		OS:         detectOS(userAgent),
		Timezone:   params.Timezone,
		Referrer:   params.Referrer,
	}
	if mobilePattern.MatchString(userAgent) {
		ctx.DeviceType = "mobile"
	}

	// UTMs come from the embedding page's URL, captured at frame creation
	if params.HostURL != "" {
		if u, err := url.Parse(params.HostURL); err == nil {
			query := u.Query()
			ctx.UTMSource = query.Get("utm_source")
			ctx.UTMMedium = query.Get("utm_medium")
			ctx.UTMCampaign = query.Get("utm_campaign")
		}
	}

	return ctx
}

// detectBrowser uses substring checks against known tokens; Chrome ships a
// Safari token too, so order matters.
func detectBrowser(userAgent string) string {
	switch {
	case strings.Contains(userAgent, "Chrome"):
		return "Chrome"
	case strings.Contains(userAgent, "Safari"):
		return "Safari"
	case strings.Contains(userAgent, "Firefox"):
		return "Firefox"
	default:
		return "Unknown"
	}
}

// detectOS checks iPhone before Mac: iOS agents carry a "like Mac OS X"
// token.
func detectOS(userAgent string) string {
	switch {
	case strings.Contains(userAgent, "Win"):
		return "Windows"
	case strings.Contains(userAgent, "Android"):
		return "Android"
	case strings.Contains(userAgent, "iPhone"):
		return "iOS"
	case strings.Contains(userAgent, "Mac"):
		return "macOS"
	default:
		return "Unknown"
	}
}
