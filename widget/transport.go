package widget

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Config is the widget configuration the frame fetches once per load.
// It is immutable for the lifetime of that load.
type Config struct {
	PublicWidgetID   string `json:"public_widget_id"`
	Theme            string `json:"theme"`
	PrimaryColor     string `json:"primary_color"`
	IconURL          string `json:"icon_url,omitempty"`
	WelcomeMessage   string `json:"welcome_message,omitempty"`
	InitialAIMessage string `json:"initial_ai_message,omitempty"`

	// SendInitialMessageAutomatically is carried for parity with the server
	// model; the lifecycle currently always seeds InitialAIMessage on a
	// fresh thread.
	SendInitialMessageAutomatically bool `json:"send_initial_message_automatically"`

	WhatsappEnabled bool `json:"whatsapp_enabled"`
	WhatsappNumber   string `json:"whatsapp_number,omitempty"`
	IsActive         bool   `json:"is_active"`
}

// Message senders.
const (
	SenderGuest = "guest"
	SenderAI    = "ai"
)

// Message is one transcript entry. Before server confirmation a guest
// message carries a client-generated temporary id used purely for
// correlation; it is discarded once the confirmed pair arrives.
type Message struct {
	ID        string    `json:"id"`
	GuestID   string    `json:"guest_id,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	Sender    string    `json:"sender"`
	Text      string    `json:"message_text"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatResponse is the confirmed pair returned by both send endpoints: the
// stored guest message and the AI reply. On session-init the allocated
// session id rides on Message.SessionID.
type ChatResponse struct {
	Message  Message `json:"message"`
	Response Message `json:"response"`
}

// SessionSummary is one history listing entry.
type SessionSummary struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	LastMessageAt time.Time `json:"last_message_at"`
	Origin        string    `json:"origin"`
	Summary       string    `json:"summary,omitempty"`
	TopIntent     string    `json:"top_intent,omitempty"`
}

type guestStartRequest struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type guestStartResponse struct {
	GuestID string `json:"guest_id"`
}

type sessionInitRequest struct {
	GuestID string  `json:"guest_id"`
	Message string  `json:"message"`
	Origin  string  `json:"origin"`
	Context Context `json:"context"`
}

type chatContinueRequest struct {
	Message string `json:"message"`
}

// Transport performs the request/response calls between the embedded frame
// and the widget backend.
type Transport struct {
	BaseURL  string
	WidgetID string
	Client   *http.Client
}

func NewTransport(baseURL, widgetID string, client *http.Client) *Transport {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Transport{BaseURL: baseURL, WidgetID: widgetID, Client: client}
}

// FetchConfig loads the widget configuration.
func (t *Transport) FetchConfig(ctx context.Context) (*Config, error) {
	var config Config
	err := t.do(ctx, "GET", fmt.Sprintf("/widgets/config/%s", url.PathEscape(t.WidgetID)), nil, &config)
	if err != nil {
		return nil, err
	}
	return &config, nil
}

// StartGuest submits the intake form and returns the durable guest id.
func (t *Transport) StartGuest(ctx context.Context, name, email, phone string) (string, error) {
	req := guestStartRequest{Name: name, Email: email, Phone: phone}
	var resp guestStartResponse
	err := t.do(ctx, "POST", fmt.Sprintf("/widgets/guest/start/%s", url.PathEscape(t.WidgetID)), req, &resp)
	if err != nil {
		return "", err
	}
	return resp.GuestID, nil
}

// InitSession creates a session by delivering its first message, carrying
// the origin tag and the captured context. This is the only call that ever
// sends context.
func (t *Transport) InitSession(ctx context.Context, guestID, message, origin string, captured Context) (*ChatResponse, error) {
	req := sessionInitRequest{GuestID: guestID, Message: message, Origin: origin, Context: captured}
	var resp ChatResponse
	err := t.do(ctx, "POST", fmt.Sprintf("/widgets/guest/session/init/%s", url.PathEscape(t.WidgetID)), req, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ContinueSession delivers a follow-up message to an established session.
func (t *Transport) ContinueSession(ctx context.Context, sessionID, message string) (*ChatResponse, error) {
	req := chatContinueRequest{Message: message}
	var resp ChatResponse
	path := fmt.Sprintf("/widgets/chat/%s/session/%s", url.PathEscape(t.WidgetID), url.PathEscape(sessionID))
	err := t.do(ctx, "POST", path, req, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListSessions fetches the guest's prior session summaries.
func (t *Transport) ListSessions(ctx context.Context, guestID string) ([]SessionSummary, error) {
	var sessions []SessionSummary
	err := t.do(ctx, "GET", fmt.Sprintf("/widgets/sessions/%s/history", url.PathEscape(guestID)), nil, &sessions)
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// SessionMessages fetches the full ordered transcript for a session.
func (t *Transport) SessionMessages(ctx context.Context, sessionID string) ([]Message, error) {
	var messages []Message
	err := t.do(ctx, "GET", fmt.Sprintf("/widgets/session/%s/messages", url.PathEscape(sessionID)), nil, &messages)
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (t *Transport) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s returned status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}
