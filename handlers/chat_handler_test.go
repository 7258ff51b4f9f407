package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taimako-widget/models"
	"taimako-widget/services"
)

// stubChatServices swaps the service seam for in-memory stubs and restores
// it when the test ends. sessionCount and messageCount drive the quota
// branches.
type stubChatServices struct {
	widget       *models.Widget
	guest        *models.Guest
	session      *models.ChatSession
	sessionCount int64
	messageCount int64

	createdSessions int
	savedMessages   int
}

func (s *stubChatServices) install(t *testing.T) {
	origLookupWidget := lookupWidget
	origLookupGuest := lookupGuest
	origLookupSession := lookupSession
	origCountSessionsDay := countSessionsDay
	origCountMessages := countMessages
	origCreateSession := createSession
	origMarkLead := markLead
	origLoadAgentHistory := loadAgentHistory
	origSaveMessage := saveMessage
	origTouchSession := touchSession
	origRequestAgentReply := requestAgentReply
	t.Cleanup(func() {
		lookupWidget = origLookupWidget
		lookupGuest = origLookupGuest
		lookupSession = origLookupSession
		countSessionsDay = origCountSessionsDay
		countMessages = origCountMessages
		createSession = origCreateSession
		markLead = origMarkLead
		loadAgentHistory = origLoadAgentHistory
		saveMessage = origSaveMessage
		touchSession = origTouchSession
		requestAgentReply = origRequestAgentReply
	})

	lookupWidget = func(ctx context.Context, publicWidgetID string) (*models.Widget, error) {
		if s.widget != nil && s.widget.PublicWidgetID == publicWidgetID {
			return s.widget, nil
		}
		return nil, nil
	}
	lookupGuest = func(ctx context.Context, guestID string) (*models.Guest, error) {
		if s.guest != nil && s.guest.GuestID == guestID {
			return s.guest, nil
		}
		return nil, nil
	}
	lookupSession = func(ctx context.Context, sessionID string) (*models.ChatSession, error) {
		if s.session != nil && s.session.SessionID == sessionID {
			return s.session, nil
		}
		return nil, nil
	}
	countSessionsDay = func(ctx context.Context, guestID string, since time.Time) (int64, error) {
		return s.sessionCount, nil
	}
	countMessages = func(ctx context.Context, sessionID string) (int64, error) {
		return s.messageCount, nil
	}
	createSession = func(ctx context.Context, widget *models.Widget, guest *models.Guest, origin string, sessionCtx *models.SessionContext) (*models.ChatSession, error) {
		s.createdSessions++
		now := time.Now()
		return &models.ChatSession{
			SessionID:     "s-new",
			GuestID:       guest.GuestID,
			WidgetID:      widget.PublicWidgetID,
			OwnerID:       widget.OwnerID,
			Origin:        origin,
			Context:       sessionCtx,
			CreatedAt:     now,
			LastMessageAt: now,
		}, nil
	}
	markLead = func(ctx context.Context, guestID string) error { return nil }
	loadAgentHistory = func(ctx context.Context, sessionID string, limit int) ([]services.AgentTurn, error) {
		return nil, nil
	}
	saveMessage = func(ctx context.Context, message *models.GuestMessage) error {
		s.savedMessages++
		return nil
	}
	touchSession = func(ctx context.Context, sessionID string, at time.Time) error { return nil }
	requestAgentReply = func(ctx context.Context, widgetID, message string, history []services.AgentTurn) (string, error) {
		return "ECHO: " + message, nil
	}
}

func chatTestApp() *fiber.App {
	app := fiber.New()
	app.Post("/widgets/guest/session/init/:widgetID", InitGuestSession)
	app.Post("/widgets/chat/:widgetID/session/:sessionID", ContinueSession)
	return app
}

func testWidget() *models.Widget {
	return &models.Widget{
		PublicWidgetID: "w1",
		OwnerID:        "owner-1",
		IsActive:       true,
	}
}

func TestInitSessionDayQuota(t *testing.T) {
	stub := &stubChatServices{
		widget: testWidget(),
		guest:  &models.Guest{GuestID: "guest-1", WidgetID: "w1"},
	}
	stub.widget.MaxSessionsPerDay = 3
	stub.install(t)

	app := chatTestApp()
	body, _ := json.Marshal(SessionInitRequest{GuestID: "guest-1", Message: "Hi"})

	// At the limit the init is refused and no session is created
	stub.sessionCount = 3
	req := httptest.NewRequest("POST", "/widgets/guest/session/init/w1", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Zero(t, stub.createdSessions)

	// Below the limit the message goes through
	stub.sessionCount = 2
	req = httptest.NewRequest("POST", "/widgets/guest/session/init/w1", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, stub.createdSessions)

	var pair ChatResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pair))
	resp.Body.Close()
	assert.Equal(t, "s-new", pair.Message.SessionID)
	assert.Equal(t, "ECHO: Hi", pair.Response.MessageText)
}

func TestInitSessionNoQuotaConfigured(t *testing.T) {
	stub := &stubChatServices{
		widget:       testWidget(),
		guest:        &models.Guest{GuestID: "guest-1", WidgetID: "w1"},
		sessionCount: 1000, // irrelevant with no limit set
	}
	stub.install(t)

	app := chatTestApp()
	body, _ := json.Marshal(SessionInitRequest{GuestID: "guest-1", Message: "Hi"})
	req := httptest.NewRequest("POST", "/widgets/guest/session/init/w1", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestContinueSessionMessageQuota(t *testing.T) {
	stub := &stubChatServices{
		widget: testWidget(),
		session: &models.ChatSession{
			SessionID: "s1",
			GuestID:   "guest-1",
			WidgetID:  "w1",
			OwnerID:   "owner-1",
		},
	}
	stub.widget.MaxMessagesPerSession = 40
	stub.install(t)

	app := chatTestApp()
	body, _ := json.Marshal(ChatContinueRequest{Message: "More"})

	// At the limit the send is refused and nothing is stored
	stub.messageCount = 40
	req := httptest.NewRequest("POST", "/widgets/chat/w1/session/s1", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Zero(t, stub.savedMessages)

	// One below the limit still delivers
	stub.messageCount = 39
	req = httptest.NewRequest("POST", "/widgets/chat/w1/session/s1", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, stub.savedMessages) // guest turn + AI turn
}

func TestContinueSessionWrongWidget(t *testing.T) {
	stub := &stubChatServices{
		widget: testWidget(),
		session: &models.ChatSession{
			SessionID: "s1",
			GuestID:   "guest-1",
			WidgetID:  "other-widget",
		},
	}
	stub.install(t)

	app := chatTestApp()
	body, _ := json.Marshal(ChatContinueRequest{Message: "More"})
	req := httptest.NewRequest("POST", "/widgets/chat/w1/session/s1", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
