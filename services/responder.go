package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

// The AI agent is a request/response collaborator: one POST per guest
// message, one POST per analysis run. Its retrieval internals live elsewhere.

var (
	agentEndpoint string
	agentAPIKey   string
	agentModel    string

	agentClient = &http.Client{Timeout: 60 * time.Second}
)

// InitResponder configures the agent collaborator client.
func InitResponder(endpoint, apiKey, model string) {
	agentEndpoint = endpoint
	agentAPIKey = apiKey
	agentModel = model
}

// AgentTurn is one prior turn handed to the agent for context.
type AgentTurn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// AgentChatRequest is the request to the agent's chat endpoint.
type AgentChatRequest struct {
	Model    string      `json:"model,omitempty"`
	WidgetID string      `json:"widget_id"`
	Message  string      `json:"message"`
	History  []AgentTurn `json:"history,omitempty"`
}

// AgentChatResponse is the agent's reply.
type AgentChatResponse struct {
	Reply string `json:"reply"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// AgentAnalysisRequest asks the agent to summarize a finished transcript.
type AgentAnalysisRequest struct {
	Model      string      `json:"model,omitempty"`
	WidgetID   string      `json:"widget_id"`
	Transcript []AgentTurn `json:"transcript"`
}

// AgentAnalysisResponse carries the session enrichment fields.
type AgentAnalysisResponse struct {
	Summary   string `json:"summary"`
	TopIntent string `json:"top_intent"`
}

// GetAgentReply asks the agent service for a response to a guest message.
func GetAgentReply(ctx context.Context, widgetID, message string, history []AgentTurn) (string, error) {
	// Test mode: if API key is "TEST_MODE", return a mock response
	if agentAPIKey == "TEST_MODE" || agentEndpoint == "" {
		slog.Info("Responder running in echo mode")
		return fmt.Sprintf("ECHO: %s", message), nil
	}

	requestBody := AgentChatRequest{
		Model:    agentModel,
		WidgetID: widgetID,
		Message:  message,
		History:  history,
	}

	var response AgentChatResponse
	if err := postAgent(ctx, "/v1/chat", requestBody, &response); err != nil {
		return "", err
	}

	reply := strings.TrimSpace(response.Reply)
	if reply == "" {
		return "", fmt.Errorf("agent returned an empty reply")
	}

	if os.Getenv("DEBUG_AGENT") == "true" {
		slog.Info("Agent reply",
			"widgetID", widgetID,
			"inputTokens", response.Usage.InputTokens,
			"outputTokens", response.Usage.OutputTokens,
		)
	}

	return reply, nil
}

// AnalyzeTranscript asks the agent for a summary and top intent label.
func AnalyzeTranscript(ctx context.Context, widgetID string, transcript []AgentTurn) (*AgentAnalysisResponse, error) {
	if agentAPIKey == "TEST_MODE" || agentEndpoint == "" {
		return &AgentAnalysisResponse{Summary: "Conversation", TopIntent: "other"}, nil
	}

	requestBody := AgentAnalysisRequest{
		Model:      agentModel,
		WidgetID:   widgetID,
		Transcript: transcript,
	}

	var response AgentAnalysisResponse
	if err := postAgent(ctx, "/v1/analyze", requestBody, &response); err != nil {
		return nil, err
	}

	return &response, nil
}

func postAgent(ctx context.Context, path string, body, out interface{}) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal agent request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", agentEndpoint+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create agent request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if agentAPIKey != "" {
		req.Header.Set("Authorization", "Bearer "+agentAPIKey)
	}

	resp, err := agentClient.Do(req)
	if err != nil {
		return fmt.Errorf("agent request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read agent response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		slog.Error("Agent service error",
			"status", resp.StatusCode,
			"body", string(respBody),
		)
		return fmt.Errorf("agent service returned status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse agent response: %w", err)
	}

	return nil
}
