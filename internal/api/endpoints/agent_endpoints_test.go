package endpoints

import (
	"encoding/json"
	"net/http"
	"testing"

	"livechat-backend/internal/api"
	"livechat-backend/internal/dto"
	"livechat-backend/internal/env"
	"livechat-backend/internal/queue"
	"livechat-backend/internal/session"
)

func setupAgentHandler(t *testing.T) http.Handler {
	t.Helper()

	session.Configure("agent-test-secret", nil)

	queueManager := queue.NewRequestQueueManager(10, 1)
	t.Cleanup(queueManager.Shutdown)
	server := api.NewAPIServer(":0", queueManager, nil, nil, nil, nil, nil)

	agentEndpoints := NewAgentEndpoints()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat/v1/agent/session", server.MakeHTTPHandleFunc(agentEndpoints.Session))
	mux.HandleFunc("/api/chat/v1/agent/refresh", server.MakeHTTPHandleFunc(agentEndpoints.Refresh))
	return mux
}

func TestAgentSessionIssuesTokenPair(t *testing.T) {
	t.Setenv(env.ConsolePassword, "hunter2")
	handler := setupAgentHandler(t)

	rec := postJSON(t, handler, "/api/chat/v1/agent/session", dto.AgentSessionRequest{
		Email:    "agent@example.com",
		Name:     "Ann",
		Password: "wrong",
	}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 for a bad password, got %d", rec.Code)
	}

	rec = postJSON(t, handler, "/api/chat/v1/agent/session", dto.AgentSessionRequest{
		Email:    "agent@example.com",
		Name:     "Ann",
		Password: "hunter2",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.AgentSessionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatalf("expected both tokens, got %+v", resp)
	}

	claims, err := session.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("issued access token does not parse: %v", err)
	}
	if claims["email"] != "agent@example.com" {
		t.Fatalf("unexpected claims: %v", claims)
	}
}

func TestAgentRefreshRotatesAccessToken(t *testing.T) {
	t.Setenv(env.ConsolePassword, "hunter2")
	handler := setupAgentHandler(t)

	rec := postJSON(t, handler, "/api/chat/v1/agent/session", dto.AgentSessionRequest{
		Email:    "agent@example.com",
		Password: "hunter2",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var issued dto.AgentSessionResponse
	if err := json.NewDecoder(rec.Body).Decode(&issued); err != nil {
		t.Fatalf("decode session: %v", err)
	}

	rec = postJSON(t, handler, "/api/chat/v1/agent/refresh", dto.AgentRefreshRequest{
		RefreshToken: issued.RefreshToken,
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var refreshed dto.AgentRefreshResponse
	if err := json.NewDecoder(rec.Body).Decode(&refreshed); err != nil {
		t.Fatalf("decode refresh: %v", err)
	}
	if _, err := session.ParseToken(refreshed.AccessToken); err != nil {
		t.Fatalf("refreshed access token does not parse: %v", err)
	}

	rec = postJSON(t, handler, "/api/chat/v1/agent/refresh", dto.AgentRefreshRequest{
		RefreshToken: "not-a-token",
	}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 for an unknown refresh token, got %d", rec.Code)
	}
	var apiErr api.ApiError
	json.NewDecoder(rec.Body).Decode(&apiErr)
	if apiErr.Code != "bad_refresh_token" {
		t.Fatalf("expected code bad_refresh_token, got %s", apiErr.Code)
	}
}
