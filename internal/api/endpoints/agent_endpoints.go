package endpoints

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"livechat-backend/internal/dto"
	"livechat-backend/internal/env"
	"livechat-backend/internal/session"
	"livechat-backend/internal/version"
)

// AgentEndpoints issues and refreshes staff console sessions. Both routes
// sit outside the JWT middleware; a refresh call arrives with an already
// expired access token.
type AgentEndpoints interface {
	Session(http.ResponseWriter, *http.Request) error
	Refresh(http.ResponseWriter, *http.Request) error
}

type agentEndpoints struct {
	now func() time.Time
}

func NewAgentEndpoints() AgentEndpoints {
	return &agentEndpoints{now: time.Now}
}

func (h *agentEndpoints) meta() dto.Meta {
	return dto.Meta{
		ServerTS:      h.now().UTC().Unix(),
		PluginVersion: version.Build,
	}
}

func (h *agentEndpoints) Session(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleSession,
	})
}

func (h *agentEndpoints) handleSession(w http.ResponseWriter, r *http.Request) error {
	var req dto.AgentSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return badRequest("invalid request body", err)
	}
	if req.Email == "" {
		return badRequest("email is required", fmt.Errorf("agent session without email"))
	}

	configured := env.Get(env.ConsolePassword)
	if configured == "" || subtle.ConstantTimeCompare([]byte(req.Password), []byte(configured)) != 1 {
		return &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Code:       "unauthorized",
			Message:    "Unauthorized",
			ErrorLog:   fmt.Errorf("console password rejected"),
		}
	}

	tokens, err := session.CreateTokenWithRefresh(session.Agent{
		Id:    req.Email,
		Email: req.Email,
		Name:  req.Name,
	}, 0)
	if err != nil {
		return internalError("failed to create agent session", err)
	}

	return WriteJSON(w, http.StatusOK, dto.AgentSessionResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		Meta:         h.meta(),
	})
}

func (h *agentEndpoints) Refresh(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleRefresh,
	})
}

func (h *agentEndpoints) handleRefresh(w http.ResponseWriter, r *http.Request) error {
	var req dto.AgentRefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return badRequest("invalid request body", err)
	}

	accessToken, err := session.RefreshToken(req.RefreshToken)
	if err != nil {
		return &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Code:       "bad_refresh_token",
			Message:    "invalid refresh token",
			ErrorLog:   err,
		}
	}

	return WriteJSON(w, http.StatusOK, dto.AgentRefreshResponse{
		AccessToken: accessToken,
		Meta:        h.meta(),
	})
}
