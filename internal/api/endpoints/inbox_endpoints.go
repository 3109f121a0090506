package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"livechat-backend/internal/ai"
	"livechat-backend/internal/dto"
	"livechat-backend/internal/model"
	"livechat-backend/internal/service/catalog"
	"livechat-backend/internal/service/chat"
	"livechat-backend/internal/service/presence"
	"livechat-backend/internal/version"
)

// InboxEndpoints serves the staff console. Routes sit behind the agent JWT
// middleware; each handler additionally marks the agent as live, which is
// what drives the widget's "agent online" flag.
type InboxEndpoints interface {
	Visitors(http.ResponseWriter, *http.Request) error
	AgentMessage(http.ResponseWriter, *http.Request) error
	AgentTyping(http.ResponseWriter, *http.Request) error
	ProductSearch(http.ResponseWriter, *http.Request) error
	AIReply(http.ResponseWriter, *http.Request) error
}

type inboxEndpoints struct {
	chat      *chat.Service
	presence  *presence.Service
	catalog   *catalog.Service
	responder *ai.Responder
	now       func() time.Time
}

func NewInboxEndpoints(chatSvc *chat.Service, presenceSvc *presence.Service, catalogSvc *catalog.Service, responder *ai.Responder) InboxEndpoints {
	return &inboxEndpoints{
		chat:      chatSvc,
		presence:  presenceSvc,
		catalog:   catalogSvc,
		responder: responder,
		now:       time.Now,
	}
}

func (h *inboxEndpoints) meta() dto.Meta {
	return dto.Meta{
		ServerTS:      h.now().UTC().Unix(),
		PluginVersion: version.Build,
	}
}

func (h *inboxEndpoints) markAgent(r *http.Request) error {
	agentID, ok := agentFromRequest(r)
	if !ok {
		return &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Code:       "unauthorized",
			Message:    "Unauthorized",
			ErrorLog:   fmt.Errorf("agent identity missing after auth middleware"),
		}
	}
	if err := h.presence.MarkAgent(r.Context(), agentID); err != nil {
		return internalError("failed to mark agent presence", err)
	}
	return nil
}

func (h *inboxEndpoints) Visitors(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleVisitors,
	})
}

// handleVisitors returns the live roster. With since=0 the full roster
// comes back; otherwise only entries whose liveness or transcript moved
// past the given server_ts, and the console merges them in.
func (h *inboxEndpoints) handleVisitors(w http.ResponseWriter, r *http.Request) error {
	if err := h.markAgent(r); err != nil {
		return err
	}

	since, _ := strconv.ParseInt(r.URL.Query().Get("since"), 10, 64)

	entries, err := h.chat.LiveVisitors(r.Context())
	if err != nil {
		return chatServiceError(err)
	}

	visitors := make([]dto.RosterVisitor, 0, len(entries))
	for _, entry := range entries {
		visitor := dto.FromRosterEntry(entry)
		if since > 0 && visitor.LastSeenTS <= since && visitor.LastMessageTS <= since {
			continue
		}
		visitors = append(visitors, visitor)
	}

	return WriteJSON(w, http.StatusOK, dto.VisitorsResponse{
		Visitors:     visitors,
		FullSync:     since == 0,
		OnlineAgents: h.presence.OnlineCount(r.Context()),
		Meta:         h.meta(),
	})
}

func (h *inboxEndpoints) AgentMessage(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleAgentMessage,
	})
}

func (h *inboxEndpoints) handleAgentMessage(w http.ResponseWriter, r *http.Request) error {
	if err := h.markAgent(r); err != nil {
		return err
	}

	var req dto.AgentMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return badRequest("invalid request body", err)
	}

	var card *model.ProductCard
	if req.ProductID != "" {
		resolved, err := h.catalog.Card(r.Context(), req.ProductID)
		if err != nil {
			return catalogServiceError(err)
		}
		card = &resolved
	}

	message, err := h.chat.AddAgentMessage(r.Context(), req.ConversationID, req.Message, card)
	if err != nil {
		return chatServiceError(err)
	}

	return WriteJSON(w, http.StatusOK, dto.AgentMessageResponse{
		Message: dto.FromMessage(message),
		Meta:    h.meta(),
	})
}

func (h *inboxEndpoints) AgentTyping(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleAgentTyping,
	})
}

func (h *inboxEndpoints) handleAgentTyping(w http.ResponseWriter, r *http.Request) error {
	if err := h.markAgent(r); err != nil {
		return err
	}

	var req dto.TypingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return badRequest("invalid request body", err)
	}

	err := h.chat.RecordTyping(r.Context(), req.ConversationID, "", model.ActorAgent, req.Preview)
	if err != nil {
		return chatServiceError(err)
	}

	return WriteJSON(w, http.StatusOK, dto.TypingResponse{
		OK:   true,
		Meta: h.meta(),
	})
}

func (h *inboxEndpoints) ProductSearch(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleProductSearch,
	})
}

func (h *inboxEndpoints) handleProductSearch(w http.ResponseWriter, r *http.Request) error {
	if err := h.markAgent(r); err != nil {
		return err
	}

	products, err := h.catalog.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		return catalogServiceError(err)
	}

	return WriteJSON(w, http.StatusOK, dto.ProductSearchResponse{
		Products: products,
		Meta:     h.meta(),
	})
}

func (h *inboxEndpoints) AIReply(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleAIReply,
	})
}

func (h *inboxEndpoints) handleAIReply(w http.ResponseWriter, r *http.Request) error {
	if err := h.markAgent(r); err != nil {
		return err
	}

	var req dto.AIReplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return badRequest("invalid request body", err)
	}

	draft, err := h.responder.Draft(r.Context(), req.ConversationID)
	if err != nil {
		return aiServiceError(err)
	}

	response := dto.AIReplyResponse{
		Draft: draft,
		Meta:  h.meta(),
	}

	if req.Send {
		message, err := h.chat.AddAIMessage(r.Context(), req.ConversationID, draft)
		if err != nil {
			return chatServiceError(err)
		}
		converted := dto.FromMessage(message)
		response.Message = &converted
	}

	return WriteJSON(w, http.StatusOK, response)
}

func catalogServiceError(err error) error {
	if err == nil {
		return nil
	}

	svcErr, ok := err.(*catalog.Error)
	if !ok {
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Code:       "internal_error",
			Message:    "Internal server error",
			ErrorLog:   fmt.Errorf("catalog service: %w", err),
		}
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	switch svcErr.Code {
	case catalog.ErrorCodeProductRequired:
		status = http.StatusBadRequest
		message = svcErr.Message
	case catalog.ErrorCodeProductNotFound:
		status = http.StatusNotFound
		message = svcErr.Message
	}

	return &HTTPError{
		StatusCode: status,
		Code:       string(svcErr.Code),
		Message:    message,
		ErrorLog:   svcErr,
	}
}

func aiServiceError(err error) error {
	if err == nil {
		return nil
	}

	aiErr, ok := err.(*ai.Error)
	if !ok {
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Code:       "internal_error",
			Message:    "Internal server error",
			ErrorLog:   fmt.Errorf("ai responder: %w", err),
		}
	}

	status := http.StatusBadGateway
	if aiErr.Code == ai.ErrorCodeDisabled {
		status = http.StatusBadRequest
	}

	return &HTTPError{
		StatusCode: status,
		Code:       string(aiErr.Code),
		Message:    aiErr.Message,
		ErrorLog:   aiErr,
	}
}
