package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"livechat-backend/internal/ai"
	"livechat-backend/internal/dto"
	"livechat-backend/internal/env"
	"livechat-backend/internal/model"
	"livechat-backend/internal/service/chat"
	"livechat-backend/internal/service/presence"
	"livechat-backend/internal/session"
	"livechat-backend/internal/version"
)

// ChatEndpoints serves the visitor widget. Every route except the token
// fetch requires a valid rotating widget token.
type ChatEndpoints interface {
	PublicToken(http.ResponseWriter, *http.Request) error
	Presence(http.ResponseWriter, *http.Request) error
	Message(http.ResponseWriter, *http.Request) error
	Lead(http.ResponseWriter, *http.Request) error
	Typing(http.ResponseWriter, *http.Request) error
	Messages(http.ResponseWriter, *http.Request) error
	Conversation(http.ResponseWriter, *http.Request) error
}

type chatEndpoints struct {
	chat      *chat.Service
	presence  *presence.Service
	responder *ai.Responder
	now       func() time.Time
}

func NewChatEndpoints(chatSvc *chat.Service, presenceSvc *presence.Service, responder *ai.Responder) ChatEndpoints {
	return &chatEndpoints{
		chat:      chatSvc,
		presence:  presenceSvc,
		responder: responder,
		now:       time.Now,
	}
}

func (h *chatEndpoints) meta() dto.Meta {
	return dto.Meta{
		ServerTS:      h.now().UTC().Unix(),
		PluginVersion: version.Build,
	}
}

func (h *chatEndpoints) PublicToken(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: func(w http.ResponseWriter, r *http.Request) error {
			return WriteJSON(w, http.StatusOK, dto.PublicTokenResponse{
				Token: session.IssuePublicToken(h.now, r.Header.Get("Origin")),
				Meta:  h.meta(),
			})
		},
	})
}

func (h *chatEndpoints) Presence(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handlePresence,
	})
}

func (h *chatEndpoints) handlePresence(w http.ResponseWriter, r *http.Request) error {
	var req dto.PresenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return badRequest("invalid request body", err)
	}
	if err := h.requireWidgetToken(r, req.Token); err != nil {
		return err
	}

	result, err := h.chat.EnsureSession(r.Context(), chat.SessionParams{
		VisitorID: req.VisitorID,
		Name:      req.Name,
		Email:     req.Email,
		PageURL:   req.PageURL,
		PageTitle: req.PageTitle,
		UserAgent: r.UserAgent(),
		Referrer:  req.Referrer,
		Cart:      req.Cart,
	})
	if err != nil {
		return chatServiceError(err)
	}

	list, err := h.chat.ListMessagesSince(r.Context(), result.Visitor.VisitorID, result.Conversation.ConversationID, req.Since)
	if err != nil {
		return chatServiceError(err)
	}

	typing, err := h.chat.TypingStateFor(r.Context(), result.Conversation.ConversationID, model.ActorVisitor)
	if err != nil {
		return chatServiceError(err)
	}

	mode := h.responder.Mode()
	online := h.presence.AgentOnline(r.Context())

	return WriteJSON(w, http.StatusOK, dto.PresenceResponse{
		VisitorID:      result.Visitor.VisitorID,
		ConversationID: result.Conversation.ConversationID,
		Messages:       dto.FromMessages(list.Messages),
		Typing:         typing.Typing,
		AgentOnline:    online,
		AIMode:         string(mode),
		ShowLeadForm:   !online && mode != ai.ModeAuto,
		CookieNotice:   env.Get(env.CookieNoticeText),
		Meta:           h.meta(),
	})
}

func (h *chatEndpoints) Message(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleMessage,
	})
}

func (h *chatEndpoints) handleMessage(w http.ResponseWriter, r *http.Request) error {
	var req dto.VisitorMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return badRequest("invalid request body", err)
	}
	if err := h.requireWidgetToken(r, req.Token); err != nil {
		return err
	}

	message, err := h.chat.AddVisitorMessage(r.Context(), req.VisitorID, req.ConversationID, req.Message)
	if err != nil {
		return chatServiceError(err)
	}

	response := dto.VisitorMessageResponse{
		Message:     dto.FromMessage(message),
		AgentOnline: h.presence.AgentOnline(r.Context()),
		AIMode:      string(h.responder.Mode()),
		Meta:        h.meta(),
	}

	// The assistant answers inline when the gate allows it; failures
	// never surface here.
	if aiMessage := h.responder.AutoReply(r.Context(), req.ConversationID); aiMessage != nil {
		converted := dto.FromMessage(*aiMessage)
		response.AIMessage = &converted
	}

	return WriteJSON(w, http.StatusOK, response)
}

func (h *chatEndpoints) Lead(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleLead,
	})
}

func (h *chatEndpoints) handleLead(w http.ResponseWriter, r *http.Request) error {
	var req dto.LeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return badRequest("invalid request body", err)
	}
	if err := h.requireWidgetToken(r, req.Token); err != nil {
		return err
	}

	lead, err := h.chat.SaveLead(r.Context(), chat.LeadParams{
		VisitorID:  req.VisitorID,
		Name:       req.Name,
		Email:      req.Email,
		Message:    req.Message,
		CurrentURL: req.PageURL,
	})
	if err != nil {
		return chatServiceError(err)
	}

	return WriteJSON(w, http.StatusOK, dto.LeadResponse{
		LeadID: lead.LeadID,
		Meta:   h.meta(),
	})
}

func (h *chatEndpoints) Typing(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleTyping,
	})
}

func (h *chatEndpoints) handleTyping(w http.ResponseWriter, r *http.Request) error {
	var req dto.TypingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return badRequest("invalid request body", err)
	}
	if err := h.requireWidgetToken(r, req.Token); err != nil {
		return err
	}

	err := h.chat.RecordTyping(r.Context(), req.ConversationID, req.VisitorID, model.ActorVisitor, req.Preview)
	if err != nil {
		return chatServiceError(err)
	}

	return WriteJSON(w, http.StatusOK, dto.TypingResponse{
		OK:   true,
		Meta: h.meta(),
	})
}

func (h *chatEndpoints) Messages(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleMessages,
	})
}

// handleMessages serves both sides of the conversation. A valid Bearer
// token makes it a staff fetch (no ownership filter, presence marked);
// otherwise the widget token plus visitor ownership applies.
func (h *chatEndpoints) handleMessages(w http.ResponseWriter, r *http.Request) error {
	query := r.URL.Query()
	conversationID := query.Get("conversation_id")
	since, _ := strconv.ParseInt(query.Get("since"), 10, 64)

	actor := model.ActorVisitor
	visitorID := query.Get("visitor_id")

	if agentID, ok := agentFromRequest(r); ok {
		actor = model.ActorAgent
		visitorID = ""
		if err := h.presence.MarkAgent(r.Context(), agentID); err != nil {
			return internalError("failed to mark agent presence", err)
		}
	} else {
		if err := h.requireWidgetToken(r, query.Get("token")); err != nil {
			return err
		}
	}

	list, err := h.chat.ListMessagesSince(r.Context(), visitorID, conversationID, since)
	if err != nil {
		return chatServiceError(err)
	}

	typing, err := h.chat.TypingStateFor(r.Context(), conversationID, actor)
	if err != nil {
		return chatServiceError(err)
	}

	return WriteJSON(w, http.StatusOK, dto.MessagesResponse{
		ConversationID: list.Conversation.ConversationID,
		Messages:       dto.FromMessages(list.Messages),
		Typing:         typing.Typing,
		TypingPreview:  typing.Preview,
		AgentOnline:    h.presence.AgentOnline(r.Context()),
		Meta:           h.meta(),
	})
}

func (h *chatEndpoints) Conversation(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleConversation,
	})
}

// handleConversation resolves (or lazily creates) the conversation for a
// visitor. Staff get it for any visitor plus the visitor profile; a widget
// caller gets only their own, keyed by the visitor_id they hold.
func (h *chatEndpoints) handleConversation(w http.ResponseWriter, r *http.Request) error {
	query := r.URL.Query()

	staff := false
	if agentID, ok := agentFromRequest(r); ok {
		staff = true
		if err := h.presence.MarkAgent(r.Context(), agentID); err != nil {
			return internalError("failed to mark agent presence", err)
		}
	} else if err := h.requireWidgetToken(r, query.Get("token")); err != nil {
		return err
	}

	conversation, err := h.chat.GetOrCreateConversation(r.Context(), query.Get("visitor_id"))
	if err != nil {
		return chatServiceError(err)
	}

	response := dto.ConversationResponse{
		ConversationID: conversation.ConversationID,
		VisitorID:      conversation.VisitorID,
		Status:         string(conversation.Status),
		Meta:           h.meta(),
	}
	if staff {
		visitor, err := h.chat.Visitor(r.Context(), conversation.VisitorID)
		if err != nil {
			return chatServiceError(err)
		}
		response.Visitor = dto.FromVisitor(visitor)
	}

	return WriteJSON(w, http.StatusOK, response)
}

// requireWidgetToken rejects tokens minted for a different rotation bucket
// or a different Origin than the one on this request.
func (h *chatEndpoints) requireWidgetToken(r *http.Request, token string) error {
	if !session.VerifyPublicToken(token, h.now, r.Header.Get("Origin")) {
		return &HTTPError{
			StatusCode: http.StatusForbidden,
			Code:       "bad_token",
			Message:    "invalid widget token",
			ErrorLog:   fmt.Errorf("widget token rejected"),
		}
	}
	return nil
}

func agentFromRequest(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	claims, err := session.ParseToken(strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		return "", false
	}
	agentID, _ := claims["id"].(string)
	if agentID == "" {
		return "", false
	}
	return agentID, true
}

func badRequest(message string, err error) error {
	return &HTTPError{
		StatusCode: http.StatusBadRequest,
		Code:       "bad_request",
		Message:    message,
		ErrorLog:   err,
	}
}

func internalError(message string, err error) error {
	return &HTTPError{
		StatusCode: http.StatusInternalServerError,
		Code:       "internal_error",
		Message:    "Internal server error",
		ErrorLog:   fmt.Errorf("%s: %w", message, err),
	}
}

func chatServiceError(err error) error {
	if err == nil {
		return nil
	}

	svcErr, ok := err.(*chat.Error)
	if !ok {
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Code:       "internal_error",
			Message:    "Internal server error",
			ErrorLog:   fmt.Errorf("chat service: %w", err),
		}
	}

	var logErr error
	if svcErr.Err != nil {
		logErr = fmt.Errorf("%s: %w", svcErr.Message, svcErr.Err)
	} else {
		logErr = svcErr
	}

	status := http.StatusInternalServerError
	switch svcErr.Code {
	case chat.ErrorCodeEmptyMessage, chat.ErrorCodeInvalidLead, chat.ErrorCodeInvalidEmail, chat.ErrorCodeMissingConversation:
		status = http.StatusBadRequest
	case chat.ErrorCodeForbidden:
		status = http.StatusForbidden
	case chat.ErrorCodeNotFound:
		status = http.StatusNotFound
	}

	message := svcErr.Message
	if status == http.StatusInternalServerError {
		message = "Internal server error"
	}

	return &HTTPError{
		StatusCode: status,
		Code:       string(svcErr.Code),
		Message:    message,
		ErrorLog:   logErr,
	}
}
