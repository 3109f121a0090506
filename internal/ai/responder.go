package ai

import (
	"context"
	"log"

	"livechat-backend/internal/model"
	"livechat-backend/internal/service/chat"
	"livechat-backend/internal/service/presence"
)

type Mode string

const (
	ModeOff   Mode = "off"
	ModeAuto  Mode = "auto"
	ModeDraft Mode = "draft"
)

func ParseMode(s string) Mode {
	switch Mode(s) {
	case ModeAuto, ModeDraft:
		return Mode(s)
	}
	return ModeOff
}

type ErrorCode string

const (
	ErrorCodeDisabled ErrorCode = "ai_disabled"
	ErrorCodeFailed   ErrorCode = "ai_failed"
)

type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Responder gates automated replies. In auto mode it answers the visitor
// when no staff member is online; in draft mode it only writes suggestions
// for the console.
type Responder struct {
	client       *Client
	chat         *chat.Service
	presence     *presence.Service
	mode         Mode
	systemPrompt string
}

func NewResponder(client *Client, chatSvc *chat.Service, presenceSvc *presence.Service, mode Mode, systemPrompt string) *Responder {
	return &Responder{
		client:       client,
		chat:         chatSvc,
		presence:     presenceSvc,
		mode:         mode,
		systemPrompt: systemPrompt,
	}
}

func (r *Responder) Mode() Mode {
	if r == nil {
		return ModeOff
	}
	return r.mode
}

// AutoReply runs after a visitor message lands. Any failure is swallowed:
// the visitor's own message is already stored and the poll response must
// not break because the assistant could not answer.
func (r *Responder) AutoReply(ctx context.Context, conversationID string) *model.MessageItem {
	if r == nil || r.mode != ModeAuto {
		return nil
	}
	if r.presence.AgentOnline(ctx) {
		return nil
	}

	reply, err := r.generate(ctx, conversationID)
	if err != nil {
		log.Printf("ai auto-reply skipped: %v", err)
		return nil
	}

	message, err := r.chat.AddAIMessage(ctx, conversationID, reply)
	if err != nil {
		log.Printf("ai auto-reply not saved: %v", err)
		return nil
	}
	return &message
}

// Draft produces a suggested reply for the console without touching the
// transcript.
func (r *Responder) Draft(ctx context.Context, conversationID string) (string, error) {
	if r == nil || r.mode == ModeOff {
		return "", &Error{Code: ErrorCodeDisabled, Message: "assistant is disabled"}
	}

	reply, err := r.generate(ctx, conversationID)
	if err != nil {
		return "", &Error{Code: ErrorCodeFailed, Message: "assistant could not draft a reply", Err: err}
	}
	return reply, nil
}

func (r *Responder) generate(ctx context.Context, conversationID string) (string, error) {
	result, err := r.chat.ListMessagesSince(ctx, "", conversationID, 0)
	if err != nil {
		return "", err
	}

	visitor, err := r.chat.Visitor(ctx, result.Conversation.VisitorID)
	if err != nil {
		// Context degrades gracefully when the profile is gone.
		visitor = model.VisitorItem{VisitorID: result.Conversation.VisitorID}
	}

	messages := BuildMessages(r.systemPrompt, visitor, result.Messages)
	return r.client.Complete(ctx, messages)
}
