package dto

import (
	"livechat-backend/internal/model"
	"livechat-backend/internal/service/chat"
)

// Meta rides on every response. Clients use server_ts to anchor roster
// deltas and plugin_version to detect a deployed build they no longer
// match.
type Meta struct {
	ServerTS      int64  `json:"server_ts"`
	PluginVersion string `json:"plugin_version"`
}

type PublicTokenResponse struct {
	Token string `json:"token"`
	Meta
}

type PresenceRequest struct {
	Token     string           `json:"token"`
	VisitorID string           `json:"visitor_id"`
	Name      string           `json:"name,omitempty"`
	Email     string           `json:"email,omitempty"`
	PageURL   string           `json:"page_url"`
	PageTitle string           `json:"page_title"`
	Referrer  string           `json:"referrer,omitempty"`
	Cart      []model.CartItem `json:"cart,omitempty"`
	Since     int64            `json:"since"`
}

type PresenceResponse struct {
	VisitorID      string    `json:"visitor_id"`
	ConversationID string    `json:"conversation_id"`
	Messages       []Message `json:"messages"`
	Typing         bool      `json:"typing"`
	AgentOnline    bool      `json:"agent_online"`
	AIMode         string    `json:"ai_mode"`
	ShowLeadForm   bool      `json:"show_offline_lead_form"`
	CookieNotice   string    `json:"cookie_notice,omitempty"`
	Meta
}

type VisitorMessageRequest struct {
	Token          string `json:"token"`
	VisitorID      string `json:"visitor_id"`
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
}

type VisitorMessageResponse struct {
	Message     Message  `json:"message"`
	AIMessage   *Message `json:"ai_message,omitempty"`
	AgentOnline bool     `json:"agent_online"`
	AIMode      string   `json:"ai_mode"`
	Meta
}

type LeadRequest struct {
	Token     string `json:"token"`
	VisitorID string `json:"visitor_id,omitempty"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Message   string `json:"message"`
	PageURL   string `json:"page_url,omitempty"`
}

type LeadResponse struct {
	LeadID string `json:"lead_id"`
	Meta
}

type TypingRequest struct {
	Token          string `json:"token"`
	VisitorID      string `json:"visitor_id"`
	ConversationID string `json:"conversation_id"`
	Preview        string `json:"preview,omitempty"`
}

type TypingResponse struct {
	OK bool `json:"ok"`
	Meta
}

type MessagesResponse struct {
	ConversationID string    `json:"conversation_id"`
	Messages       []Message `json:"messages"`
	Typing         bool      `json:"typing"`
	TypingPreview  string    `json:"typing_preview,omitempty"`
	AgentOnline    bool      `json:"agent_online"`
	Meta
}

type Message struct {
	MessageID      string             `json:"message_id"`
	ConversationID string             `json:"conversation_id"`
	Sender         string             `json:"sender"`
	Type           string             `json:"type"`
	Text           string             `json:"text,omitempty"`
	Card           *model.ProductCard `json:"card,omitempty"`
	TS             int64              `json:"ts"`
	CreatedAt      string             `json:"created_at"`
}

func FromMessage(message model.MessageItem) Message {
	return Message{
		MessageID:      message.MessageID,
		ConversationID: message.ConversationID,
		Sender:         string(message.SenderType),
		Type:           string(message.MessageType),
		Text:           message.ContentText,
		Card:           message.Card,
		TS:             chat.MessageTS(message),
		CreatedAt:      message.CreatedAt,
	}
}

func FromMessages(messages []model.MessageItem) []Message {
	out := make([]Message, 0, len(messages))
	for _, message := range messages {
		out = append(out, FromMessage(message))
	}
	return out
}

type RosterVisitor struct {
	VisitorID      string            `json:"visitor_id"`
	Name           string            `json:"name,omitempty"`
	Email          string            `json:"email,omitempty"`
	Device         string            `json:"device"`
	CurrentURL     string            `json:"current_url,omitempty"`
	CurrentTitle   string            `json:"current_title,omitempty"`
	PageHistory    []model.PageVisit `json:"page_history,omitempty"`
	Cart           []model.CartItem  `json:"cart,omitempty"`
	ConversationID string            `json:"conversation_id,omitempty"`
	LastSeenTS     int64             `json:"last_seen_ts"`
	LastMessage    string            `json:"last_message,omitempty"`
	LastMessageTS  int64             `json:"last_message_ts,omitempty"`
	LastSender     string            `json:"last_sender,omitempty"`
}

type VisitorsResponse struct {
	Visitors     []RosterVisitor `json:"visitors"`
	FullSync     bool            `json:"full_sync"`
	OnlineAgents int             `json:"online_agents"`
	Meta
}

// VisitorProfile is the detail-panel view of a visitor: who they are and
// what they were browsing when the conversation opened.
type VisitorProfile struct {
	Name        string            `json:"name,omitempty"`
	Email       string            `json:"email,omitempty"`
	Device      string            `json:"device"`
	CurrentURL  string            `json:"current_url,omitempty"`
	PageHistory []model.PageVisit `json:"page_history,omitempty"`
	Cart        []model.CartItem  `json:"cart,omitempty"`
	Referrer    string            `json:"referrer,omitempty"`
}

func FromVisitor(visitor model.VisitorItem) *VisitorProfile {
	return &VisitorProfile{
		Name:        visitor.Name,
		Email:       visitor.Email,
		Device:      chat.DeviceFromUserAgent(visitor.UserAgent),
		CurrentURL:  visitor.CurrentURL,
		PageHistory: visitor.PageHistory,
		Cart:        visitor.Cart,
		Referrer:    visitor.Referrer,
	}
}

type ConversationResponse struct {
	ConversationID string          `json:"conversation_id"`
	VisitorID      string          `json:"visitor_id"`
	Status         string          `json:"status"`
	Visitor        *VisitorProfile `json:"visitor,omitempty"`
	Meta
}

type AgentMessageRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message,omitempty"`
	ProductID      string `json:"product_id,omitempty"`
}

type AgentMessageResponse struct {
	Message Message `json:"message"`
	Meta
}

type ProductSearchResponse struct {
	Products []model.ProductCard `json:"products"`
	Meta
}

type AIReplyRequest struct {
	ConversationID string `json:"conversation_id"`
	Send           bool   `json:"send,omitempty"`
}

type AIReplyResponse struct {
	Draft   string   `json:"draft"`
	Message *Message `json:"message,omitempty"`
	Meta
}

func FromRosterEntry(entry chat.RosterEntry) RosterVisitor {
	visitor := RosterVisitor{
		VisitorID:      entry.Visitor.VisitorID,
		Name:           entry.Visitor.Name,
		Email:          entry.Visitor.Email,
		Device:         entry.Device,
		CurrentURL:     entry.Visitor.CurrentURL,
		CurrentTitle:   entry.Visitor.CurrentTitle,
		PageHistory:    entry.Visitor.PageHistory,
		Cart:           entry.Visitor.Cart,
		ConversationID: entry.Conversation.ConversationID,
		LastMessage:    entry.LastMessage,
		LastMessageTS:  entry.LastMessageAt,
		LastSender:     string(entry.LastSender),
	}
	if t := parseTS(entry.Visitor.LastSeenAt); t > 0 {
		visitor.LastSeenTS = t
	}
	return visitor
}
