package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"livechat-backend/internal/model"
	"livechat-backend/utils"

	"github.com/google/uuid"
)

type ErrorCode string

const (
	ErrorCodeEmptyMessage        ErrorCode = "empty_message"
	ErrorCodeInvalidLead         ErrorCode = "invalid_lead"
	ErrorCodeInvalidEmail        ErrorCode = "invalid_email"
	ErrorCodeMissingConversation ErrorCode = "missing_conversation"
	ErrorCodeNotFound            ErrorCode = "conversation_not_found"
	ErrorCodeForbidden           ErrorCode = "forbidden"
	ErrorCodeInternal            ErrorCode = "internal_error"
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

func newError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

const (
	// MessageWindowLimit caps how many transcript rows a single fetch
	// returns; clients page by watermark, never by offset.
	MessageWindowLimit = 200

	// RosterLimit caps the live visitor roster returned to the console.
	RosterLimit = 250

	// PageHistoryLimit bounds the per-visitor trail of visited pages.
	PageHistoryLimit = 10

	// PreviewLength is the rune cap for message previews shown in the
	// roster and carried on typing events.
	PreviewLength = 240

	// VisitorLivenessWindow is how long after its last poll a visitor
	// still counts as live. The console evicts on a slightly wider
	// horizon, so a row always leaves the server's roster first.
	VisitorLivenessWindow = 120 * time.Second

	// TypingStaleness is how long a typing event keeps the indicator on.
	TypingStaleness = 6 * time.Second
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return NewWithRepository(repo, time.Now)
}

func NewWithRepository(repo Repository, now func() time.Time) *Service {
	return &Service{
		repo: repo,
		now:  now,
	}
}

type SessionParams struct {
	VisitorID string
	Name      string
	Email     string
	PageURL   string
	PageTitle string
	UserAgent string
	Referrer  string
	Cart      []model.CartItem
}

type SessionResult struct {
	Visitor      model.VisitorItem
	Conversation model.ConversationItem
}

// EnsureSession registers or refreshes a visitor on every widget poll. It
// stamps liveness, tracks the page trail and cart snapshot, and lazily
// opens the visitor's conversation.
func (s *Service) EnsureSession(ctx context.Context, params SessionParams) (SessionResult, error) {
	now := s.now().UTC()
	nowStr := now.Format(time.RFC3339)

	visitorID := strings.TrimSpace(params.VisitorID)
	if visitorID == "" {
		visitorID = uuid.NewString()
	}

	visitor, err := s.repo.GetVisitor(ctx, visitorID)
	if err != nil {
		if err != ErrNotFound {
			return SessionResult{}, newError(ErrorCodeInternal, "failed to load visitor", err)
		}
		visitor = model.VisitorItem{
			VisitorID: visitorID,
			CreatedAt: nowStr,
		}
	}

	visitor.LastSeenAt = nowStr
	if params.Name != "" {
		visitor.Name = params.Name
	}
	if email := normalizeEmail(params.Email); email != "" {
		visitor.Email = email
	}
	if params.UserAgent != "" {
		visitor.UserAgent = params.UserAgent
	}
	if params.Referrer != "" && visitor.Referrer == "" {
		visitor.Referrer = params.Referrer
	}
	if params.Cart != nil {
		visitor.Cart = params.Cart
	}

	if params.PageURL != "" {
		visitor.CurrentURL = params.PageURL
		visitor.CurrentTitle = params.PageTitle
		visitor.PageHistory = appendPageVisit(visitor.PageHistory, model.PageVisit{
			URL:    params.PageURL,
			Title:  params.PageTitle,
			SeenAt: now.Unix(),
		})
	}

	if err := s.repo.PutVisitor(ctx, visitor); err != nil {
		return SessionResult{}, newError(ErrorCodeInternal, "failed to save visitor", err)
	}

	conversation, err := s.GetOrCreateConversation(ctx, visitorID)
	if err != nil {
		return SessionResult{}, err
	}

	return SessionResult{
		Visitor:      visitor,
		Conversation: conversation,
	}, nil
}

// GetOrCreateConversation opens the visitor's single conversation on first
// use. A visitor keeps the same conversation for their whole lifetime.
func (s *Service) GetOrCreateConversation(ctx context.Context, visitorID string) (model.ConversationItem, error) {
	if visitorID == "" {
		return model.ConversationItem{}, newError(ErrorCodeMissingConversation, "visitor id required", nil)
	}

	conversation, err := s.repo.GetConversationByVisitor(ctx, visitorID)
	if err == nil {
		return conversation, nil
	}
	if err != ErrNotFound {
		return model.ConversationItem{}, newError(ErrorCodeInternal, "failed to load conversation", err)
	}

	nowStr := s.now().UTC().Format(time.RFC3339)
	conversation = model.ConversationItem{
		ConversationID: uuid.NewString(),
		VisitorID:      visitorID,
		Status:         model.ConversationStatusOpen,
		CreatedAt:      nowStr,
		UpdatedAt:      nowStr,
	}
	if err := s.repo.CreateConversation(ctx, conversation); err != nil {
		return model.ConversationItem{}, newError(ErrorCodeInternal, "failed to create conversation", err)
	}

	return conversation, nil
}

// AddVisitorMessage appends a text message on behalf of the widget. The
// conversation must belong to the polling visitor.
func (s *Service) AddVisitorMessage(ctx context.Context, visitorID, conversationID, body string) (model.MessageItem, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return model.MessageItem{}, newError(ErrorCodeEmptyMessage, "message body is empty", nil)
	}

	conversation, err := s.ownedConversation(ctx, visitorID, conversationID)
	if err != nil {
		return model.MessageItem{}, err
	}

	return s.appendMessage(ctx, conversation, model.SenderVisitor, model.MessageText, body, nil)
}

// AddAgentMessage appends a staff reply, either plain text or a product
// card pushed from catalog search.
func (s *Service) AddAgentMessage(ctx context.Context, conversationID, body string, card *model.ProductCard) (model.MessageItem, error) {
	body = strings.TrimSpace(body)
	if body == "" && card == nil {
		return model.MessageItem{}, newError(ErrorCodeEmptyMessage, "message body is empty", nil)
	}

	conversation, err := s.conversation(ctx, conversationID)
	if err != nil {
		return model.MessageItem{}, err
	}

	messageType := model.MessageText
	if card != nil {
		messageType = model.MessageProductCard
	}

	return s.appendMessage(ctx, conversation, model.SenderAgent, messageType, body, card)
}

// AddAIMessage appends an automated reply attributed to the assistant.
func (s *Service) AddAIMessage(ctx context.Context, conversationID, body string) (model.MessageItem, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return model.MessageItem{}, newError(ErrorCodeEmptyMessage, "message body is empty", nil)
	}

	conversation, err := s.conversation(ctx, conversationID)
	if err != nil {
		return model.MessageItem{}, err
	}

	return s.appendMessage(ctx, conversation, model.SenderAI, model.MessageText, body, nil)
}

func (s *Service) appendMessage(
	ctx context.Context,
	conversation model.ConversationItem,
	sender model.SenderType,
	messageType model.MessageType,
	body string,
	card *model.ProductCard,
) (model.MessageItem, error) {
	nowStr := s.now().UTC().Format(time.RFC3339)

	message := model.MessageItem{
		MessageID:      uuid.NewString(),
		ConversationID: conversation.ConversationID,
		SenderType:     sender,
		MessageType:    messageType,
		ContentText:    body,
		Card:           card,
		CreatedAt:      nowStr,
	}

	if err := s.repo.CreateMessage(ctx, message); err != nil {
		return model.MessageItem{}, newError(ErrorCodeInternal, "failed to save message", err)
	}
	if err := s.repo.TouchConversation(ctx, conversation.ConversationID, nowStr); err != nil {
		return model.MessageItem{}, newError(ErrorCodeInternal, "failed to update conversation", err)
	}

	return message, nil
}

type ListMessagesResult struct {
	Conversation model.ConversationItem
	Messages     []model.MessageItem
}

// ListMessagesSince returns transcript rows strictly newer than the since
// watermark (unix seconds), oldest first, capped to the most recent
// MessageWindowLimit rows. Pass visitorID to enforce widget ownership; the
// console passes an empty visitorID.
func (s *Service) ListMessagesSince(ctx context.Context, visitorID, conversationID string, since int64) (ListMessagesResult, error) {
	var conversation model.ConversationItem
	var err error
	if visitorID != "" {
		conversation, err = s.ownedConversation(ctx, visitorID, conversationID)
	} else {
		conversation, err = s.conversation(ctx, conversationID)
	}
	if err != nil {
		return ListMessagesResult{}, err
	}

	messages, err := s.repo.ListMessages(ctx, conversation.ConversationID, 0)
	if err != nil {
		return ListMessagesResult{}, newError(ErrorCodeInternal, "failed to list messages", err)
	}

	filtered := make([]model.MessageItem, 0, len(messages))
	for _, message := range messages {
		if MessageTS(message) <= since {
			continue
		}
		// Rows written by older builds may carry sender or type values
		// this build no longer knows; downgrade them before they reach
		// a client.
		message.SenderType = model.NormalizeSenderType(string(message.SenderType))
		message.MessageType = model.NormalizeMessageType(string(message.MessageType))
		filtered = append(filtered, message)
	}

	if len(filtered) > MessageWindowLimit {
		filtered = filtered[len(filtered)-MessageWindowLimit:]
	}

	return ListMessagesResult{
		Conversation: conversation,
		Messages:     filtered,
	}, nil
}

// Visitor loads one visitor profile.
func (s *Service) Visitor(ctx context.Context, visitorID string) (model.VisitorItem, error) {
	visitor, err := s.repo.GetVisitor(ctx, visitorID)
	if err != nil {
		if err == ErrNotFound {
			return model.VisitorItem{}, newError(ErrorCodeNotFound, "visitor not found", nil)
		}
		return model.VisitorItem{}, newError(ErrorCodeInternal, "failed to load visitor", err)
	}
	return visitor, nil
}

// MessageTS is the transcript ordering key, unix seconds of creation.
func MessageTS(message model.MessageItem) int64 {
	t := parseTime(message.CreatedAt)
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

type LeadParams struct {
	VisitorID  string
	Name       string
	Email      string
	Message    string
	CurrentURL string
}

// SaveLead stores an offline contact request and mirrors it into the
// visitor's transcript so staff see it when they come back online.
func (s *Service) SaveLead(ctx context.Context, params LeadParams) (model.LeadItem, error) {
	name := strings.TrimSpace(params.Name)
	body := strings.TrimSpace(params.Message)
	email := normalizeEmail(params.Email)

	if name == "" || body == "" {
		return model.LeadItem{}, newError(ErrorCodeInvalidLead, "lead name and message are required", nil)
	}
	if !isValidEmail(email) {
		return model.LeadItem{}, newError(ErrorCodeInvalidEmail, "lead email is invalid", nil)
	}

	visitorID := strings.TrimSpace(params.VisitorID)
	if visitorID == "" {
		visitorID = uuid.NewString()
	}

	lead := model.LeadItem{
		LeadID:     uuid.NewString(),
		VisitorID:  visitorID,
		Name:       name,
		Email:      email,
		Message:    body,
		CurrentURL: params.CurrentURL,
		CreatedAt:  s.now().UTC().Format(time.RFC3339),
	}
	if err := s.repo.PutLead(ctx, lead); err != nil {
		return model.LeadItem{}, newError(ErrorCodeInternal, "failed to save lead", err)
	}

	conversation, err := s.GetOrCreateConversation(ctx, visitorID)
	if err != nil {
		return model.LeadItem{}, err
	}

	transcriptLine := fmt.Sprintf("Offline lead from %s (%s): %s", name, email, body)
	_, err = s.appendMessage(ctx, conversation, model.SenderSystem, model.MessageSystem, transcriptLine, nil)
	if err != nil {
		return model.LeadItem{}, err
	}

	return lead, nil
}

// RecordTyping stores a typing signal. The preview rides along so the
// console can show what the visitor is about to send.
func (s *Service) RecordTyping(ctx context.Context, conversationID, visitorID string, actor model.ActorType, preview string) error {
	actor = model.NormalizeActorType(string(actor))
	conversation, err := s.conversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if actor == model.ActorVisitor && conversation.VisitorID != visitorID {
		return newError(ErrorCodeForbidden, "conversation does not belong to visitor", nil)
	}

	event := model.EventItem{
		EventID:        uuid.NewString(),
		ConversationID: conversation.ConversationID,
		VisitorID:      conversation.VisitorID,
		ActorType:      actor,
		EventType:      model.EventTyping,
		Preview:        utils.Truncate(preview, PreviewLength),
		CreatedAt:      s.now().UTC().Format(time.RFC3339),
	}
	if err := s.repo.PutEvent(ctx, event); err != nil {
		return newError(ErrorCodeInternal, "failed to save typing event", err)
	}
	return nil
}

type TypingState struct {
	Typing  bool
	Preview string
}

// TypingStateFor reports whether the counterparty of the given actor has
// typed within the staleness window.
func (s *Service) TypingStateFor(ctx context.Context, conversationID string, actor model.ActorType) (TypingState, error) {
	counterparty := model.ActorAgent
	if actor == model.ActorAgent {
		counterparty = model.ActorVisitor
	}

	event, err := s.repo.LatestEvent(ctx, conversationID, counterparty, model.EventTyping)
	if err != nil {
		if err == ErrNotFound {
			return TypingState{}, nil
		}
		return TypingState{}, newError(ErrorCodeInternal, "failed to load typing state", err)
	}

	at := parseTime(event.CreatedAt)
	if at.IsZero() || s.now().UTC().Sub(at) > TypingStaleness {
		return TypingState{}, nil
	}

	state := TypingState{Typing: true}
	// Previews stay on the staff side only.
	if actor == model.ActorAgent {
		state.Preview = event.Preview
	}
	return state, nil
}

type RosterEntry struct {
	Visitor       model.VisitorItem
	Conversation  model.ConversationItem
	Device        string
	LastMessage   string
	LastMessageAt int64
	LastSender    model.SenderType
}

// LiveVisitors builds the console roster: every visitor seen inside the
// liveness window, newest activity first, with their conversation and the
// preview of its latest message.
func (s *Service) LiveVisitors(ctx context.Context) ([]RosterEntry, error) {
	cutoff := s.now().UTC().Add(-VisitorLivenessWindow)

	visitors, err := s.repo.ListVisitorsSeenSince(ctx, cutoff, RosterLimit)
	if err != nil {
		return nil, newError(ErrorCodeInternal, "failed to list visitors", err)
	}

	entries := make([]RosterEntry, 0, len(visitors))
	for _, visitor := range visitors {
		entry := RosterEntry{
			Visitor: visitor,
			Device:  DeviceFromUserAgent(visitor.UserAgent),
		}

		conversation, err := s.repo.GetConversationByVisitor(ctx, visitor.VisitorID)
		if err != nil && err != ErrNotFound {
			return nil, newError(ErrorCodeInternal, "failed to load conversation", err)
		}
		if err == nil {
			entry.Conversation = conversation

			messages, err := s.repo.ListMessages(ctx, conversation.ConversationID, 1)
			if err != nil {
				return nil, newError(ErrorCodeInternal, "failed to load last message", err)
			}
			if len(messages) > 0 {
				last := messages[len(messages)-1]
				entry.LastMessage = utils.Truncate(previewText(last), PreviewLength)
				entry.LastMessageAt = MessageTS(last)
				entry.LastSender = last.SenderType
			}
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

// RetentionSweep deletes transcript rows and leads older than the
// retention period plus typing events older than an hour. Returns how
// many rows went away.
func (s *Service) RetentionSweep(ctx context.Context, retention time.Duration) (int, error) {
	if retention <= 0 {
		return 0, nil
	}
	now := s.now().UTC()
	total := 0

	deleted, err := s.repo.DeleteMessagesBefore(ctx, now.Add(-retention))
	total += deleted
	if err != nil {
		return total, newError(ErrorCodeInternal, "failed to sweep messages", err)
	}

	deleted, err = s.repo.DeleteEventsBefore(ctx, now.Add(-time.Hour))
	total += deleted
	if err != nil {
		return total, newError(ErrorCodeInternal, "failed to sweep events", err)
	}

	deleted, err = s.repo.DeleteLeadsBefore(ctx, now.Add(-retention))
	total += deleted
	if err != nil {
		return total, newError(ErrorCodeInternal, "failed to sweep leads", err)
	}

	return total, nil
}

func (s *Service) ownedConversation(ctx context.Context, visitorID, conversationID string) (model.ConversationItem, error) {
	conversation, err := s.conversation(ctx, conversationID)
	if err != nil {
		return model.ConversationItem{}, err
	}
	if conversation.VisitorID != visitorID {
		return model.ConversationItem{}, newError(ErrorCodeForbidden, "conversation does not belong to visitor", nil)
	}
	return conversation, nil
}

func (s *Service) conversation(ctx context.Context, conversationID string) (model.ConversationItem, error) {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return model.ConversationItem{}, newError(ErrorCodeMissingConversation, "conversation id required", nil)
	}

	conversation, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		if err == ErrNotFound {
			return model.ConversationItem{}, newError(ErrorCodeNotFound, "conversation not found", nil)
		}
		return model.ConversationItem{}, newError(ErrorCodeInternal, "failed to load conversation", err)
	}
	return conversation, nil
}

func appendPageVisit(history []model.PageVisit, visit model.PageVisit) []model.PageVisit {
	if n := len(history); n > 0 && history[n-1].URL == visit.URL {
		history[n-1] = visit
		return history
	}
	history = append(history, visit)
	if len(history) > PageHistoryLimit {
		history = history[len(history)-PageHistoryLimit:]
	}
	return history
}

func previewText(message model.MessageItem) string {
	if message.ContentText != "" {
		return message.ContentText
	}
	if message.Card != nil {
		return message.Card.Title
	}
	return ""
}

// DeviceFromUserAgent buckets a browser UA into the coarse device class
// shown on the roster.
func DeviceFromUserAgent(ua string) string {
	lower := strings.ToLower(ua)
	switch {
	case strings.Contains(lower, "ipad") || strings.Contains(lower, "tablet"):
		return "tablet"
	case strings.Contains(lower, "mobi") || strings.Contains(lower, "android") || strings.Contains(lower, "iphone"):
		return "mobile"
	case lower == "":
		return "unknown"
	}
	return "desktop"
}

func normalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	return strings.ToLower(email)
}

func isValidEmail(email string) bool {
	if email == "" {
		return false
	}
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}
	if parts[0] == "" || parts[1] == "" {
		return false
	}
	if !strings.Contains(parts[1], ".") {
		return false
	}
	return true
}
