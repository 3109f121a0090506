package ai

import (
	"context"
	"sort"
	"sync"
	"time"

	"livechat-backend/internal/model"
	"livechat-backend/internal/service/chat"
)

// chatMemoryRepo is a minimal chat.Repository for responder tests.
type chatMemoryRepo struct {
	mu            sync.Mutex
	visitors      map[string]model.VisitorItem
	conversations map[string]model.ConversationItem
	messages      map[string][]model.MessageItem
	events        map[string][]model.EventItem
}

func newChatMemoryRepo() *chatMemoryRepo {
	return &chatMemoryRepo{
		visitors:      make(map[string]model.VisitorItem),
		conversations: make(map[string]model.ConversationItem),
		messages:      make(map[string][]model.MessageItem),
		events:        make(map[string][]model.EventItem),
	}
}

func (m *chatMemoryRepo) GetVisitor(ctx context.Context, visitorID string) (model.VisitorItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	visitor, ok := m.visitors[visitorID]
	if !ok {
		return model.VisitorItem{}, chat.ErrNotFound
	}
	return visitor, nil
}

func (m *chatMemoryRepo) PutVisitor(ctx context.Context, visitor model.VisitorItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.visitors[visitor.VisitorID] = visitor
	return nil
}

func (m *chatMemoryRepo) ListVisitorsSeenSince(ctx context.Context, since time.Time, limit int) ([]model.VisitorItem, error) {
	return nil, nil
}

func (m *chatMemoryRepo) CreateConversation(ctx context.Context, conversation model.ConversationItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations[conversation.ConversationID] = conversation
	return nil
}

func (m *chatMemoryRepo) GetConversation(ctx context.Context, conversationID string) (model.ConversationItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conversation, ok := m.conversations[conversationID]
	if !ok {
		return model.ConversationItem{}, chat.ErrNotFound
	}
	return conversation, nil
}

func (m *chatMemoryRepo) GetConversationByVisitor(ctx context.Context, visitorID string) (model.ConversationItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, conversation := range m.conversations {
		if conversation.VisitorID == visitorID && conversation.Status == model.ConversationStatusOpen {
			return conversation, nil
		}
	}
	return model.ConversationItem{}, chat.ErrNotFound
}

func (m *chatMemoryRepo) TouchConversation(ctx context.Context, conversationID, updatedAt string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conversation, ok := m.conversations[conversationID]
	if !ok {
		return chat.ErrNotFound
	}
	conversation.UpdatedAt = updatedAt
	m.conversations[conversationID] = conversation
	return nil
}

func (m *chatMemoryRepo) CreateMessage(ctx context.Context, message model.MessageItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[message.ConversationID] = append(m.messages[message.ConversationID], message)
	return nil
}

func (m *chatMemoryRepo) ListMessages(ctx context.Context, conversationID string, limit int) ([]model.MessageItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	messages := append([]model.MessageItem(nil), m.messages[conversationID]...)
	sort.Slice(messages, func(i, j int) bool {
		return messages[i].CreatedAt < messages[j].CreatedAt
	})
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return messages, nil
}

func (m *chatMemoryRepo) DeleteMessagesBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return 0, nil
}

func (m *chatMemoryRepo) PutEvent(ctx context.Context, event model.EventItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[event.ConversationID] = append(m.events[event.ConversationID], event)
	return nil
}

func (m *chatMemoryRepo) LatestEvent(ctx context.Context, conversationID string, actor model.ActorType, eventType string) (model.EventItem, error) {
	return model.EventItem{}, chat.ErrNotFound
}

func (m *chatMemoryRepo) DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return 0, nil
}

func (m *chatMemoryRepo) PutLead(ctx context.Context, lead model.LeadItem) error {
	return nil
}

func (m *chatMemoryRepo) DeleteLeadsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return 0, nil
}
