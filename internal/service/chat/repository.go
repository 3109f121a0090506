package chat

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"livechat-backend/internal/database"
	"livechat-backend/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var ErrNotFound = errors.New("chat repository: not found")

type Repository interface {
	GetVisitor(ctx context.Context, visitorID string) (model.VisitorItem, error)
	PutVisitor(ctx context.Context, visitor model.VisitorItem) error
	ListVisitorsSeenSince(ctx context.Context, since time.Time, limit int) ([]model.VisitorItem, error)

	CreateConversation(ctx context.Context, conversation model.ConversationItem) error
	GetConversation(ctx context.Context, conversationID string) (model.ConversationItem, error)
	GetConversationByVisitor(ctx context.Context, visitorID string) (model.ConversationItem, error)
	TouchConversation(ctx context.Context, conversationID, updatedAt string) error

	CreateMessage(ctx context.Context, message model.MessageItem) error
	ListMessages(ctx context.Context, conversationID string, limit int) ([]model.MessageItem, error)
	DeleteMessagesBefore(ctx context.Context, cutoff time.Time) (int, error)

	PutEvent(ctx context.Context, event model.EventItem) error
	LatestEvent(ctx context.Context, conversationID string, actor model.ActorType, eventType string) (model.EventItem, error)
	DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int, error)

	PutLead(ctx context.Context, lead model.LeadItem) error
	DeleteLeadsBefore(ctx context.Context, cutoff time.Time) (int, error)
}

type DynamoRepository struct {
	db *database.Database
}

func NewDynamoRepository(db *database.Database) Repository {
	return &DynamoRepository{db: db}
}

func (r *DynamoRepository) GetVisitor(ctx context.Context, visitorID string) (model.VisitorItem, error) {
	var visitor model.VisitorItem
	err := r.db.Client.GetItem(
		ctx,
		model.VisitorsTable,
		map[string]types.AttributeValue{
			"visitorId": &types.AttributeValueMemberS{Value: visitorID},
		},
		&visitor,
	)
	if err != nil {
		if isNotFound(err) {
			return model.VisitorItem{}, ErrNotFound
		}
		return model.VisitorItem{}, err
	}
	return visitor, nil
}

func (r *DynamoRepository) PutVisitor(ctx context.Context, visitor model.VisitorItem) error {
	return r.db.Client.PutItem(ctx, model.VisitorsTable, visitor)
}

// ListVisitorsSeenSince returns visitors active within the liveness window,
// most recently seen first. RFC3339 UTC timestamps compare correctly as
// strings, so the cutoff can be pushed into the scan filter.
func (r *DynamoRepository) ListVisitorsSeenSince(ctx context.Context, since time.Time, limit int) ([]model.VisitorItem, error) {
	items, err := r.db.Client.ScanItems(
		ctx,
		model.VisitorsTable,
		"#lastSeenAt >= :since",
		map[string]types.AttributeValue{
			":since": &types.AttributeValueMemberS{Value: since.UTC().Format(time.RFC3339)},
		},
		map[string]string{
			"#lastSeenAt": "lastSeenAt",
		},
	)
	if err != nil {
		return nil, err
	}

	visitors := make([]model.VisitorItem, 0, len(items))
	for _, item := range items {
		var visitor model.VisitorItem
		if err := attributevalue.UnmarshalMap(item, &visitor); err != nil {
			return nil, err
		}
		visitors = append(visitors, visitor)
	}

	sort.Slice(visitors, func(i, j int) bool {
		return visitors[i].LastSeenAt > visitors[j].LastSeenAt
	})

	if limit > 0 && len(visitors) > limit {
		visitors = visitors[:limit]
	}

	return visitors, nil
}

func (r *DynamoRepository) CreateConversation(ctx context.Context, conversation model.ConversationItem) error {
	return r.db.Client.PutItem(ctx, model.ConversationsTable, conversation)
}

func (r *DynamoRepository) GetConversation(ctx context.Context, conversationID string) (model.ConversationItem, error) {
	var conversation model.ConversationItem
	err := r.db.Client.GetItem(
		ctx,
		model.ConversationsTable,
		map[string]types.AttributeValue{
			"conversationId": &types.AttributeValueMemberS{Value: conversationID},
		},
		&conversation,
	)
	if err != nil {
		if isNotFound(err) {
			return model.ConversationItem{}, ErrNotFound
		}
		return model.ConversationItem{}, err
	}
	return conversation, nil
}

func (r *DynamoRepository) GetConversationByVisitor(ctx context.Context, visitorID string) (model.ConversationItem, error) {
	items, err := r.db.Client.QueryItems(
		ctx,
		model.ConversationsTable,
		aws.String("byVisitor"),
		"visitorId = :visitorId",
		map[string]types.AttributeValue{
			":visitorId": &types.AttributeValueMemberS{Value: visitorID},
		},
		nil,
		nil,
	)
	if err != nil && !isIndexNotFound(err) {
		return model.ConversationItem{}, err
	}

	if (err != nil && isIndexNotFound(err)) || items == nil {
		items, err = r.db.Client.ScanItems(
			ctx,
			model.ConversationsTable,
			"visitorId = :visitorId",
			map[string]types.AttributeValue{
				":visitorId": &types.AttributeValueMemberS{Value: visitorID},
			},
			nil,
		)
		if err != nil {
			return model.ConversationItem{}, err
		}
	}

	if len(items) == 0 {
		return model.ConversationItem{}, ErrNotFound
	}

	// Closed conversations do not count; the caller opens a fresh one.
	conversations := make([]model.ConversationItem, 0, len(items))
	for _, item := range items {
		var conversation model.ConversationItem
		if err := attributevalue.UnmarshalMap(item, &conversation); err != nil {
			return model.ConversationItem{}, err
		}
		if conversation.Status != model.ConversationStatusOpen {
			continue
		}
		conversations = append(conversations, conversation)
	}
	if len(conversations) == 0 {
		return model.ConversationItem{}, ErrNotFound
	}

	// Newest conversation wins when a visitor somehow has several.
	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].CreatedAt > conversations[j].CreatedAt
	})

	return conversations[0], nil
}

func (r *DynamoRepository) TouchConversation(ctx context.Context, conversationID, updatedAt string) error {
	return r.db.Client.UpdateItem(
		ctx,
		model.ConversationsTable,
		map[string]types.AttributeValue{
			"conversationId": &types.AttributeValueMemberS{Value: conversationID},
		},
		"SET #updatedAt = :updatedAt",
		map[string]types.AttributeValue{
			":updatedAt": &types.AttributeValueMemberS{Value: updatedAt},
		},
		map[string]string{
			"#updatedAt": "updatedAt",
		},
		nil,
	)
}

func (r *DynamoRepository) CreateMessage(ctx context.Context, message model.MessageItem) error {
	return r.db.Client.PutItem(ctx, model.MessagesTable, message)
}

func (r *DynamoRepository) ListMessages(ctx context.Context, conversationID string, limit int) ([]model.MessageItem, error) {
	scanForward := true
	items, err := r.db.Client.QueryItems(
		ctx,
		model.MessagesTable,
		aws.String("byConversation"),
		"conversationId = :conversationId",
		map[string]types.AttributeValue{
			":conversationId": &types.AttributeValueMemberS{Value: conversationID},
		},
		nil,
		&scanForward,
	)
	if err != nil && !isIndexNotFound(err) {
		return nil, err
	}

	if (err != nil && isIndexNotFound(err)) || items == nil {
		items, err = r.db.Client.ScanItems(
			ctx,
			model.MessagesTable,
			"conversationId = :conversationId",
			map[string]types.AttributeValue{
				":conversationId": &types.AttributeValueMemberS{Value: conversationID},
			},
			nil,
		)
		if err != nil {
			return nil, err
		}
	}

	messages := make([]model.MessageItem, 0, len(items))
	for _, item := range items {
		var message model.MessageItem
		if err := attributevalue.UnmarshalMap(item, &message); err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}

	sort.Slice(messages, func(i, j int) bool {
		ti := parseTime(messages[i].CreatedAt)
		tj := parseTime(messages[j].CreatedAt)
		return ti.Before(tj)
	})

	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}

	return messages, nil
}

func (r *DynamoRepository) DeleteMessagesBefore(ctx context.Context, cutoff time.Time) (int, error) {
	items, err := r.db.Client.ScanItems(
		ctx,
		model.MessagesTable,
		"#createdAt < :cutoff",
		map[string]types.AttributeValue{
			":cutoff": &types.AttributeValueMemberS{Value: cutoff.UTC().Format(time.RFC3339)},
		},
		map[string]string{
			"#createdAt": "createdAt",
		},
	)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, item := range items {
		var message model.MessageItem
		if err := attributevalue.UnmarshalMap(item, &message); err != nil {
			return deleted, err
		}
		err := r.db.Client.DeleteItem(
			ctx,
			model.MessagesTable,
			map[string]types.AttributeValue{
				"messageId": &types.AttributeValueMemberS{Value: message.MessageID},
			},
		)
		if err != nil {
			return deleted, err
		}
		deleted++
	}

	return deleted, nil
}

func (r *DynamoRepository) PutEvent(ctx context.Context, event model.EventItem) error {
	return r.db.Client.PutItem(ctx, model.EventsTable, event)
}

func (r *DynamoRepository) LatestEvent(ctx context.Context, conversationID string, actor model.ActorType, eventType string) (model.EventItem, error) {
	items, err := r.db.Client.QueryItems(
		ctx,
		model.EventsTable,
		aws.String("byConversation"),
		"conversationId = :conversationId",
		map[string]types.AttributeValue{
			":conversationId": &types.AttributeValueMemberS{Value: conversationID},
		},
		nil,
		nil,
	)
	if err != nil && !isIndexNotFound(err) {
		return model.EventItem{}, err
	}

	if (err != nil && isIndexNotFound(err)) || items == nil {
		items, err = r.db.Client.ScanItems(
			ctx,
			model.EventsTable,
			"conversationId = :conversationId",
			map[string]types.AttributeValue{
				":conversationId": &types.AttributeValueMemberS{Value: conversationID},
			},
			nil,
		)
		if err != nil {
			return model.EventItem{}, err
		}
	}

	var latest model.EventItem
	found := false
	for _, item := range items {
		var event model.EventItem
		if err := attributevalue.UnmarshalMap(item, &event); err != nil {
			return model.EventItem{}, err
		}
		if event.ActorType != actor || event.EventType != eventType {
			continue
		}
		if !found || event.CreatedAt > latest.CreatedAt {
			latest = event
			found = true
		}
	}

	if !found {
		return model.EventItem{}, ErrNotFound
	}
	return latest, nil
}

func (r *DynamoRepository) DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	items, err := r.db.Client.ScanItems(
		ctx,
		model.EventsTable,
		"#createdAt < :cutoff",
		map[string]types.AttributeValue{
			":cutoff": &types.AttributeValueMemberS{Value: cutoff.UTC().Format(time.RFC3339)},
		},
		map[string]string{
			"#createdAt": "createdAt",
		},
	)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, item := range items {
		var event model.EventItem
		if err := attributevalue.UnmarshalMap(item, &event); err != nil {
			return deleted, err
		}
		err := r.db.Client.DeleteItem(
			ctx,
			model.EventsTable,
			map[string]types.AttributeValue{
				"eventId": &types.AttributeValueMemberS{Value: event.EventID},
			},
		)
		if err != nil {
			return deleted, err
		}
		deleted++
	}

	return deleted, nil
}

func (r *DynamoRepository) PutLead(ctx context.Context, lead model.LeadItem) error {
	return r.db.Client.PutItem(ctx, model.LeadsTable, lead)
}

func (r *DynamoRepository) DeleteLeadsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	items, err := r.db.Client.ScanItems(
		ctx,
		model.LeadsTable,
		"#createdAt < :cutoff",
		map[string]types.AttributeValue{
			":cutoff": &types.AttributeValueMemberS{Value: cutoff.UTC().Format(time.RFC3339)},
		},
		map[string]string{
			"#createdAt": "createdAt",
		},
	)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, item := range items {
		var lead model.LeadItem
		if err := attributevalue.UnmarshalMap(item, &lead); err != nil {
			return deleted, err
		}
		err := r.db.Client.DeleteItem(
			ctx,
			model.LeadsTable,
			map[string]types.AttributeValue{
				"leadId": &types.AttributeValueMemberS{Value: lead.LeadID},
			},
		)
		if err != nil {
			return deleted, err
		}
		deleted++
	}

	return deleted, nil
}

func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "item not found")
}

func isIndexNotFound(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "index") && strings.Contains(msg, "not") && strings.Contains(msg, "found")
}

func parseTime(ts string) time.Time {
	if ts == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return time.Time{}
	}
	return t
}
