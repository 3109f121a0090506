package model

type ConversationStatus string

const (
	ConversationStatusOpen   ConversationStatus = "open"
	ConversationStatusClosed ConversationStatus = "closed"
)

// Sender and message types are closed sets. Unknown values arriving at the
// write path are downgraded (see NormalizeSenderType / NormalizeMessageType)
// instead of rejected, keeping the channel available to malformed callers.
type SenderType string

const (
	SenderVisitor SenderType = "visitor"
	SenderAgent   SenderType = "agent"
	SenderAI      SenderType = "ai"
	SenderSystem  SenderType = "system"
)

type MessageType string

const (
	MessageText        MessageType = "text"
	MessageProductCard MessageType = "product_card"
	MessageSystem      MessageType = "system"
)

type ActorType string

const (
	ActorVisitor ActorType = "visitor"
	ActorAgent   ActorType = "agent"
)

const EventTyping = "typing"

func NormalizeSenderType(s string) SenderType {
	switch SenderType(s) {
	case SenderVisitor, SenderAgent, SenderAI, SenderSystem:
		return SenderType(s)
	}
	return SenderSystem
}

func NormalizeMessageType(s string) MessageType {
	switch MessageType(s) {
	case MessageText, MessageProductCard, MessageSystem:
		return MessageType(s)
	}
	return MessageText
}

func NormalizeActorType(s string) ActorType {
	if ActorType(s) == ActorAgent {
		return ActorAgent
	}
	return ActorVisitor
}

type ConversationItem struct {
	ConversationID string             `dynamodbav:"conversationId"`
	VisitorID      string             `dynamodbav:"visitorId"`
	Status         ConversationStatus `dynamodbav:"status"`
	CreatedAt      string             `dynamodbav:"createdAt"`
	UpdatedAt      string             `dynamodbav:"updatedAt"`
}

// ProductCard is the structured payload of product_card messages. Same
// shape is returned by catalog search so the console can send results
// straight into a conversation.
type ProductCard struct {
	ProductID string `dynamodbav:"productId" json:"product_id"`
	Title     string `dynamodbav:"title" json:"title"`
	Price     string `dynamodbav:"price" json:"price"`
	Excerpt   string `dynamodbav:"excerpt,omitempty" json:"excerpt,omitempty"`
	URL       string `dynamodbav:"url,omitempty" json:"url,omitempty"`
	Image     string `dynamodbav:"image,omitempty" json:"image,omitempty"`
	SKU       string `dynamodbav:"sku,omitempty" json:"sku,omitempty"`
}

type MessageItem struct {
	MessageID      string       `dynamodbav:"messageId"`
	ConversationID string       `dynamodbav:"conversationId"`
	SenderType     SenderType   `dynamodbav:"senderType"`
	MessageType    MessageType  `dynamodbav:"messageType"`
	ContentText    string       `dynamodbav:"contentText,omitempty"`
	Card           *ProductCard `dynamodbav:"card,omitempty"`
	Meta           string       `dynamodbav:"meta,omitempty"`
	CreatedAt      string       `dynamodbav:"createdAt"`
}

// EventItem is an ephemeral liveness signal, not part of the transcript.
type EventItem struct {
	EventID        string    `dynamodbav:"eventId"`
	ConversationID string    `dynamodbav:"conversationId"`
	VisitorID      string    `dynamodbav:"visitorId,omitempty"`
	ActorType      ActorType `dynamodbav:"actorType"`
	EventType      string    `dynamodbav:"eventType"`
	Preview        string    `dynamodbav:"preview,omitempty"`
	CreatedAt      string    `dynamodbav:"createdAt"`
}
