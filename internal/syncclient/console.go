package syncclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"livechat-backend/internal/dto"
)

const (
	// ConsolePollInterval drives both roster and transcript polls.
	ConsolePollInterval = 2 * time.Second

	// ConsoleTypingDebounce is the staff-side typing debounce, slightly
	// tighter than the widget's.
	ConsoleTypingDebounce = 350 * time.Millisecond
)

// Console is the staff-side poll loop: one roster poll plus, when a
// visitor is selected, one transcript poll per cadence.
type Console struct {
	client *Client
	roster *Roster
	now    func() time.Time

	transcript     *Transcript
	conversationID string

	lastPoll time.Time

	VisitorTyping        bool
	VisitorTypingPreview string

	pendingTyping bool
	typingPreview string
	lastInputAt   time.Time

	OnRoster   func([]dto.RosterVisitor)
	OnMessages func([]dto.Message)
}

func NewConsole(client *Client, now func() time.Time) *Console {
	if now == nil {
		now = time.Now
	}
	return &Console{
		client: client,
		roster: NewRoster(),
		now:    now,
	}
}

func (c *Console) Roster() *Roster {
	return c.roster
}

func (c *Console) ConversationID() string {
	return c.conversationID
}

// Select opens a visitor's conversation, creating it lazily server-side,
// and resets the transcript watermark.
func (c *Console) Select(ctx context.Context, visitorID string) error {
	var resp dto.ConversationResponse
	path := "/conversation?visitor_id=" + visitorID
	if err := c.client.Do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return err
	}

	c.roster.Selected = visitorID
	c.conversationID = resp.ConversationID
	c.transcript = NewTranscript()
	c.VisitorTyping = false
	c.VisitorTypingPreview = ""
	return nil
}

// Tick runs the due polls at the current clock reading.
func (c *Console) Tick(ctx context.Context) {
	now := c.now()

	if c.pendingTyping && now.Sub(c.lastInputAt) >= ConsoleTypingDebounce {
		c.flushTyping(ctx)
	}

	if !c.lastPoll.IsZero() && now.Sub(c.lastPoll) < ConsolePollInterval {
		return
	}
	c.lastPoll = now

	c.pollRoster(ctx, now)
	if c.roster.Selected != "" && c.conversationID != "" {
		c.pollTranscript(ctx)
	}
}

// Run drives Tick until the context ends.
func (c *Console) Run(ctx context.Context) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Tick(ctx)
		}
	}
}

func (c *Console) pollRoster(ctx context.Context, now time.Time) {
	path := fmt.Sprintf("/visitors?since=%d", c.roster.SinceParam())

	var resp dto.VisitorsResponse
	if err := c.client.Do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return
	}

	selectedBefore := c.roster.Selected
	c.roster.Apply(resp, now)
	if selectedBefore != "" && c.roster.Selected == "" {
		// Selection evicted with its visitor; drop the transcript pane.
		c.conversationID = ""
		c.transcript = nil
	}

	if c.OnRoster != nil {
		c.OnRoster(c.roster.Sorted())
	}
}

func (c *Console) pollTranscript(ctx context.Context) {
	path := fmt.Sprintf("/messages?conversation_id=%s&since=%d", c.conversationID, c.transcript.Since())

	var resp dto.MessagesResponse
	if err := c.client.Do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return
	}

	c.VisitorTyping = resp.Typing
	c.VisitorTypingPreview = resp.TypingPreview

	if fresh := c.transcript.Apply(resp.Messages); len(fresh) > 0 && c.OnMessages != nil {
		c.OnMessages(fresh)
	}
}

// Send posts a staff reply to the open conversation.
func (c *Console) Send(ctx context.Context, text string) error {
	body := map[string]any{
		"conversation_id": c.conversationID,
		"message":         text,
	}
	var resp dto.AgentMessageResponse
	if err := c.client.Do(ctx, http.MethodPost, "/agent/message", body, &resp); err != nil {
		return err
	}
	if fresh := c.transcript.Apply([]dto.Message{resp.Message}); len(fresh) > 0 && c.OnMessages != nil {
		c.OnMessages(fresh)
	}
	c.pendingTyping = false
	return nil
}

// SendProduct pushes a product card into the open conversation.
func (c *Console) SendProduct(ctx context.Context, productID string) error {
	body := map[string]any{
		"conversation_id": c.conversationID,
		"product_id":      productID,
	}
	var resp dto.AgentMessageResponse
	if err := c.client.Do(ctx, http.MethodPost, "/agent/message", body, &resp); err != nil {
		return err
	}
	if fresh := c.transcript.Apply([]dto.Message{resp.Message}); len(fresh) > 0 && c.OnMessages != nil {
		c.OnMessages(fresh)
	}
	return nil
}

// SearchProducts queries the catalog for the product picker.
func (c *Console) SearchProducts(ctx context.Context, term string) (dto.ProductSearchResponse, error) {
	var resp dto.ProductSearchResponse
	err := c.client.Do(ctx, http.MethodGet, "/products/search?q="+term, nil, &resp)
	return resp, err
}

// DraftReply asks the assistant for a suggested reply.
func (c *Console) DraftReply(ctx context.Context) (string, error) {
	body := map[string]any{
		"conversation_id": c.conversationID,
	}
	var resp dto.AIReplyResponse
	if err := c.client.Do(ctx, http.MethodPost, "/ai/reply", body, &resp); err != nil {
		return "", err
	}
	return resp.Draft, nil
}

// InputChanged restarts the typing debounce with the current draft.
func (c *Console) InputChanged(text string) {
	c.typingPreview = text
	c.pendingTyping = true
	c.lastInputAt = c.now()
}

func (c *Console) flushTyping(ctx context.Context) {
	c.pendingTyping = false

	body := map[string]any{
		"conversation_id": c.conversationID,
		"preview":         c.typingPreview,
	}
	var resp dto.TypingResponse
	_ = c.client.Do(ctx, http.MethodPost, "/agent/typing", body, &resp)
}
