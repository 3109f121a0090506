package syncclient

import (
	"context"
	"net/http"
	"time"

	"livechat-backend/internal/dto"
)

const (
	// MessagePollInterval drives transcript fetches while the panel is
	// open.
	MessagePollInterval = 2 * time.Second

	// PresenceInterval drives the background liveness poll while the
	// widget sits collapsed.
	PresenceInterval = 10 * time.Second

	// WidgetTypingDebounce is how long input must be quiet before a
	// typing signal goes out.
	WidgetTypingDebounce = 450 * time.Millisecond

	// Two consecutive failed polls raise the widget's connection notice.
	// A success resets the streak but leaves a raised notice up, and
	// re-emission is damped to once per FailureNoticeWindow.
	FailureNoticeThreshold = 2
	FailureNoticeWindow    = 30 * time.Second
)

type WidgetState int

const (
	WidgetIdle WidgetState = iota
	WidgetOpen
)

// Widget is the visitor-side poll loop. Tick is the only time-driven
// entry point; Run just calls it on a coarse ticker.
type Widget struct {
	client     *Client
	transcript *Transcript
	now        func() time.Time

	state          WidgetState
	visitorID      string
	conversationID string

	PageURL   string
	PageTitle string
	Referrer  string

	lastPoll time.Time

	failures     int
	lastNoticeAt time.Time

	// Mirrors of the latest poll response.
	AgentOnline  bool
	AgentTyping  bool
	AIMode       string
	ShowLeadForm bool
	CookieNotice string

	// ConnectionNotice stays up once raised; successful polls reset the
	// failure streak but never retract it.
	ConnectionNotice bool

	pendingTyping bool
	typingPreview string
	lastInputAt   time.Time

	// OnMessages receives newly rendered rows.
	OnMessages func([]dto.Message)

	// OnConnectionNotice fires each time the notice is emitted.
	OnConnectionNotice func()
}

func NewWidget(client *Client, now func() time.Time) *Widget {
	if now == nil {
		now = time.Now
	}
	return &Widget{
		client:     client,
		transcript: NewTranscript(),
		now:        now,
	}
}

func (w *Widget) State() WidgetState {
	return w.state
}

func (w *Widget) VisitorID() string {
	return w.visitorID
}

func (w *Widget) ConversationID() string {
	return w.conversationID
}

// Open expands the chat panel, switching to the fast poll cadence.
func (w *Widget) Open() {
	w.state = WidgetOpen
}

// Close collapses the panel; polling drops back to presence cadence.
func (w *Widget) Close() {
	w.state = WidgetIdle
}

// Tick runs whatever is due at the current clock reading.
func (w *Widget) Tick(ctx context.Context) {
	now := w.now()

	if w.pendingTyping && now.Sub(w.lastInputAt) >= WidgetTypingDebounce {
		w.flushTyping(ctx)
	}

	interval := PresenceInterval
	if w.state == WidgetOpen {
		interval = MessagePollInterval
	}
	if w.lastPoll.IsZero() || now.Sub(w.lastPoll) >= interval {
		w.poll(ctx)
		w.lastPoll = now
	}
}

// Run drives Tick until the context ends.
func (w *Widget) Run(ctx context.Context) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

func (w *Widget) poll(ctx context.Context) {
	body := map[string]any{
		"visitor_id": w.visitorID,
		"page_url":   w.PageURL,
		"page_title": w.PageTitle,
		"referrer":   w.Referrer,
		"since":      w.transcript.Since(),
	}

	var resp dto.PresenceResponse
	if err := w.client.Do(ctx, http.MethodPost, "/presence", body, &resp); err != nil {
		w.recordFailure()
		return
	}
	w.recordSuccess()

	w.visitorID = resp.VisitorID
	w.conversationID = resp.ConversationID
	w.AgentOnline = resp.AgentOnline
	w.AgentTyping = resp.Typing
	w.AIMode = resp.AIMode
	w.ShowLeadForm = resp.ShowLeadForm
	w.CookieNotice = resp.CookieNotice

	if fresh := w.transcript.Apply(resp.Messages); len(fresh) > 0 && w.OnMessages != nil {
		w.OnMessages(fresh)
	}
}

func (w *Widget) recordFailure() {
	now := w.now()
	w.failures++
	if w.failures < FailureNoticeThreshold {
		return
	}
	if !w.lastNoticeAt.IsZero() && now.Sub(w.lastNoticeAt) < FailureNoticeWindow {
		return
	}
	w.lastNoticeAt = now
	w.ConnectionNotice = true
	if w.OnConnectionNotice != nil {
		w.OnConnectionNotice()
	}
}

func (w *Widget) recordSuccess() {
	w.failures = 0
}

// Send posts a visitor message and renders it, plus any inline assistant
// reply, immediately.
func (w *Widget) Send(ctx context.Context, text string) error {
	body := map[string]any{
		"visitor_id":      w.visitorID,
		"conversation_id": w.conversationID,
		"message":         text,
	}

	var resp dto.VisitorMessageResponse
	if err := w.client.Do(ctx, http.MethodPost, "/message", body, &resp); err != nil {
		return err
	}

	rendered := []dto.Message{resp.Message}
	if resp.AIMessage != nil {
		rendered = append(rendered, *resp.AIMessage)
	}
	if fresh := w.transcript.Apply(rendered); len(fresh) > 0 && w.OnMessages != nil {
		w.OnMessages(fresh)
	}

	w.pendingTyping = false
	return nil
}

// SubmitLead sends the offline contact form.
func (w *Widget) SubmitLead(ctx context.Context, name, email, message string) error {
	body := map[string]any{
		"visitor_id": w.visitorID,
		"name":       name,
		"email":      email,
		"message":    message,
		"page_url":   w.PageURL,
	}
	var resp dto.LeadResponse
	return w.client.Do(ctx, http.MethodPost, "/lead", body, &resp)
}

// InputChanged restarts the typing debounce with the current draft.
func (w *Widget) InputChanged(text string) {
	w.typingPreview = text
	w.pendingTyping = true
	w.lastInputAt = w.now()
}

func (w *Widget) flushTyping(ctx context.Context) {
	w.pendingTyping = false

	body := map[string]any{
		"visitor_id":      w.visitorID,
		"conversation_id": w.conversationID,
		"preview":         w.typingPreview,
	}
	var resp dto.TypingResponse
	// Best effort; a lost typing signal corrects itself on the next one.
	_ = w.client.Do(ctx, http.MethodPost, "/typing", body, &resp)
}

func (w *Widget) Messages() []dto.Message {
	return w.transcript.Messages()
}
