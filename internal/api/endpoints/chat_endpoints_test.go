package endpoints

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"livechat-backend/internal/ai"
	"livechat-backend/internal/api"
	"livechat-backend/internal/api/middleware"
	"livechat-backend/internal/dto"
	"livechat-backend/internal/model"
	"livechat-backend/internal/queue"
	"livechat-backend/internal/service/catalog"
	"livechat-backend/internal/service/chat"
	"livechat-backend/internal/service/presence"
	"livechat-backend/internal/session"
	"livechat-backend/internal/version"
)

type memoryRepository struct {
	mu            sync.Mutex
	visitors      map[string]model.VisitorItem
	conversations map[string]model.ConversationItem
	messages      map[string][]model.MessageItem
	events        map[string][]model.EventItem
	leads         map[string]model.LeadItem
	products      map[string]model.ProductItem
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		visitors:      make(map[string]model.VisitorItem),
		conversations: make(map[string]model.ConversationItem),
		messages:      make(map[string][]model.MessageItem),
		events:        make(map[string][]model.EventItem),
		leads:         make(map[string]model.LeadItem),
		products:      make(map[string]model.ProductItem),
	}
}

func (m *memoryRepository) GetVisitor(ctx context.Context, visitorID string) (model.VisitorItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	visitor, ok := m.visitors[visitorID]
	if !ok {
		return model.VisitorItem{}, chat.ErrNotFound
	}
	return visitor, nil
}

func (m *memoryRepository) PutVisitor(ctx context.Context, visitor model.VisitorItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.visitors[visitor.VisitorID] = visitor
	return nil
}

func (m *memoryRepository) ListVisitorsSeenSince(ctx context.Context, since time.Time, limit int) ([]model.VisitorItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := since.UTC().Format(time.RFC3339)
	visitors := make([]model.VisitorItem, 0, len(m.visitors))
	for _, visitor := range m.visitors {
		if visitor.LastSeenAt >= cutoff {
			visitors = append(visitors, visitor)
		}
	}
	sort.Slice(visitors, func(i, j int) bool {
		return visitors[i].LastSeenAt > visitors[j].LastSeenAt
	})
	if limit > 0 && len(visitors) > limit {
		visitors = visitors[:limit]
	}
	return visitors, nil
}

func (m *memoryRepository) CreateConversation(ctx context.Context, conversation model.ConversationItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations[conversation.ConversationID] = conversation
	return nil
}

func (m *memoryRepository) GetConversation(ctx context.Context, conversationID string) (model.ConversationItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conversation, ok := m.conversations[conversationID]
	if !ok {
		return model.ConversationItem{}, chat.ErrNotFound
	}
	return conversation, nil
}

func (m *memoryRepository) GetConversationByVisitor(ctx context.Context, visitorID string) (model.ConversationItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, conversation := range m.conversations {
		if conversation.VisitorID == visitorID && conversation.Status == model.ConversationStatusOpen {
			return conversation, nil
		}
	}
	return model.ConversationItem{}, chat.ErrNotFound
}

func (m *memoryRepository) TouchConversation(ctx context.Context, conversationID, updatedAt string) error {
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

func (m *memoryRepository) CreateMessage(ctx context.Context, message model.MessageItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[message.ConversationID] = append(m.messages[message.ConversationID], message)
	return nil
}

func (m *memoryRepository) ListMessages(ctx context.Context, conversationID string, limit int) ([]model.MessageItem, error) {
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

func (m *memoryRepository) DeleteMessagesBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return 0, nil
}

func (m *memoryRepository) PutEvent(ctx context.Context, event model.EventItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[event.ConversationID] = append(m.events[event.ConversationID], event)
	return nil
}

func (m *memoryRepository) LatestEvent(ctx context.Context, conversationID string, actor model.ActorType, eventType string) (model.EventItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest model.EventItem
	found := false
	for _, event := range m.events[conversationID] {
		if event.ActorType != actor || event.EventType != eventType {
			continue
		}
		if !found || event.CreatedAt > latest.CreatedAt {
			latest = event
			found = true
		}
	}
	if !found {
		return model.EventItem{}, chat.ErrNotFound
	}
	return latest, nil
}

func (m *memoryRepository) DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return 0, nil
}

func (m *memoryRepository) PutLead(ctx context.Context, lead model.LeadItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leads[lead.LeadID] = lead
	return nil
}

func (m *memoryRepository) DeleteLeadsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return 0, nil
}

func (m *memoryRepository) GetProduct(ctx context.Context, productID string) (model.ProductItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, ok := m.products[productID]
	if !ok {
		return model.ProductItem{}, catalog.ErrNotFound
	}
	return product, nil
}

func (m *memoryRepository) SearchProducts(ctx context.Context, term string, limit int) ([]model.ProductItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matches := make([]model.ProductItem, 0)
	for _, product := range m.products {
		matches = append(matches, product)
	}
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

type chatTestEnv struct {
	handler  http.Handler
	repo     *memoryRepository
	chat     *chat.Service
	presence *presence.Service
}

func setupChatTestHandler(t *testing.T, responder *ai.Responder) chatTestEnv {
	t.Helper()

	session.ConfigureWidgetSecret("widget-test-secret")
	session.Configure("agent-test-secret", nil)

	repo := newMemoryRepository()
	now := time.Now
	chatSvc := chat.NewWithRepository(repo, now)
	presenceSvc := presence.NewService(presence.NewMemoryStore(nil))
	catalogSvc := catalog.NewService(repo)

	queueManager := queue.NewRequestQueueManager(10, 1)
	t.Cleanup(queueManager.Shutdown)

	server := api.NewAPIServer(":0", queueManager, nil, chatSvc, presenceSvc, catalogSvc, responder)

	chatEndpoints := NewChatEndpoints(chatSvc, presenceSvc, responder)
	inboxEndpoints := NewInboxEndpoints(chatSvc, presenceSvc, catalogSvc, responder)
	auth := middleware.ValidateAgentJWT()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat/v1/public-token", server.MakeHTTPHandleFunc(chatEndpoints.PublicToken))
	mux.HandleFunc("/api/chat/v1/presence", server.MakeHTTPHandleFunc(chatEndpoints.Presence))
	mux.HandleFunc("/api/chat/v1/message", server.MakeHTTPHandleFunc(chatEndpoints.Message))
	mux.HandleFunc("/api/chat/v1/lead", server.MakeHTTPHandleFunc(chatEndpoints.Lead))
	mux.HandleFunc("/api/chat/v1/typing", server.MakeHTTPHandleFunc(chatEndpoints.Typing))
	mux.HandleFunc("/api/chat/v1/messages", server.MakeHTTPHandleFunc(chatEndpoints.Messages))
	mux.HandleFunc("/api/chat/v1/conversation", server.MakeHTTPHandleFunc(chatEndpoints.Conversation))
	mux.HandleFunc("/api/chat/v1/visitors", server.MakeHTTPHandleFunc(inboxEndpoints.Visitors, auth))
	mux.HandleFunc("/api/chat/v1/agent/message", server.MakeHTTPHandleFunc(inboxEndpoints.AgentMessage, auth))
	mux.HandleFunc("/api/chat/v1/agent/typing", server.MakeHTTPHandleFunc(inboxEndpoints.AgentTyping, auth))
	mux.HandleFunc("/api/chat/v1/products/search", server.MakeHTTPHandleFunc(inboxEndpoints.ProductSearch, auth))
	mux.HandleFunc("/api/chat/v1/ai/reply", server.MakeHTTPHandleFunc(inboxEndpoints.AIReply, auth))

	return chatTestEnv{
		handler:  mux,
		repo:     repo,
		chat:     chatSvc,
		presence: presenceSvc,
	}
}

func widgetToken() string {
	// httptest requests carry no Origin header, so tokens for the empty
	// origin match them.
	return session.IssuePublicToken(time.Now, "")
}

func agentBearer(t *testing.T) string {
	t.Helper()
	token, err := session.CreateToken(session.Agent{Id: "agent-1", Email: "agent@example.com"}, 0)
	if err != nil {
		t.Fatalf("CreateToken error: %v", err)
	}
	return "Bearer " + token
}

func postJSON(t *testing.T, handler http.Handler, path string, payload any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestPublicTokenEndpoint(t *testing.T) {
	env := setupChatTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/chat/v1/public-token", nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp dto.PublicTokenResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("expected token")
	}
	if resp.PluginVersion != version.Build {
		t.Fatalf("expected plugin_version %s, got %s", version.Build, resp.PluginVersion)
	}
	if resp.ServerTS == 0 {
		t.Fatal("expected server_ts")
	}
}

func TestPresenceRejectsBadToken(t *testing.T) {
	env := setupChatTestHandler(t, nil)

	rec := postJSON(t, env.handler, "/api/chat/v1/presence", dto.PresenceRequest{Token: "garbage"}, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rec.Code)
	}

	var apiErr api.ApiError
	if err := json.NewDecoder(rec.Body).Decode(&apiErr); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if apiErr.Code != "bad_token" {
		t.Fatalf("expected code bad_token, got %s", apiErr.Code)
	}
}

func TestPresenceRejectsForeignOriginToken(t *testing.T) {
	env := setupChatTestHandler(t, nil)

	token := session.IssuePublicToken(time.Now, "https://shop.example")
	rec := postJSON(t, env.handler, "/api/chat/v1/presence", dto.PresenceRequest{Token: token},
		map[string]string{"Origin": "https://evil.example"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("token minted for another origin must be rejected, got %d", rec.Code)
	}

	rec = postJSON(t, env.handler, "/api/chat/v1/presence", dto.PresenceRequest{Token: token},
		map[string]string{"Origin": "https://shop.example"})
	if rec.Code != http.StatusOK {
		t.Fatalf("token must verify on its own origin, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestPresenceCreatesSession(t *testing.T) {
	env := setupChatTestHandler(t, nil)

	rec := postJSON(t, env.handler, "/api/chat/v1/presence", dto.PresenceRequest{
		Token:     widgetToken(),
		PageURL:   "https://shop.example/mugs",
		PageTitle: "Mugs",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.PresenceResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.VisitorID == "" || resp.ConversationID == "" {
		t.Fatalf("expected identifiers, got %+v", resp)
	}
	if resp.AgentOnline {
		t.Fatal("no agent has called in, agent_online must be false")
	}
	if resp.AIMode != "off" {
		t.Fatalf("expected ai_mode off with no responder, got %s", resp.AIMode)
	}
	if !resp.ShowLeadForm {
		t.Fatal("nobody online and no assistant, the lead form must show")
	}
}

func TestVisitorMessageFlow(t *testing.T) {
	env := setupChatTestHandler(t, nil)

	session, err := env.chat.EnsureSession(context.Background(), chat.SessionParams{})
	if err != nil {
		t.Fatalf("EnsureSession error: %v", err)
	}

	rec := postJSON(t, env.handler, "/api/chat/v1/message", dto.VisitorMessageRequest{
		Token:          widgetToken(),
		VisitorID:      session.Visitor.VisitorID,
		ConversationID: session.Conversation.ConversationID,
		Message:        "hello there",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.VisitorMessageResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Message.Text != "hello there" || resp.Message.Sender != "visitor" {
		t.Fatalf("unexpected message: %+v", resp.Message)
	}
	if resp.AIMessage != nil {
		t.Fatal("no responder configured, ai_message must be absent")
	}

	// Empty body maps to a 400 with a stable code.
	rec = postJSON(t, env.handler, "/api/chat/v1/message", dto.VisitorMessageRequest{
		Token:          widgetToken(),
		VisitorID:      session.Visitor.VisitorID,
		ConversationID: session.Conversation.ConversationID,
		Message:        "  ",
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	var apiErr api.ApiError
	json.NewDecoder(rec.Body).Decode(&apiErr)
	if apiErr.Code != "empty_message" {
		t.Fatalf("expected code empty_message, got %s", apiErr.Code)
	}
}

func TestConversationPublicOwnerFetch(t *testing.T) {
	env := setupChatTestHandler(t, nil)

	session, err := env.chat.EnsureSession(context.Background(), chat.SessionParams{Name: "Ann"})
	if err != nil {
		t.Fatalf("EnsureSession error: %v", err)
	}

	// No widget token, no Bearer: rejected.
	req := httptest.NewRequest(http.MethodGet, "/api/chat/v1/conversation?visitor_id="+session.Visitor.VisitorID, nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rec.Code)
	}

	// The widget token gets the visitor their own conversation, without
	// the staff-only profile block.
	req = httptest.NewRequest(http.MethodGet,
		"/api/chat/v1/conversation?visitor_id="+session.Visitor.VisitorID+"&token="+widgetToken(), nil)
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.ConversationResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ConversationID != session.Conversation.ConversationID {
		t.Fatalf("unexpected conversation id: %s", resp.ConversationID)
	}
	if resp.Visitor != nil {
		t.Fatalf("visitor profile must be staff-only, got %+v", resp.Visitor)
	}
}

func TestInboxRequiresAuth(t *testing.T) {
	env := setupChatTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/chat/v1/visitors", nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestAgentRosterAndMessageFlow(t *testing.T) {
	env := setupChatTestHandler(t, nil)
	bearer := agentBearer(t)

	session, err := env.chat.EnsureSession(context.Background(), chat.SessionParams{
		Name:    "Ann",
		PageURL: "https://shop.example/mugs",
	})
	if err != nil {
		t.Fatalf("EnsureSession error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/chat/v1/visitors", nil)
	req.Header.Set("Authorization", bearer)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var roster dto.VisitorsResponse
	if err := json.NewDecoder(rec.Body).Decode(&roster); err != nil {
		t.Fatalf("decode roster: %v", err)
	}
	if !roster.FullSync {
		t.Fatal("since=0 must be a full sync")
	}
	if len(roster.Visitors) != 1 || roster.Visitors[0].VisitorID != session.Visitor.VisitorID {
		t.Fatalf("unexpected roster: %+v", roster.Visitors)
	}

	// The roster call marked the agent live before counting.
	if !env.presence.AgentOnline(context.Background()) {
		t.Fatal("agent should be marked online after a staff call")
	}
	if roster.OnlineAgents != 1 {
		t.Fatalf("expected online_agents 1, got %d", roster.OnlineAgents)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/chat/v1/conversation?visitor_id="+session.Visitor.VisitorID, nil)
	req.Header.Set("Authorization", bearer)
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var conversation dto.ConversationResponse
	if err := json.NewDecoder(rec.Body).Decode(&conversation); err != nil {
		t.Fatalf("decode conversation: %v", err)
	}
	if conversation.ConversationID != session.Conversation.ConversationID {
		t.Fatalf("unexpected conversation id: %s", conversation.ConversationID)
	}
	if conversation.Visitor == nil || conversation.Visitor.Name != "Ann" {
		t.Fatalf("expected visitor profile, got %+v", conversation.Visitor)
	}

	rec = postJSON(t, env.handler, "/api/chat/v1/agent/message", dto.AgentMessageRequest{
		ConversationID: session.Conversation.ConversationID,
		Message:        "hi Ann, how can I help?",
	}, map[string]string{"Authorization": bearer})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var reply dto.AgentMessageResponse
	if err := json.NewDecoder(rec.Body).Decode(&reply); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if reply.Message.Sender != "agent" {
		t.Fatalf("expected agent sender, got %s", reply.Message.Sender)
	}
}

func TestAgentProductCardMessage(t *testing.T) {
	env := setupChatTestHandler(t, nil)
	bearer := agentBearer(t)

	env.repo.products["p-1"] = model.ProductItem{ProductID: "p-1", Title: "Blue Mug", Price: "12.00"}
	session, err := env.chat.EnsureSession(context.Background(), chat.SessionParams{})
	if err != nil {
		t.Fatalf("EnsureSession error: %v", err)
	}

	rec := postJSON(t, env.handler, "/api/chat/v1/agent/message", dto.AgentMessageRequest{
		ConversationID: session.Conversation.ConversationID,
		ProductID:      "p-1",
	}, map[string]string{"Authorization": bearer})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var reply dto.AgentMessageResponse
	if err := json.NewDecoder(rec.Body).Decode(&reply); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if reply.Message.Type != "product_card" || reply.Message.Card == nil {
		t.Fatalf("expected product card message, got %+v", reply.Message)
	}
	if reply.Message.Card.Title != "Blue Mug" {
		t.Fatalf("unexpected card: %+v", reply.Message.Card)
	}

	rec = postJSON(t, env.handler, "/api/chat/v1/agent/message", dto.AgentMessageRequest{
		ConversationID: session.Conversation.ConversationID,
		ProductID:      "missing",
	}, map[string]string{"Authorization": bearer})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
	var apiErr api.ApiError
	json.NewDecoder(rec.Body).Decode(&apiErr)
	if apiErr.Code != "product_not_found" {
		t.Fatalf("expected code product_not_found, got %s", apiErr.Code)
	}
}

func TestLeadEndpointValidation(t *testing.T) {
	env := setupChatTestHandler(t, nil)

	rec := postJSON(t, env.handler, "/api/chat/v1/lead", dto.LeadRequest{
		Token:   widgetToken(),
		Name:    "Ann",
		Email:   "bad-email",
		Message: "call me",
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	var apiErr api.ApiError
	json.NewDecoder(rec.Body).Decode(&apiErr)
	if apiErr.Code != "invalid_email" {
		t.Fatalf("expected code invalid_email, got %s", apiErr.Code)
	}

	rec = postJSON(t, env.handler, "/api/chat/v1/lead", dto.LeadRequest{
		Token:   widgetToken(),
		Name:    "Ann",
		Email:   "ann@example.com",
		Message: "call me",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp dto.LeadResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.LeadID == "" {
		t.Fatal("expected lead_id")
	}
}

func TestTypingRoundTrip(t *testing.T) {
	env := setupChatTestHandler(t, nil)
	bearer := agentBearer(t)

	session, err := env.chat.EnsureSession(context.Background(), chat.SessionParams{})
	if err != nil {
		t.Fatalf("EnsureSession error: %v", err)
	}

	rec := postJSON(t, env.handler, "/api/chat/v1/typing", dto.TypingRequest{
		Token:          widgetToken(),
		VisitorID:      session.Visitor.VisitorID,
		ConversationID: session.Conversation.ConversationID,
		Preview:        "do you have thi",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// Staff fetch sees the typing flag and the preview.
	req := httptest.NewRequest(http.MethodGet, "/api/chat/v1/messages?conversation_id="+session.Conversation.ConversationID, nil)
	req.Header.Set("Authorization", bearer)
	recGet := httptest.NewRecorder()
	env.handler.ServeHTTP(recGet, req)
	if recGet.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", recGet.Code, recGet.Body.String())
	}

	var messages dto.MessagesResponse
	if err := json.NewDecoder(recGet.Body).Decode(&messages); err != nil {
		t.Fatalf("decode messages: %v", err)
	}
	if !messages.Typing || messages.TypingPreview != "do you have thi" {
		t.Fatalf("expected typing preview for staff, got %+v", messages)
	}
}
