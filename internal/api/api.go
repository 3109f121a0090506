package api

import (
	"fmt"
	"net/http"

	"livechat-backend/internal/ai"
	"livechat-backend/internal/database"
	"livechat-backend/internal/queue"
	"livechat-backend/internal/service/catalog"
	"livechat-backend/internal/service/chat"
	"livechat-backend/internal/service/presence"

	"github.com/prometheus/client_golang/prometheus"
)

type RouteRegistrar func(mux *http.ServeMux, s *APIServer)

type APIServer struct {
	listenAddr          string
	requestQueueManager *queue.RequestQueueManager
	db                  *database.Database
	chat                *chat.Service
	presence            *presence.Service
	catalog             *catalog.Service
	responder           *ai.Responder
	routeRegistrars     []RouteRegistrar
	metrics             *metrics
}

func NewAPIServer(
	listenAddr string,
	rqm *queue.RequestQueueManager,
	db *database.Database,
	chatService *chat.Service,
	presenceService *presence.Service,
	catalogService *catalog.Service,
	responder *ai.Responder,
	registrars ...RouteRegistrar,
) *APIServer {

	return &APIServer{
		listenAddr:          listenAddr,
		requestQueueManager: rqm,
		db:                  db,
		chat:                chatService,
		presence:            presenceService,
		catalog:             catalogService,
		responder:           responder,
		routeRegistrars:     registrars,
		metrics:             newMetrics(prometheus.DefaultRegisterer, listenAddr, rqm),
	}
}

func (s *APIServer) Run() {
	mux := http.NewServeMux()

	for _, reg := range s.routeRegistrars {
		reg(mux, s)
	}

	mux.Handle("/metrics", s.metrics.metricsHandler())

	fmt.Printf("Server listening on http://localhost%s\n", s.listenAddr)

	if err := http.ListenAndServe(s.listenAddr, s.metrics.instrument(mux)); err != nil {
		fmt.Printf("server stopped: %v\n", err)
	}
}

func (s *APIServer) Database() *database.Database {
	return s.db
}

func (s *APIServer) Chat() *chat.Service {
	return s.chat
}

func (s *APIServer) Presence() *presence.Service {
	return s.presence
}

func (s *APIServer) Catalog() *catalog.Service {
	return s.catalog
}

func (s *APIServer) Responder() *ai.Responder {
	return s.responder
}
