package router

import (
	"net/http"

	"livechat-backend/internal/api"
	"livechat-backend/internal/api/endpoints"
	"livechat-backend/internal/api/middleware"
)

// InboxRoutes registers the staff console surface behind agent JWT auth.
func InboxRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		inboxEndpoints := endpoints.NewInboxEndpoints(s.Chat(), s.Presence(), s.Catalog(), s.Responder())
		agentEndpoints := endpoints.NewAgentEndpoints()
		auth := middleware.ValidateAgentJWT()

		// Session issuance and refresh run without the JWT check; the
		// refresh caller's access token has usually expired already.
		mux.HandleFunc(prefix+"/agent/session", s.MakeHTTPHandleFunc(agentEndpoints.Session))
		mux.HandleFunc(prefix+"/agent/refresh", s.MakeHTTPHandleFunc(agentEndpoints.Refresh))

		mux.HandleFunc(prefix+"/visitors", s.MakeHTTPHandleFunc(inboxEndpoints.Visitors, auth))
		mux.HandleFunc(prefix+"/agent/message", s.MakeHTTPHandleFunc(inboxEndpoints.AgentMessage, auth))
		mux.HandleFunc(prefix+"/agent/typing", s.MakeHTTPHandleFunc(inboxEndpoints.AgentTyping, auth))
		mux.HandleFunc(prefix+"/products/search", s.MakeHTTPHandleFunc(inboxEndpoints.ProductSearch, auth))
		mux.HandleFunc(prefix+"/ai/reply", s.MakeHTTPHandleFunc(inboxEndpoints.AIReply, auth))
	}
}
