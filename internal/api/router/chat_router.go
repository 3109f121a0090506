package router

import (
	"net/http"

	"livechat-backend/internal/api"
	"livechat-backend/internal/api/endpoints"
)

// ChatRoutes registers the public widget surface.
func ChatRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		chatEndpoints := endpoints.NewChatEndpoints(s.Chat(), s.Presence(), s.Responder())

		mux.HandleFunc(prefix+"/public-token", s.MakeHTTPHandleFunc(chatEndpoints.PublicToken))
		mux.HandleFunc(prefix+"/presence", s.MakeHTTPHandleFunc(chatEndpoints.Presence))
		mux.HandleFunc(prefix+"/message", s.MakeHTTPHandleFunc(chatEndpoints.Message))
		mux.HandleFunc(prefix+"/lead", s.MakeHTTPHandleFunc(chatEndpoints.Lead))
		mux.HandleFunc(prefix+"/typing", s.MakeHTTPHandleFunc(chatEndpoints.Typing))
		mux.HandleFunc(prefix+"/messages", s.MakeHTTPHandleFunc(chatEndpoints.Messages))
		mux.HandleFunc(prefix+"/conversation", s.MakeHTTPHandleFunc(chatEndpoints.Conversation))
	}
}
