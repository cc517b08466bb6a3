// Package api exposes the chat sessions and the tool records over HTTP,
// a websocket event stream and MCP.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mycare-ai/intake/internal/conversation"
	"github.com/mycare-ai/intake/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// ToolStore persists tool records.
type ToolStore interface {
	CreateTool(rec storage.ToolRecord) (storage.ToolRecord, error)
	ListTools() ([]storage.ToolRecord, error)
}

type Deps struct {
	Manager        *conversation.Manager
	Tools          ToolStore
	AllowedOrigins []string
}

// NewHandler returns the HTTP handler serving the whole API.
func NewHandler(deps Deps) http.Handler {
	if len(deps.AllowedOrigins) == 0 {
		deps.AllowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: deps.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Requested-With"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/tools", handleListTools(deps))
		r.Post("/tools", handleCreateTool(deps))

		r.Post("/query", handleQuery(deps))

		r.Get("/chats", handleListChats(deps))
		r.Post("/chats", handleCreateChat(deps))
		r.Get("/chats/active", handleGetActive(deps))
		r.Put("/chats/active", handleSelectChat(deps))
		r.Get("/chats/{id}", handleGetChat(deps))
		r.Post("/chats/{id}/query", handleQueryChat(deps))
		r.Post("/chats/{id}/answer", handleAnswer(deps))
		r.Get("/chats/{id}/events", handleEvents(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
