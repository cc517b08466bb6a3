package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	"github.com/mycare-ai/intake/internal/conversation"
)

const eventBuffer = 16

// handleEvents streams a snapshot of the chat on connect and after every
// change to it until the client goes away.
func handleEvents(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		store := deps.Manager.Store()

		// Subscribe before reading the initial snapshot so no change is missed.
		events, unsubscribe := store.Subscribe(eventBuffer)
		defer unsubscribe()

		initial, ok := store.Get(id)
		if !ok {
			writeSessionError(w, conversation.ErrUnknownSession)
			return
		}

		ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: originPatterns(deps.AllowedOrigins),
		})
		if err != nil {
			slog.Warn("failed to accept websocket", "session_id", id, "error", err)
			return
		}
		defer ws.Close(websocket.StatusNormalClosure, "stream ended")

		// Reads are only needed to observe the client closing.
		ctx := ws.CloseRead(r.Context())

		if err := writeSnapshot(ctx, ws, NewSnapshot(initial)); err != nil {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				if ev.SessionID != id || ev.Session == nil {
					continue
				}
				if err := writeSnapshot(ctx, ws, NewSnapshot(ev.Session)); err != nil {
					slog.Debug("websocket write failed", "session_id", id, "error", err)
					return
				}
			}
		}
	}
}

func writeSnapshot(ctx context.Context, ws *websocket.Conn, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return ws.Write(ctx, websocket.MessageText, data)
}

// originPatterns converts CORS origins to the host patterns websocket.Accept
// matches against.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimPrefix(o, "https://")
		o = strings.TrimPrefix(o, "http://")
		out = append(out, strings.TrimSuffix(o, "/"))
	}
	return out
}
