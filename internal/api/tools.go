package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mycare-ai/intake/internal/storage"
)

// ToolRequest is the body of POST /api/tools.
type ToolRequest struct {
	QuestionID   string          `json:"questionId"`
	MainQuestion string          `json:"mainQuestion"`
	Question     string          `json:"question"`
	Answer       json.RawMessage `json:"answer"`
	Type         string          `json:"type"`
	Options      []string        `json:"options"`
}

var internalServerError = map[string]string{"error": "Internal Server Error"}

func handleCreateTool(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req ToolRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		rec, err := deps.Tools.CreateTool(storage.ToolRecord{
			QuestionID:   req.QuestionID,
			MainQuestion: req.MainQuestion,
			Question:     req.Question,
			Answer:       req.Answer,
			Type:         req.Type,
			Options:      req.Options,
		})
		if err != nil {
			slog.Error("failed to create tool record", "question_id", req.QuestionID, "error", err)
			writeJSON(w, http.StatusInternalServerError, internalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, rec)
	}
}

func handleListTools(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recs, err := deps.Tools.ListTools()
		if err != nil {
			slog.Error("failed to list tool records", "error", err)
			writeJSON(w, http.StatusInternalServerError, internalServerError)
			return
		}
		writeJSON(w, http.StatusOK, recs)
	}
}
