package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mycare-ai/intake/internal/conversation"
	"github.com/mycare-ai/intake/internal/interview"
	"github.com/mycare-ai/intake/internal/question"
)

type queryRequest struct {
	Query string `json:"query"`
}

type answerRequest struct {
	QuestionID string `json:"questionId"`
	Answer     any    `json:"answer"`
}

type selectRequest struct {
	ID string `json:"id"`
}

type createChatRequest struct {
	Title string `json:"title"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return false
	}
	return true
}

// writeSessionError maps interview and store errors to HTTP statuses.
func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, conversation.ErrUnknownSession):
		httpError(w, http.StatusNotFound, "not_found_error", "%v", err)
	case errors.Is(err, interview.ErrEmptyQuery):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
	case errors.Is(err, question.ErrInvalidAnswer), errors.Is(err, question.ErrNotAnswerable):
		httpError(w, http.StatusUnprocessableEntity, "invalid_answer_error", "%v", err)
	case errors.Is(err, interview.ErrInvalidTransition), errors.Is(err, interview.ErrStaleQuestion):
		httpError(w, http.StatusConflict, "conflict_error", "%v", err)
	default:
		httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
	}
}

func writeSession(w http.ResponseWriter, code int, store *conversation.Store, id string) {
	s, ok := store.Get(id)
	if !ok {
		writeSessionError(w, conversation.ErrUnknownSession)
		return
	}
	writeJSON(w, code, NewSnapshot(s))
}

func handleListChats(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store := deps.Manager.Store()
		writeJSON(w, http.StatusOK, newChatList(store.List(), store.ActiveID()))
	}
}

func handleCreateChat(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createChatRequest
		if r.ContentLength > 0 && !decodeBody(w, r, &req) {
			return
		}
		store := deps.Manager.Store()
		id := store.CreateWithTitle(req.Title)
		writeSession(w, http.StatusCreated, store, id)
	}
}

func handleGetActive(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := deps.Manager.Store().Active()
		if !ok {
			httpError(w, http.StatusNotFound, "not_found_error", "no active chat")
			return
		}
		writeJSON(w, http.StatusOK, NewSnapshot(s))
	}
}

// handleSelectChat switches the active chat. Unknown ids leave the
// selection unchanged.
func handleSelectChat(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req selectRequest
		if !decodeBody(w, r, &req) {
			return
		}
		store := deps.Manager.Store()
		store.Select(req.ID)
		writeJSON(w, http.StatusOK, map[string]string{"activeId": store.ActiveID()})
	}
}

func handleGetChat(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeSession(w, http.StatusOK, deps.Manager.Store(), chi.URLParam(r, "id"))
	}
}

func handleQuery(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req queryRequest
		if !decodeBody(w, r, &req) {
			return
		}
		id, err := deps.Manager.Query(r.Context(), req.Query)
		if err != nil {
			writeSessionError(w, err)
			return
		}
		writeSession(w, http.StatusAccepted, deps.Manager.Store(), id)
	}
}

func handleQueryChat(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req queryRequest
		if !decodeBody(w, r, &req) {
			return
		}
		id := chi.URLParam(r, "id")
		if err := deps.Manager.QueryTo(r.Context(), id, req.Query); err != nil {
			writeSessionError(w, err)
			return
		}
		writeSession(w, http.StatusAccepted, deps.Manager.Store(), id)
	}
}

func handleAnswer(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req answerRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.QuestionID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "questionId is required")
			return
		}
		id := chi.URLParam(r, "id")
		if err := deps.Manager.Answer(r.Context(), id, req.QuestionID, req.Answer); err != nil {
			writeSessionError(w, err)
			return
		}
		writeSession(w, http.StatusAccepted, deps.Manager.Store(), id)
	}
}
