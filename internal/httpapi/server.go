// Package httpapi exposes the conversation over HTTP: the rendered page,
// the JSON API, the live events stream, and bearer-protected history
// endpoints backed by the archive.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/verasca/lociq/internal/answer"
	"github.com/verasca/lociq/internal/archive"
	"github.com/verasca/lociq/internal/conversation"
	"github.com/verasca/lociq/internal/webui"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Submitter runs one answer request through the pipeline.
type Submitter interface {
	Submit(ctx context.Context, query string) (*conversation.Turn, error)
}

type Deps struct {
	Store     *conversation.Store
	Pipeline  Submitter
	Navigator *webui.Navigator
	Archive   *archive.Archive // optional; history endpoints 404 without it
	Token     string
}

func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Get("/", webui.Handler(deps.Store))

	r.Post("/v1/ask", handleAsk(deps))
	r.Get("/v1/turns", handleListTurns(deps))
	r.Get("/v1/turns/{id}", handleGetTurn(deps))
	r.Get("/v1/events", handleEvents(deps))

	r.Route("/v1/history", func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))
		r.Get("/", handleListHistory(deps))
		r.Get("/{id}", handleGetHistory(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

type askRequest struct {
	Query string `json:"query"`
}

type askResponse struct {
	conversation.Turn
	Anchor string `json:"anchor"`
}

func handleAsk(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req askRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		turn, err := deps.Pipeline.Submit(r.Context(), req.Query)
		switch {
		case errors.Is(err, answer.ErrBusy):
			httpError(w, http.StatusConflict, "busy", "a request is already pending")
			return
		case errors.Is(err, answer.ErrGenerationFailed):
			httpError(w, http.StatusBadGateway, "generation_failed", "answer generation failed: %v", err)
			return
		case err != nil:
			httpError(w, http.StatusInternalServerError, "api_error", "submitting request: %v", err)
			return
		}

		// Blank input is accepted and ignored.
		if turn == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		anchor, _ := deps.Navigator.AnchorFor(r.Context(), turn.ID)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(askResponse{Turn: *turn, Anchor: anchor})
	}
}

func handleListTurns(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(deps.Store.All())
	}
}

func handleGetTurn(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		turn, err := deps.Store.FindByID(id)
		if errors.Is(err, conversation.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "turn not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "finding turn: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(turn)
	}
}

func handleListHistory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Archive == nil {
			httpError(w, http.StatusNotFound, "not_found", "history is not enabled")
			return
		}

		limit := parseIntParam(r, "limit", 20, 100)
		offset := parseIntParam(r, "offset", 0, 0)

		turns, err := deps.Archive.ListTurns(limit, offset)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "listing history: %v", err)
			return
		}
		if turns == nil {
			turns = []conversation.Turn{}
		}

		total, err := deps.Archive.CountTurns()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "counting history: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		// The page is limited; the header carries the full archive size.
		w.Header().Set("X-Total-Count", strconv.Itoa(total))
		json.NewEncoder(w).Encode(turns)
	}
}

func handleGetHistory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Archive == nil {
			httpError(w, http.StatusNotFound, "not_found", "history is not enabled")
			return
		}

		id := chi.URLParam(r, "id")
		turn, err := deps.Archive.GetTurn(id)
		if errors.Is(err, archive.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "turn not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "getting turn: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(turn)
	}
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
