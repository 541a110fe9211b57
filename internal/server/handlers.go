// Package server exposes the Evenly API over HTTP: the REST endpoint
// family under /api plus the per-event Server-Sent-Events change stream.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/evenly-app/evenly/internal/models"
	"github.com/evenly-app/evenly/internal/service"
	"github.com/evenly-app/evenly/internal/storage"
)

// keepAliveInterval paces SSE comment frames so idle streams are not
// reaped by proxies.
const keepAliveInterval = 15 * time.Second

// Server wires the service layer to HTTP.
type Server struct {
	events   *service.EventService
	expenses *service.ExpenseService
	hub      *Hub
}

// New constructs a Server.
func New(events *service.EventService, expenses *service.ExpenseService, hub *Hub) *Server {
	return &Server{events: events, expenses: expenses, hub: hub}
}

// Router builds the full route tree with middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(loggingMiddleware)
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/events", func(r chi.Router) {
		r.Post("/", s.createEvent)
		r.Get("/{eventId}", s.getEvent)
		r.Put("/{eventId}/title", s.editTitle)
		r.Delete("/{eventId}", s.deleteEvent)
		r.Post("/{eventId}/participants", s.addParticipant)
		r.Delete("/{eventId}/participants/{id}", s.removeParticipant)
		r.Post("/{eventId}/tags", s.upsertTag)
		r.Delete("/{eventId}/tags/{name}", s.removeTag)
		r.Get("/{eventId}/updates", s.streamUpdates)
	})

	r.Route("/api/expenses", func(r chi.Router) {
		r.Post("/{eventId}/expenses", s.addExpense)
		r.Get("/{eventId}/expenses", s.listExpenses)
		r.Get("/{eventId}/total-expenses", s.totalExpenses)
		r.Put("/{id}", s.editExpense)
		r.Delete("/{id}", s.deleteExpense)
	})

	return r
}

// ─── Helper utilities ────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error  string                  `json:"error"`
	Fields models.ValidationErrors `json:"fields,omitempty"`
}

// writeError maps service errors onto the HTTP taxonomy: validation
// failures are 400 with per-field detail, missing entities are 404,
// everything else is 500.
func writeError(w http.ResponseWriter, err error) {
	var verrs models.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: verrs.Error(), Fields: verrs})
	case errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	return dec.Decode(dst)
}

// ─── Event handlers ──────────────────────────────────────────────────────────

func (s *Server) createEvent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	ev, err := s.events.CreateEvent(r.Context(), req.Title)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

func (s *Server) getEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := s.events.GetEvent(r.Context(), chi.URLParam(r, "eventId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) editTitle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	ev, err := s.events.EditTitle(r.Context(), chi.URLParam(r, "eventId"), req.Title)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) deleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.events.DeleteEvent(r.Context(), chi.URLParam(r, "eventId")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addParticipant(w http.ResponseWriter, r *http.Request) {
	var p models.Participant
	if err := decodeJSON(r, &p); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	created, err := s.events.AddParticipant(r.Context(), chi.URLParam(r, "eventId"), &p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) removeParticipant(w http.ResponseWriter, r *http.Request) {
	err := s.events.RemoveParticipant(r.Context(), chi.URLParam(r, "eventId"), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) upsertTag(w http.ResponseWriter, r *http.Request) {
	var tag models.Tag
	if err := decodeJSON(r, &tag); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if err := s.events.UpsertTag(r.Context(), chi.URLParam(r, "eventId"), tag); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

func (s *Server) removeTag(w http.ResponseWriter, r *http.Request) {
	// Tag names may contain spaces; chi hands the segment back escaped.
	name := chi.URLParam(r, "name")
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	if err := s.events.RemoveTag(r.Context(), chi.URLParam(r, "eventId"), name); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Expense handlers ────────────────────────────────────────────────────────

func (s *Server) addExpense(w http.ResponseWriter, r *http.Request) {
	var exp models.Expense
	if err := decodeJSON(r, &exp); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	created, err := s.expenses.AddExpense(r.Context(), chi.URLParam(r, "eventId"), &exp)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) listExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.expenses.ListExpenses(r.Context(), chi.URLParam(r, "eventId"))
	if err != nil {
		writeError(w, err)
		return
	}
	if expenses == nil {
		expenses = []*models.Expense{}
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) totalExpenses(w http.ResponseWriter, r *http.Request) {
	total, err := s.expenses.TotalExpenses(r.Context(), chi.URLParam(r, "eventId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, total)
}

func (s *Server) editExpense(w http.ResponseWriter, r *http.Request) {
	var exp models.Expense
	if err := decodeJSON(r, &exp); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	updated, err := s.expenses.EditExpense(r.Context(), chi.URLParam(r, "id"), &exp)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.expenses.DeleteExpense(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Change stream ───────────────────────────────────────────────────────────

// streamUpdates serves the per-event SSE change stream. Changes are
// written in the order the hub delivered them (server commit order);
// comment frames keep idle connections alive.
func (s *Server) streamUpdates(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	if _, err := s.events.GetEvent(r.Context(), eventID); err != nil {
		writeError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "streaming unsupported"})
		return
	}

	// Register with the hub before the 200 goes out: once the client sees
	// the stream as open, no committed change may slip past it.
	sub := s.hub.Subscribe(eventID)
	defer s.hub.Unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ch, ok := <-sub.Changes():
			if !ok {
				return
			}
			payload, err := json.Marshal(ch)
			if err != nil {
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
