// Package web exposes the task store as a small JSON API for
// scripting and integrations. It is optional and off by default; the
// terminal UI remains the primary surface.
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"taskmaster/internal/db"
	"taskmaster/internal/models"
	"taskmaster/internal/query"
)

type Server struct {
	store  *db.DB
	logger *slog.Logger
}

func NewServer(store *db.DB, logger *slog.Logger) *Server {
	return &Server{store: store, logger: logger}
}

// Handler builds the router with the middleware stack and routes
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(15 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(s.requestLogger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/tasks", s.listTasks)
	r.Post("/api/tasks", s.createTask)
	r.Patch("/api/tasks/{id}", s.updateTask)
	r.Delete("/api/tasks/{id}", s.deleteTask)

	return r
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	filter := query.FilterAll
	if window := strings.TrimSpace(r.URL.Query().Get("window")); window != "" {
		parsed, err := query.ParseTimeFilter(window)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		filter = parsed
	}

	bounds := query.WindowBounds(filter, models.Today())
	tasks, err := s.store.ListTasks(r.Context(), bounds)
	if err != nil {
		s.writeTaskError(w, err)
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var draft models.TaskDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	task, err := s.store.CreateTask(r.Context(), draft)
	if err != nil {
		s.writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// patchRequest mirrors models.TaskPatch for JSON input. An empty
// string for description or due_date clears the field; an absent key
// leaves it unchanged.
type patchRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	DueDate     *string `json:"due_date"`
	Completed   *bool   `json:"completed"`
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	var req patchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	patch := models.TaskPatch{Title: req.Title, Completed: req.Completed}
	if req.Description != nil {
		if *req.Description == "" {
			patch.ClearDescription = true
		} else {
			patch.Description = req.Description
		}
	}
	if req.DueDate != nil {
		if *req.DueDate == "" {
			patch.ClearDueDate = true
		} else {
			due, err := models.ParseDate(*req.DueDate)
			if err != nil {
				writeError(w, http.StatusUnprocessableEntity, err)
				return
			}
			patch.DueDate = &due
		}
	}

	if err := s.store.UpdateTask(r.Context(), id, patch); err != nil {
		s.writeTaskError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	if err := s.store.DeleteTask(r.Context(), id); err != nil {
		s.writeTaskError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeTaskError maps the store error taxonomy onto status codes
func (s *Server) writeTaskError(w http.ResponseWriter, err error) {
	var vErr *models.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusUnprocessableEntity, vErr)
	case errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	default:
		s.logger.Error("store_error", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, errors.New("store failure"))
	}
}

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		s.logger.Info("http_request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", sw.status),
			slog.Duration("duration", time.Since(start)),
		)
	})
}
