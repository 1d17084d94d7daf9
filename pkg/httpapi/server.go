// Package httpapi exposes the review pipeline over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"boardroom/pkg/attach"
	"boardroom/pkg/council"
	"boardroom/pkg/logx"
	"boardroom/pkg/store"
)

// maxUploadBytes bounds a run submission's total multipart size.
const maxUploadBytes = 32 << 20

// Server routes API requests to the store and the orchestration driver.
type Server struct {
	store  *store.Store
	driver *council.Driver
	logger *logx.Logger
}

// NewServer creates an API server.
func NewServer(s *store.Store, driver *council.Driver) *Server {
	return &Server{
		store:  s,
		driver: driver,
		logger: logx.NewLogger("httpapi"),
	}
}

// RegisterRoutes attaches all API routes to the mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/threads", s.handleCreateThread)
	mux.HandleFunc("DELETE /api/threads/{id}", s.handleDeleteThread)
	mux.HandleFunc("POST /api/threads/{id}/runs", s.handleRun)
	mux.HandleFunc("GET /api/threads/{id}/messages", s.handleMessages)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
}

func workspaceOf(r *http.Request) string {
	if ws := r.Header.Get("X-Workspace"); ws != "" {
		return ws
	}
	return "default"
}

func (s *Server) handleCreateThread(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON body: %w", err))
		return
	}

	thread := &store.Thread{
		Workspace: workspaceOf(r),
		Title:     body.Title,
	}
	if err := s.store.CreateThread(thread); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, thread)
}

func (s *Server) handleDeleteThread(w http.ResponseWriter, r *http.Request) {
	workspace := workspaceOf(r)
	threadID := r.PathValue("id")

	if err := s.store.DeleteThread(workspace, threadID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, err)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRun accepts a submission as JSON ({"idea", "constraints"}) or as a
// multipart form with an "idea" field and file parts.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	threadID := r.PathValue("id")

	sub, err := decodeSubmission(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if sub.Idea == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("idea must not be empty"))
		return
	}

	result, err := s.driver.Run(r.Context(), workspaceOf(r), threadID, *sub)
	if err != nil {
		s.writeError(w, runErrorStatus(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func runErrorStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrRunInFlight):
		return http.StatusConflict
	case errors.Is(err, attach.ErrDisallowedExtension):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decodeSubmission(r *http.Request) (*council.Submission, error) {
	contentType := r.Header.Get("Content-Type")
	if contentType == "" || strings.HasPrefix(contentType, "application/json") {
		var body struct {
			Idea        string `json:"idea"`
			Constraints string `json:"constraints"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return nil, fmt.Errorf("invalid JSON body: %w", err)
		}
		return &council.Submission{Idea: body.Idea, Constraints: body.Constraints}, nil
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, fmt.Errorf("invalid multipart form: %w", err)
	}

	sub := &council.Submission{
		Idea:        r.FormValue("idea"),
		Constraints: r.FormValue("constraints"),
	}

	if r.MultipartForm != nil {
		for _, headers := range r.MultipartForm.File {
			for _, header := range headers {
				file, err := header.Open()
				if err != nil {
					return nil, fmt.Errorf("failed to open upload %q: %w", header.Filename, err)
				}
				data, err := io.ReadAll(file)
				_ = file.Close()
				if err != nil {
					return nil, fmt.Errorf("failed to read upload %q: %w", header.Filename, err)
				}
				sub.Attachments = append(sub.Attachments, attach.Incoming{
					Filename: header.Filename,
					Mime:     header.Header.Get("Content-Type"),
					Data:     data,
				})
			}
		}
	}
	return sub, nil
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	workspace := workspaceOf(r)
	threadID := r.PathValue("id")

	if _, err := s.store.GetThread(workspace, threadID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, err)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	messages, err := s.store.ListMessages(workspace, threadID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if messages == nil {
		messages = []*store.Message{}
	}
	s.writeJSON(w, http.StatusOK, messages)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed: %v", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
