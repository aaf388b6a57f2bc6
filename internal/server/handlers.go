package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"

	"github.com/claude/zwogen/internal/library"
	"github.com/claude/zwogen/internal/models"
	"github.com/claude/zwogen/internal/storage"
	"github.com/claude/zwogen/internal/workout"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	out, err := s.lib.Compile(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "zwo" {
		writeDocument(w, out.Name, out.Document)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleQueryWorkouts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := storage.WorkoutFilter{Name: q.Get("name"), Author: q.Get("author")}
	if l := q.Get("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil || limit <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		f.Limit = limit
	}

	rows, err := s.lib.List(r.Context(), userIDFromContext(r), f)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleGetWorkout(w http.ResponseWriter, r *http.Request) {
	row, ok := s.loadWorkout(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (s *Server) handleDownloadWorkout(w http.ResponseWriter, r *http.Request) {
	row, ok := s.loadWorkout(w, r)
	if !ok {
		return
	}
	writeDocument(w, row.Name, row.Document)
}

func (s *Server) handleSaveWorkout(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	origin := models.OriginAPI
	switch o := r.URL.Query().Get("origin"); o {
	case "", models.OriginAPI:
	case models.OriginUpload, models.OriginImport, models.OriginMCP:
		origin = o
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid origin: " + o})
		return
	}

	row, err := s.lib.Save(r.Context(), req, userIDFromContext(r), origin)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

func (s *Server) handleDeleteWorkout(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid workout ID"})
		return
	}
	if err := s.lib.Delete(r.Context(), id, userIDFromContext(r)); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.lib.Stats(r.Context(), userIDFromContext(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleCompileLogs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	logs, err := s.lib.CompileLogs(r.Context(), userIDFromContext(r), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userInfoFromContext(r))
}

func (s *Server) loadWorkout(w http.ResponseWriter, r *http.Request) (*models.WorkoutRow, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid workout ID"})
		return nil, false
	}
	row, err := s.lib.Get(r.Context(), id, userIDFromContext(r))
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	return row, true
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (library.Request, bool) {
	var req library.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return req, false
	}
	return req, true
}

// compileError is the response body for workouts that fail to compile.
type compileError struct {
	Error  string `json:"error"`
	Kind   string `json:"kind"`
	Tokens string `json:"tokens,omitempty"`
}

// writeError maps library and pipeline errors to HTTP responses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, library.ErrInvalidRequest):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, library.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "workout not found"})
	case workout.ErrorKind(err) != "":
		body := compileError{Error: err.Error(), Kind: workout.ErrorKind(err)}
		if tokens := workout.RemainingTokens(err); len(tokens) > 0 {
			body.Tokens = workout.Notation(tokens)
		}
		writeJSON(w, http.StatusUnprocessableEntity, body)
	default:
		s.log.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// writeDocument sends a .zwo document as a file download.
func writeDocument(w http.ResponseWriter, name, doc string) {
	filename := unsafeFilename.ReplaceAllString(name, "_")
	if filename == "" || filename == "_" {
		filename = "workout"
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.zwo"`, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
