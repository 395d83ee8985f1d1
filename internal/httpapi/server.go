package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/joelkehle/college-assistant/internal/collegesearch"
	"go.uber.org/zap"
)

const (
	maxBodyBytes  = 64 << 10
	maxQueryRunes = 10000

	CodeInvalidRequest = "invalid_request"
	CodeRejected       = "rejected"
	CodeRosterConfig   = "roster_config"
	CodeInternal       = "internal"
)

// Asker runs one query through the pipeline.
type Asker interface {
	Run(ctx context.Context, req collegesearch.Request) (collegesearch.PipelineResult, error)
}

type Server struct {
	asker Asker
	log   *zap.Logger
}

type askRequest struct {
	RequestID string `json:"request_id"`
	Query     string `json:"query"`
}

type askResponse struct {
	OK bool `json:"ok"`
	collegesearch.ResponseEnvelope
}

func NewServer(asker Asker, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{asker: asker, log: log}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/ask", s.handleAsk)
	mux.HandleFunc("/v1/health", s.handleHealth)
	return s.logRequests(mux)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"ok": false,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}

func methodOnly(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	blob, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "request body too large or unreadable")
		return
	}
	var in askRequest
	if err := json.Unmarshal(blob, &in); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "invalid JSON body")
		return
	}
	if len([]rune(in.Query)) > maxQueryRunes {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "query is too long")
		return
	}

	result, err := s.asker.Run(r.Context(), collegesearch.Request{RequestID: in.RequestID, Query: in.Query})
	if err != nil {
		s.writePipelineError(w, result, err)
		return
	}

	env := collegesearch.BuildResponse(result)
	if wantsHTML(r) {
		html, err := collegesearch.RenderReportHTML(env.ReportMarkdown)
		if err != nil {
			writeError(w, http.StatusInternalServerError, CodeInternal, "could not render report")
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, html)
		return
	}
	writeJSON(w, http.StatusOK, askResponse{OK: true, ResponseEnvelope: env})
}

func (s *Server) writePipelineError(w http.ResponseWriter, result collegesearch.PipelineResult, err error) {
	var schemaErr *collegesearch.SchemaError
	switch {
	case errors.Is(err, collegesearch.ErrRejected):
		writeError(w, http.StatusUnprocessableEntity, CodeRejected, collegesearch.RejectionMessage)
	case errors.As(err, &schemaErr):
		s.log.Error("roster_config_error", zap.String("request_id", result.Request.RequestID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, CodeRosterConfig, "the institution roster is misconfigured")
	default:
		s.log.Error("ask_failed", zap.String("request_id", result.Request.RequestID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, CodeInternal, "request failed")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"agent":   collegesearch.AgentName,
		"version": collegesearch.AgentVersion,
	})
}

func wantsHTML(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html") && !strings.Contains(accept, "application/json")
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("http_request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Int64("elapsed_ms", time.Since(started).Milliseconds()),
		)
	})
}
