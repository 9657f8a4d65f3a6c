// Package api serves stored diagnostic runs over HTTP: run listings, raw
// report documents, per-test summaries and chart pages.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/weave-qa/qagmire/internal/diagnostics"
	"github.com/weave-qa/qagmire/internal/monitoring"
	"github.com/weave-qa/qagmire/internal/report"
	"github.com/weave-qa/qagmire/internal/store"
)

type Server struct {
	store *store.Store
}

func NewServer(st *store.Store) *Server {
	return &Server{store: st}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs method, path, status and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf("[%d] %s %s %vms",
			lrw.statusCode, r.Method, r.RequestURI,
			float64(time.Since(start).Nanoseconds())/1e6)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/runs", s.listRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.showRun)
	mux.HandleFunc("GET /api/runs/{id}/summary", s.showRunSummary)
	mux.HandleFunc("GET /charts/{id}", s.showCharts)
	return mux
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0 // ListRuns applies its own default
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	runs, err := s.store.ListRuns(limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to list runs: %v", err))
		return
	}
	if runs == nil {
		runs = []store.RunRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(runs); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write runs")
	}
}

// getRun resolves the path id to a stored run, writing the error response
// itself when there is nothing to serve.
func (s *Server) getRun(w http.ResponseWriter, r *http.Request) *store.RunRecord {
	id := r.PathValue("id")
	rec, err := s.store.GetRun(id)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to load run: %v", err))
		return nil
	}
	if rec == nil {
		s.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("No run %q", id))
		return nil
	}
	return rec
}

func (s *Server) showRun(w http.ResponseWriter, r *http.Request) {
	rec := s.getRun(w, r)
	if rec == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(rec.Report)
}

func (s *Server) showRunSummary(w http.ResponseWriter, r *http.Request) {
	rec := s.getRun(w, r)
	if rec == nil {
		return
	}
	doc, err := diagnostics.ParseReport(rec.Report)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to parse report: %v", err))
		return
	}

	tc := doc.TestCounts()
	type testSummary struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Failures    int    `json:"failures"`
	}
	summary := struct {
		RunID     string        `json:"run_id"`
		Check     string        `json:"check"`
		Selection string        `json:"selection"`
		NElements int           `json:"n_elements"`
		NFailures int64         `json:"n_failures"`
		Tests     []testSummary `json:"tests"`
	}{
		RunID:     rec.ID,
		Check:     rec.Check,
		Selection: rec.Selection,
		NElements: len(doc.Elements),
		NFailures: rec.NFailures,
	}
	for i, name := range tc.Names {
		summary.Tests = append(summary.Tests, testSummary{
			Name:        name,
			Description: tc.Descriptions[i],
			Failures:    tc.Counts[i],
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(summary); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write summary")
	}
}

func (s *Server) showCharts(w http.ResponseWriter, r *http.Request) {
	rec := s.getRun(w, r)
	if rec == nil {
		return
	}
	doc, err := diagnostics.ParseReport(rec.Report)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to parse report: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.RenderReportHTML(w, doc); err != nil {
		monitoring.Logf("charts render for %s failed: %v", rec.ID, err)
	}
}
