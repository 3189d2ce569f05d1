package web

import (
	"net/http"
	"time"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/collector/internal/core"
	"github.com/JonMunkholm/collector/internal/logging"
)

// handleDashboard renders the dashboard page. Stats and history failures are
// logged and rendered as empty sections.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.Enrich(ctx, s.logger)

	data := DashboardData{
		Limiter:     s.service.Limiter().Status(),
		MaxFileSize: s.cfg.Import.MaxFileSize,
	}
	if stats, err := s.service.Stats(ctx); err == nil {
		data.Stats = stats
	} else {
		logger.Warn("dashboard stats", "error", err)
	}
	if runs, err := s.service.ListImportRuns(ctx, core.DefaultImportRunLimit); err == nil {
		data.Runs = runViews(runs)
	} else {
		logger.Warn("dashboard import runs", "error", err)
	}

	templ.Handler(Dashboard(data)).ServeHTTP(w, r)
}

// handleHealth pings the store.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	ok := true
	if err := s.service.Ping(r.Context()); err != nil {
		logging.Enrich(r.Context(), s.logger).Warn("health check failed", "error", err)
		status = http.StatusServiceUnavailable
		ok = false
	}
	writeJSON(w, r, status, map[string]any{
		"ok": ok,
		"ts": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, stats)
}

// handleListImports returns recent import runs, newest first.
func (s *Server) handleListImports(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", core.DefaultImportRunLimit, 1)
	runs, err := s.service.ListImportRuns(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"runs":    runViews(runs),
		"limiter": s.service.Limiter().Status(),
	})
}
