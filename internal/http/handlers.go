package http

import (
	"context"
	"net/http"
	"time"

	applog "expensetracker/internal/log"
	"expensetracker/internal/theme"
)

// handleHealth performs basic liveness check and reports request counters.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	traffic := s.tracer.GetMetrics()
	limits := s.limiter.Stats()
	NewResponse().JSON(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
		"requests": map[string]any{
			"total":          traffic.TotalRequests,
			"server_errors":  traffic.ServerErrors,
			"avg_ms":         traffic.AverageResponseTime.Milliseconds(),
			"rate_limited":   limits.Rejected,
			"tracked_ips":    limits.Clients,
			"blocked_probes": s.detector.GetMetrics().RejectedProbes,
		},
	}).Write(w)
}

// handleReady checks that the store answers and templates are loaded.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "ready"
	code := http.StatusOK
	checks := map[string]any{"templates": "ok"}

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	if list, err := s.expenses.List(ctx); err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
		checks["store"] = "failed"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
		checks["expenses"] = len(list)
	}
	checks["events"] = s.eventsEnabled

	NewResponse().Status(code).JSON(map[string]any{
		"status": status,
		"checks": checks,
	}).Write(w)
}

type themeState struct {
	Dark    bool   `json:"dark"`
	Variant string `json:"variant"`
}

func (s *Server) themeState() themeState {
	dark := s.themes.Current()
	variant := theme.Light
	if dark {
		variant = theme.Dark
	}
	return themeState{Dark: dark, Variant: variant}
}

func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(s.themeState()).Write(w)
}

// handleThemeToggle flips the theme. Browser forms are sent back to the page
// named in the "return" field.
func (s *Server) handleThemeToggle(w http.ResponseWriter, r *http.Request) {
	dark := s.themes.Toggle()
	applog.FromContext(r.Context()).DebugContext(r.Context(), "Theme toggled",
		applog.FieldOperation, applog.OpToggle,
		applog.FieldTheme, dark)

	if wantsJSON(r) {
		NewResponse().JSON(s.themeState()).Write(w)
		return
	}
	returnTo := "/"
	if err := r.ParseForm(); err == nil {
		returnTo = safeReturnPath(r.PostForm.Get("return"))
	}
	NewResponse().Redirect(returnTo).Write(w)
}
