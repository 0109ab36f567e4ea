package handlers

import (
	"context"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/funnel/internal/common"
)

// StatusServiceInterface defines the methods needed for the status endpoint
type StatusServiceInterface interface {
	Tickers(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int, error)
}

// StatusHandler handles application status HTTP requests
type StatusHandler struct {
	cacheService StatusServiceInterface
	providerKind string
	logger       arbor.ILogger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(cacheService StatusServiceInterface, providerKind string, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		cacheService: cacheService,
		providerKind: providerKind,
		logger:       logger,
	}
}

// GetStatusHandler handles GET /api/status - application status
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	status := map[string]interface{}{
		"status":   "ok",
		"version":  common.GetVersion(),
		"build":    common.Build,
		"provider": h.providerKind,
	}

	if tickers, err := h.cacheService.Tickers(r.Context()); err == nil {
		status["tickers"] = len(tickers)
	}
	if count, err := h.cacheService.Count(r.Context()); err == nil {
		status["group_rows"] = count
	}

	WriteJSON(w, http.StatusOK, status)
}
