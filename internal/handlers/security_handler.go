package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/funnel/internal/interfaces"
	"github.com/ternarybob/funnel/internal/models"
)

// CacheServiceInterface defines the methods needed from the cache service
type CacheServiceInterface interface {
	Get(ctx context.Context, ticker string, groups []models.GroupName) (*models.SecurityRecord, error)
	Refresh(ctx context.Context, ticker string, groups []models.GroupName) error
}

// SecurityHandler handles per-security HTTP requests
type SecurityHandler struct {
	cacheService CacheServiceInterface
	logger       arbor.ILogger
}

// NewSecurityHandler creates a new security handler
func NewSecurityHandler(cacheService CacheServiceInterface, logger arbor.ILogger) *SecurityHandler {
	return &SecurityHandler{
		cacheService: cacheService,
		logger:       logger,
	}
}

// RouteHandler dispatches /api/securities/{ticker} and
// /api/securities/{ticker}/refresh.
func (h *SecurityHandler) RouteHandler(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/securities/")
	if path == "" {
		WriteError(w, http.StatusBadRequest, "Ticker required: /api/securities/{ticker}")
		return
	}

	if ticker, ok := strings.CutSuffix(path, "/refresh"); ok {
		h.refresh(w, r, ticker)
		return
	}
	if strings.Contains(path, "/") {
		WriteError(w, http.StatusNotFound, "Unknown route")
		return
	}
	h.get(w, r, path)
}

// get handles GET /api/securities/{ticker}?groups=fundamentals,valuation
func (h *SecurityHandler) get(w http.ResponseWriter, r *http.Request, ticker string) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	groups, err := parseGroupsParam(r.URL.Query().Get("groups"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	record, err := h.cacheService.Get(r.Context(), ticker, groups)
	if err != nil {
		if errors.Is(err, interfaces.ErrDataUnavailable) {
			WriteError(w, http.StatusNotFound, "No data for ticker "+ticker)
			return
		}
		h.logger.Error().Err(err).Str("ticker", ticker).Msg("Security lookup failed")
		WriteError(w, http.StatusInternalServerError, "Security lookup failed")
		return
	}

	WriteJSON(w, http.StatusOK, record)
}

// refresh handles POST /api/securities/{ticker}/refresh
func (h *SecurityHandler) refresh(w http.ResponseWriter, r *http.Request, ticker string) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	if err := h.cacheService.Refresh(r.Context(), ticker, nil); err != nil {
		if errors.Is(err, interfaces.ErrDataUnavailable) {
			WriteError(w, http.StatusNotFound, "No data for ticker "+ticker)
			return
		}
		h.logger.Error().Err(err).Str("ticker", ticker).Msg("Refresh failed")
		WriteError(w, http.StatusBadGateway, "Refresh failed")
		return
	}

	h.logger.Info().Str("ticker", ticker).Msg("Security refreshed")
	WriteSuccess(w, "Refreshed "+ticker)
}

// parseGroupsParam parses the comma-separated groups query parameter.
// Empty means all groups.
func parseGroupsParam(param string) ([]models.GroupName, error) {
	if param == "" {
		return nil, nil
	}

	var groups []models.GroupName
	for _, part := range strings.Split(param, ",") {
		group := models.GroupName(strings.TrimSpace(strings.ToLower(part)))
		if !group.IsValid() {
			return nil, errors.New("unknown group: " + string(group))
		}
		groups = append(groups, group)
	}
	return groups, nil
}
