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

// SimilarityServiceInterface defines the methods needed from the similarity service
type SimilarityServiceInterface interface {
	Similar(ctx context.Context, ticker string, size int) (*models.SimilarityResult, error)
}

// SimilarityHandler handles similarity HTTP requests
type SimilarityHandler struct {
	similarityService SimilarityServiceInterface
	logger            arbor.ILogger
}

// NewSimilarityHandler creates a new similarity handler
func NewSimilarityHandler(similarityService SimilarityServiceInterface, logger arbor.ILogger) *SimilarityHandler {
	return &SimilarityHandler{
		similarityService: similarityService,
		logger:            logger,
	}
}

// SimilarHandler handles GET /api/similar/{ticker} - finds peer securities
func (h *SimilarityHandler) SimilarHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	ticker := strings.TrimPrefix(r.URL.Path, "/api/similar/")
	if ticker == "" || strings.Contains(ticker, "/") {
		WriteError(w, http.StatusBadRequest, "Ticker required: /api/similar/{ticker}")
		return
	}

	size := GetLimitParam(r, 0)

	result, err := h.similarityService.Similar(r.Context(), ticker, size)
	if err != nil {
		if errors.Is(err, interfaces.ErrDataUnavailable) {
			WriteError(w, http.StatusNotFound, "No data for ticker "+ticker)
			return
		}
		h.logger.Error().Err(err).Str("ticker", ticker).Msg("Similarity query failed")
		WriteError(w, http.StatusInternalServerError, "Similarity query failed")
		return
	}

	WriteJSON(w, http.StatusOK, result)
}
