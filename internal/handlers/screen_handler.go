package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/funnel/internal/interfaces"
	"github.com/ternarybob/funnel/internal/models"
)

// ScreenServiceInterface defines the methods needed from the screener service
type ScreenServiceInterface interface {
	Screen(ctx context.Context, criteria *models.ScreenCriteria, size int) (*models.ScreenResult, error)
}

// ScreenHandler handles screening HTTP requests
type ScreenHandler struct {
	screenService ScreenServiceInterface
	logger        arbor.ILogger
}

// NewScreenHandler creates a new screen handler
func NewScreenHandler(screenService ScreenServiceInterface, logger arbor.ILogger) *ScreenHandler {
	return &ScreenHandler{
		screenService: screenService,
		logger:        logger,
	}
}

// screenRequest is the POST /api/screen body.
type screenRequest struct {
	Criteria models.ScreenCriteria `json:"criteria"`
	Size     int                   `json:"size,omitempty"`
}

// ScreenHandler handles POST /api/screen - runs a screening funnel
func (h *ScreenHandler) ScreenHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req screenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.screenService.Screen(r.Context(), &req.Criteria, req.Size)
	if err != nil {
		if errors.Is(err, interfaces.ErrInvalidCriteria) {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error().Err(err).Msg("Screen failed")
		WriteError(w, http.StatusInternalServerError, "Screen failed")
		return
	}

	WriteJSON(w, http.StatusOK, result)
}
