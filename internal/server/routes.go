package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Screening
	mux.HandleFunc("/api/screen", s.app.ScreenHandler.ScreenHandler) // POST - run a screening funnel

	// API routes - Similarity
	mux.HandleFunc("/api/similar/", s.app.SimilarityHandler.SimilarHandler) // GET /{ticker}

	// API routes - Securities
	mux.HandleFunc("/api/securities/", s.app.SecurityHandler.RouteHandler) // GET /{ticker}, POST /{ticker}/refresh

	// API routes - Status
	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatusHandler) // GET - application status

	return mux
}
