package api

import (
	"net/http"
)

// healthResponse is the JSON response for GET /health.
type healthResponse struct {
	Status        string `json:"status"`
	ActiveWorkers int    `json:"active_workers"`
	MaxWorkers    int    `json:"max_workers"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	pool := s.engine.Pool()
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:        "healthy",
		ActiveWorkers: pool.InUse(),
		MaxWorkers:    pool.Capacity(),
	})
}
