package api

import (
	"net/http"
)

// handleStats reports pipeline state and, when the inventory is enabled, the
// number of indexed documents.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{"pipeline": s.orchestrator.Stats()}
	if s.inventory != nil {
		n, err := s.inventory.CountDocuments(r.Context())
		if err != nil {
			jsonError(w, "failed to count documents: "+err.Error(), http.StatusInternalServerError)
			return
		}
		out["documents"] = n
	}
	writeJSON(w, http.StatusOK, out)
}
