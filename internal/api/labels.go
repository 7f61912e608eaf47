package api

import (
	"net/http"
	"strings"
)

type createLabelRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// GET /labels
func (s *Server) handleListLabels(w http.ResponseWriter, r *http.Request) {
	labels, err := s.store.ListLabels(r.Context())
	if err != nil {
		s.storeError(w, err, "Label not found", "Error fetching labels")
		return
	}
	writeJSON(w, http.StatusOK, labels)
}

// POST /labels
func (s *Server) handleCreateLabel(w http.ResponseWriter, r *http.Request) {
	var req createLabelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Label name is required")
		return
	}
	if req.Color == "" {
		req.Color = "#808080"
	}

	label, err := s.store.CreateLabel(r.Context(), req.Name, req.Color)
	if err != nil {
		s.storeError(w, err, "Label not found", "Label already exists")
		return
	}
	writeJSON(w, http.StatusCreated, label)
}

// DELETE /labels/{id}
func (s *Server) handleDeleteLabel(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteLabel(r.Context(), r.PathValue("id")); err != nil {
		s.storeError(w, err, "Label not found", "Error deleting label")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Label deleted successfully"})
}
