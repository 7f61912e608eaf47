package api

import (
	"net/http"
	"strings"
)

type createCommentRequest struct {
	Content string `json:"content"`
}

// GET /issues/{id}/comments
func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := s.store.ListComments(r.Context(), r.PathValue("id"))
	if err != nil {
		s.storeError(w, err, "Issue not found", "Error fetching comments")
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

// POST /issues/{id}/comments
func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	var req createCommentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "Comment content is required")
		return
	}

	comment, err := s.store.CreateComment(r.Context(), r.PathValue("id"),
		userIDFromContext(r.Context()), req.Content)
	if err != nil {
		s.storeError(w, err, "Issue not found", "Error creating comment")
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

// DELETE /comments/{id}
func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteComment(r.Context(), r.PathValue("id")); err != nil {
		s.storeError(w, err, "Comment not found", "Error deleting comment")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Comment deleted successfully"})
}
