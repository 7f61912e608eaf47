package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/codetrail/tracker/internal/types"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// GET /issues
func (s *Server) handleListIssues(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, limit, ok := parsePagination(q.Get("page"), q.Get("limit"))
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid pagination parameters")
		return
	}

	filter := types.IssueFilter{
		Search:        strings.TrimSpace(q.Get("search")),
		Status:        types.Status(q.Get("status")),
		Priority:      types.Priority(q.Get("priority")),
		AssigneeID:    q.Get("assigneeId"),
		LabelID:       q.Get("labelId"),
		SortField:     q.Get("sortField"),
		SortDirection: q.Get("sortDirection"),
	}

	result, err := s.store.ListIssues(r.Context(), page, limit, filter)
	if err != nil {
		s.storeError(w, err, "Issue not found", "Error fetching issues")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// parsePagination applies defaults for absent params and rejects anything
// non-numeric or out of range.
func parsePagination(pageStr, limitStr string) (page, limit int, ok bool) {
	page, limit = defaultPage, defaultLimit

	if pageStr != "" {
		n, err := strconv.Atoi(pageStr)
		if err != nil || n < 1 {
			return 0, 0, false
		}
		page = n
	}
	if limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n < 1 || n > maxLimit {
			return 0, 0, false
		}
		limit = n
	}
	return page, limit, true
}

// GET /issues/{id}
func (s *Server) handleGetIssue(w http.ResponseWriter, r *http.Request) {
	issue, err := s.store.GetIssue(r.Context(), r.PathValue("id"))
	if err != nil {
		s.storeError(w, err, "Issue not found", "Error fetching issue")
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

type createIssueRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      string   `json:"status"`
	Priority    string   `json:"priority"`
	AssigneeID  *string  `json:"assigneeId"`
	LabelIDs    []string `json:"labelIds"`
}

// POST /issues
func (s *Server) handleCreateIssue(w http.ResponseWriter, r *http.Request) {
	var req createIssueRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	newIssue := &types.NewIssue{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Status:      types.Status(req.Status),
		Priority:    types.Priority(req.Priority),
		AssigneeID:  req.AssigneeID,
		LabelIDs:    req.LabelIDs,
		CreatedBy:   userIDFromContext(r.Context()),
	}

	if err := newIssue.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := s.store.CreateIssue(r.Context(), newIssue)
	if err != nil {
		s.storeError(w, err, "Issue not found", "Error creating issue")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"id":      id,
		"message": "Issue created successfully",
	})
}

type updateIssueRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Status      *string  `json:"status"`
	Priority    *string  `json:"priority"`
	AssigneeID  *string  `json:"assigneeId"`
	LabelIDs    []string `json:"labelIds"`
}

// PUT /issues/{id}
//
// Scalar fields left out of the payload keep their stored values. The
// assignee does not follow that rule: an omitted assigneeId clears the
// assignment, matching a form that always submits its assignee control.
func (s *Server) handleUpdateIssue(w http.ResponseWriter, r *http.Request) {
	var req updateIssueRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	patch := &types.IssuePatch{
		Title:       req.Title,
		Description: req.Description,
		AssigneeID:  req.AssigneeID,
		LabelIDs:    req.LabelIDs,
	}
	if req.Status != nil {
		st := types.Status(*req.Status)
		patch.Status = &st
	}
	if req.Priority != nil {
		pr := types.Priority(*req.Priority)
		patch.Priority = &pr
	}

	if err := patch.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.UpdateIssue(r.Context(), r.PathValue("id"), patch); err != nil {
		s.storeError(w, err, "Issue not found", "Error updating issue")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Issue updated successfully"})
}

// DELETE /issues/{id}
func (s *Server) handleDeleteIssue(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteIssue(r.Context(), r.PathValue("id")); err != nil {
		s.storeError(w, err, "Issue not found", "Error deleting issue")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Issue deleted successfully"})
}
