// Package types defines the domain entities shared across storage and API layers.
package types

import (
	"fmt"
	"time"
)

// Issue represents a trackable unit of work
type Issue struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	Priority    Priority  `json:"priority"`
	Creator     UserRef   `json:"creator"`
	Assignee    *UserRef  `json:"assignee"`
	Labels      []Label   `json:"labels"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// UserRef is the embedded user shape returned inside issues and comments
type UserRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Status represents the current state of an issue
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusCancelled  Status = "cancelled"
)

// IsValid checks if the status value is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone, StatusCancelled:
		return true
	}
	return false
}

// Priority represents the urgency of an issue
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// IsValid checks if the priority value is valid
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Label represents a named, colored tag attachable to many issues
type Label struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Comment represents a remark attached to an issue. Author is nil when the
// commenting user has since been deleted.
type Comment struct {
	ID        string    `json:"id"`
	IssueID   string    `json:"issueId,omitempty"`
	Author    *UserRef  `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// User represents an account. PasswordHash is never serialized.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NewIssue holds the fields accepted when creating an issue. CreatedBy comes
// from the authenticated caller, never from the request body.
type NewIssue struct {
	Title       string
	Description string
	Status      Status
	Priority    Priority
	AssigneeID  *string
	LabelIDs    []string
	CreatedBy   string
}

// Validate checks a NewIssue before any store call, applying enum defaults
func (n *NewIssue) Validate() error {
	if n.Title == "" {
		return fmt.Errorf("title is required")
	}
	if n.Description == "" {
		return fmt.Errorf("description is required")
	}
	if n.Status == "" {
		n.Status = StatusTodo
	}
	if !n.Status.IsValid() {
		return fmt.Errorf("invalid status: %s", n.Status)
	}
	if n.Priority == "" {
		n.Priority = PriorityMedium
	}
	if !n.Priority.IsValid() {
		return fmt.Errorf("invalid priority: %s", n.Priority)
	}
	if n.CreatedBy == "" {
		return fmt.Errorf("creator is required")
	}
	return nil
}

// IssuePatch holds the fields accepted when updating an issue. Nil scalar
// fields keep their stored value (coalesce-merge); AssigneeID is always
// written as given, and LabelIDs always replaces the full label set.
type IssuePatch struct {
	Title       *string
	Description *string
	Status      *Status
	Priority    *Priority
	AssigneeID  *string
	LabelIDs    []string
}

// Validate rejects empty or out-of-enum values on the fields that are set
func (p *IssuePatch) Validate() error {
	if p.Title != nil && *p.Title == "" {
		return fmt.Errorf("title cannot be empty")
	}
	if p.Description != nil && *p.Description == "" {
		return fmt.Errorf("description cannot be empty")
	}
	if p.Status != nil && !p.Status.IsValid() {
		return fmt.Errorf("invalid status: %s", *p.Status)
	}
	if p.Priority != nil && !p.Priority.IsValid() {
		return fmt.Errorf("invalid priority: %s", *p.Priority)
	}
	return nil
}

// IssueFilter is used to filter and sort issue listings. Filters are
// conjunctive; zero values mean "no constraint".
type IssueFilter struct {
	Search        string
	Status        Status
	Priority      Priority
	AssigneeID    string
	LabelID       string
	SortField     string
	SortDirection string
}

// IssuePage is one page of a filtered issue listing
type IssuePage struct {
	Data []*Issue `json:"data"`
	Meta PageMeta `json:"meta"`
}

// PageMeta carries pagination metadata alongside a listing
type PageMeta struct {
	Page        int `json:"page"`
	Limit       int `json:"limit"`
	TotalIssues int `json:"totalIssues"`
	TotalPages  int `json:"totalPages"`
}
