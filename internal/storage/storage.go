// Package storage defines the interface for issue storage backends.
package storage

import (
	"context"
	"errors"

	"github.com/codetrail/tracker/internal/types"
)

// Sentinel errors returned by storage backends. The API layer maps these to
// HTTP status codes; anything else is treated as an internal failure.
var (
	// ErrNotFound indicates the referenced entity does not exist
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a unique constraint was violated (duplicate email,
	// duplicate label name)
	ErrConflict = errors.New("already exists")

	// ErrInvalidReference indicates a foreign key points at a missing row,
	// e.g. a labelId or assigneeId that does not exist. Multi-step writes roll
	// back fully before returning this.
	ErrInvalidReference = errors.New("invalid reference")
)

// Storage defines the interface for issue storage backends
type Storage interface {
	// Issues
	CreateIssue(ctx context.Context, in *types.NewIssue) (string, error)
	GetIssue(ctx context.Context, id string) (*types.Issue, error)
	ListIssues(ctx context.Context, page, limit int, filter types.IssueFilter) (*types.IssuePage, error)
	UpdateIssue(ctx context.Context, id string, patch *types.IssuePatch) error
	DeleteIssue(ctx context.Context, id string) error

	// Labels
	CreateLabel(ctx context.Context, name, color string) (*types.Label, error)
	ListLabels(ctx context.Context) ([]*types.Label, error)
	DeleteLabel(ctx context.Context, id string) error

	// Comments
	CreateComment(ctx context.Context, issueID, userID, content string) (*types.Comment, error)
	ListComments(ctx context.Context, issueID string) ([]*types.Comment, error)
	DeleteComment(ctx context.Context, id string) error

	// Users
	CreateUser(ctx context.Context, email, name, passwordHash string) (*types.User, error)
	GetUserByEmail(ctx context.Context, email string) (*types.User, error)
	GetUser(ctx context.Context, id string) (*types.User, error)
	ListUsers(ctx context.Context) ([]*types.User, error)

	// Lifecycle
	Close() error

	// Database path (for diagnostics)
	Path() string
}

// Config holds database configuration
type Config struct {
	// SQLite config
	Path string // database file path, or ":memory:"
}
