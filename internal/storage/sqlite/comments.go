package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/codetrail/tracker/internal/storage"
	"github.com/codetrail/tracker/internal/types"
)

// CreateComment adds a comment to an issue. The issue must exist; the author
// reference is recorded so it can null out if the user is later deleted.
func (s *SQLiteStorage) CreateComment(ctx context.Context, issueID, userID, content string) (*types.Comment, error) {
	if content == "" {
		return nil, fmt.Errorf("content is required")
	}

	// Verify issue exists
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM issues WHERE id = ?)`, issueID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check issue existence: %w", err)
	}
	if !exists {
		return nil, storage.ErrNotFound
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO comments (id, issue_id, user_id, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, issueID, userID, content, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert comment: %w", mapConstraintErr(err))
	}

	// Fetch the complete comment with its author joined in
	comment, err := s.getComment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch comment: %w", err)
	}
	return comment, nil
}

func (s *SQLiteStorage) getComment(ctx context.Context, id string) (*types.Comment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT c.id, c.issue_id, c.content, c.created_at, u.id, u.name
		FROM comments c
		LEFT JOIN users u ON u.id = c.user_id
		WHERE c.id = ?
	`, id)
	return scanComment(row.Scan)
}

// ListComments retrieves all comments for an issue in creation order
func (s *SQLiteStorage) ListComments(ctx context.Context, issueID string) ([]*types.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.issue_id, c.content, c.created_at, u.id, u.name
		FROM comments c
		LEFT JOIN users u ON u.id = c.user_id
		WHERE c.issue_id = ?
		ORDER BY c.created_at ASC
	`, issueID)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var comments []*types.Comment
	for rows.Next() {
		comment, err := scanComment(rows.Scan)
		if err != nil {
			return nil, err
		}
		comments = append(comments, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating comments: %w", err)
	}
	return comments, nil
}

func scanComment(scan func(...interface{}) error) (*types.Comment, error) {
	comment := &types.Comment{}
	var authorID, authorName sql.NullString
	if err := scan(&comment.ID, &comment.IssueID, &comment.Content, &comment.CreatedAt, &authorID, &authorName); err != nil {
		return nil, fmt.Errorf("failed to scan comment: %w", err)
	}
	if authorID.Valid {
		comment.Author = &types.UserRef{ID: authorID.String, Name: authorName.String}
	}
	return comment, nil
}

// DeleteComment removes a single comment
func (s *SQLiteStorage) DeleteComment(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
