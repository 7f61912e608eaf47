package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/codetrail/tracker/internal/storage"
	"github.com/codetrail/tracker/internal/types"
)

// CreateLabel inserts a new label. Duplicate names are rejected by the unique
// constraint and surface as ErrConflict.
func (s *SQLiteStorage) CreateLabel(ctx context.Context, name, color string) (*types.Label, error) {
	if name == "" || color == "" {
		return nil, fmt.Errorf("name and color are required")
	}

	label := &types.Label{
		ID:    uuid.NewString(),
		Name:  name,
		Color: color,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO labels (id, name, color) VALUES (?, ?, ?)
	`, label.ID, label.Name, label.Color)
	if err != nil {
		return nil, fmt.Errorf("failed to insert label: %w", mapConstraintErr(err))
	}
	return label, nil
}

// ListLabels returns all labels ordered by name
func (s *SQLiteStorage) ListLabels(ctx context.Context) ([]*types.Label, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, color FROM labels ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query labels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var labels []*types.Label
	for rows.Next() {
		label := &types.Label{}
		if err := rows.Scan(&label.ID, &label.Name, &label.Color); err != nil {
			return nil, fmt.Errorf("failed to scan label: %w", err)
		}
		labels = append(labels, label)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating labels: %w", err)
	}
	return labels, nil
}

// DeleteLabel removes a label. Its association rows cascade away; the issues
// that carried it are untouched.
func (s *SQLiteStorage) DeleteLabel(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM labels WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete label: %w", err)
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
