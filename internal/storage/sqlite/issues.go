package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/codetrail/tracker/internal/storage"
	"github.com/codetrail/tracker/internal/types"
)

// issueJoinColumns is the select list shared by GetIssue and ListIssues. One
// row per (issue, label) pair; label and assignee columns are nullable.
const issueJoinColumns = `
	i.id, i.title, i.description, i.status, i.priority, i.created_at, i.updated_at,
	i.created_by, cu.name AS creator_name,
	au.id AS assignee_id, au.name AS assignee_name,
	l.id AS label_id, l.name AS label_name, l.color AS label_color`

// Allowed sort columns to prevent SQL injection. Anything not listed falls
// back to the default updated_at DESC ordering.
var sortColumns = map[string]string{
	"updated_at": "updated_at",
	"updatedAt":  "updated_at",
	"priority":   "priority",
	"status":     "status",
}

// orderClause resolves the requested sort into a safe ORDER BY fragment
func orderClause(filter types.IssueFilter) string {
	col, ok := sortColumns[filter.SortField]
	if !ok {
		return "i.updated_at DESC"
	}
	dir := "DESC"
	if filter.SortDirection == "asc" {
		dir = "ASC"
	}
	return fmt.Sprintf("i.%s %s", col, dir)
}

// buildIssueFilters composes the conjunctive WHERE predicates for a listing.
// Each optional filter appends a (clause, bound value) pair; values are never
// interpolated into the query text.
func buildIssueFilters(filter types.IssueFilter) ([]string, []interface{}) {
	whereClauses := []string{}
	args := []interface{}{}

	if filter.Search != "" {
		whereClauses = append(whereClauses, "LOWER(i.title) LIKE LOWER(?)")
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.Status != "" {
		whereClauses = append(whereClauses, "i.status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Priority != "" {
		whereClauses = append(whereClauses, "i.priority = ?")
		args = append(args, string(filter.Priority))
	}
	if filter.AssigneeID != "" {
		whereClauses = append(whereClauses, "i.assignee_id = ?")
		args = append(args, filter.AssigneeID)
	}
	if filter.LabelID != "" {
		// Existence test keeps the filtered relation at issue grain; joining
		// issue_labels here would multiply rows before counting.
		whereClauses = append(whereClauses, "EXISTS (SELECT 1 FROM issue_labels il WHERE il.issue_id = i.id AND il.label_id = ?)")
		args = append(args, filter.LabelID)
	}

	return whereClauses, args
}

// ListIssues returns one page of issues matching the filter, with labels,
// creator and assignee populated, plus pagination metadata.
//
// LIMIT/OFFSET are applied in an inner sub-select over issues alone, before
// the label join multiplies rows, so paging operates on distinct issues.
func (s *SQLiteStorage) ListIssues(ctx context.Context, page, limit int, filter types.IssueFilter) (*types.IssuePage, error) {
	if page < 1 {
		return nil, fmt.Errorf("page must be >= 1 (got %d)", page)
	}
	if limit < 1 || limit > 100 {
		return nil, fmt.Errorf("limit must be between 1 and 100 (got %d)", limit)
	}
	offset := (page - 1) * limit

	whereClauses, args := buildIssueFilters(filter)
	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = "WHERE " + strings.Join(whereClauses, " AND ")
	}
	order := orderClause(filter)

	// The ORDER BY is repeated outside the paged subquery so the fold sees
	// rows in page order.
	// #nosec G201 - whereSQL and order are built from controlled fragments
	querySQL := fmt.Sprintf(`
		SELECT %s
		FROM (SELECT * FROM issues i %s ORDER BY %s LIMIT ? OFFSET ?) i
		LEFT JOIN users cu ON cu.id = i.created_by
		LEFT JOIN users au ON au.id = i.assignee_id
		LEFT JOIN issue_labels il ON il.issue_id = i.id
		LEFT JOIN labels l ON l.id = il.label_id
		ORDER BY %s
	`, issueJoinColumns, whereSQL, order, order)

	queryArgs := append(append([]interface{}{}, args...), limit, offset)
	rows, err := s.db.QueryContext(ctx, querySQL, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}
	flat, err := scanIssueRows(rows)
	if err != nil {
		return nil, err
	}

	// Count distinct matching issues, independent of label fan-out.
	// #nosec G201 - whereSQL is built from controlled fragments
	countSQL := fmt.Sprintf(`SELECT COUNT(*) FROM issues i %s`, whereSQL)
	var total int
	if err := s.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count issues: %w", err)
	}

	return &types.IssuePage{
		Data: buildIssues(flat),
		Meta: types.PageMeta{
			Page:        page,
			Limit:       limit,
			TotalIssues: total,
			TotalPages:  (total + limit - 1) / limit,
		},
	}, nil
}

// GetIssue retrieves an issue by ID with labels, creator and assignee populated
func (s *SQLiteStorage) GetIssue(ctx context.Context, id string) (*types.Issue, error) {
	querySQL := fmt.Sprintf(`
		SELECT %s
		FROM issues i
		LEFT JOIN users cu ON cu.id = i.created_by
		LEFT JOIN users au ON au.id = i.assignee_id
		LEFT JOIN issue_labels il ON il.issue_id = i.id
		LEFT JOIN labels l ON l.id = il.label_id
		WHERE i.id = ?
	`, issueJoinColumns)

	rows, err := s.db.QueryContext(ctx, querySQL, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get issue: %w", err)
	}
	flat, err := scanIssueRows(rows)
	if err != nil {
		return nil, err
	}

	issues := buildIssues(flat)
	if len(issues) == 0 {
		return nil, storage.ErrNotFound
	}
	return issues[0], nil
}

func scanIssueRows(rows *sql.Rows) ([]issueRow, error) {
	defer func() { _ = rows.Close() }()

	var flat []issueRow
	for rows.Next() {
		var r issueRow
		if err := rows.Scan(
			&r.ID, &r.Title, &r.Description, &r.Status, &r.Priority,
			&r.CreatedAt, &r.UpdatedAt,
			&r.CreatedBy, &r.CreatorName,
			&r.AssigneeID, &r.AssigneeName,
			&r.LabelID, &r.LabelName, &r.LabelColor,
		); err != nil {
			return nil, fmt.Errorf("failed to scan issue row: %w", err)
		}
		flat = append(flat, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating issue rows: %w", err)
	}
	return flat, nil
}

// CreateIssue inserts an issue and its label associations as one atomic unit
// and returns the new issue id. An unknown label or assignee id trips a
// foreign key constraint and rolls the whole operation back.
func (s *SQLiteStorage) CreateIssue(ctx context.Context, in *types.NewIssue) (string, error) {
	if err := in.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}

	id := uuid.NewString()
	now := time.Now().UTC()

	// Acquire a dedicated connection for the transaction. We execute raw
	// "BEGIN IMMEDIATE"/"COMMIT" so the write lock is taken up front, and
	// database/sql's pool would otherwise route statements to different
	// connections.
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return "", fmt.Errorf("failed to begin immediate transaction: %w", err)
	}

	// Use context.Background() for ROLLBACK so cleanup happens even if ctx is canceled
	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	_, err = conn.ExecContext(ctx, `
		INSERT INTO issues (id, title, description, status, priority, assignee_id, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, in.Title, in.Description, string(in.Status), string(in.Priority), nullableStr(in.AssigneeID), in.CreatedBy, now, now)
	if err != nil {
		return "", fmt.Errorf("failed to insert issue: %w", mapConstraintErr(err))
	}

	for _, labelID := range in.LabelIDs {
		_, err = conn.ExecContext(ctx, `
			INSERT INTO issue_labels (issue_id, label_id) VALUES (?, ?)
		`, id, labelID)
		if err != nil {
			return "", fmt.Errorf("failed to link label %s: %w", labelID, mapConstraintErr(err))
		}
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return id, nil
}

// UpdateIssue applies a patch to an issue and replaces its label set as one
// atomic unit. Unset scalar fields keep their stored value via COALESCE;
// assignee_id is always overwritten (nil clears it); updated_at is refreshed
// unconditionally. The supplied label ids wholesale-replace the existing
// associations, so an empty list clears all labels.
func (s *SQLiteStorage) UpdateIssue(ctx context.Context, id string, patch *types.IssuePatch) error {
	if err := patch.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return fmt.Errorf("failed to begin immediate transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	result, err := conn.ExecContext(ctx, `
		UPDATE issues
		SET title = COALESCE(?, title),
		    description = COALESCE(?, description),
		    status = COALESCE(?, status),
		    priority = COALESCE(?, priority),
		    assignee_id = ?,
		    updated_at = ?
		WHERE id = ?
	`, nullableStr(patch.Title), nullableStr(patch.Description),
		nullableStatus(patch.Status), nullablePriority(patch.Priority),
		nullableStr(patch.AssigneeID), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update issue: %w", mapConstraintErr(err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}

	// Full-replace of the label set
	if _, err := conn.ExecContext(ctx, `DELETE FROM issue_labels WHERE issue_id = ?`, id); err != nil {
		return fmt.Errorf("failed to clear label links: %w", err)
	}
	for _, labelID := range patch.LabelIDs {
		_, err = conn.ExecContext(ctx, `
			INSERT INTO issue_labels (issue_id, label_id) VALUES (?, ?)
		`, id, labelID)
		if err != nil {
			return fmt.Errorf("failed to link label %s: %w", labelID, mapConstraintErr(err))
		}
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

// DeleteIssue permanently removes an issue. Association rows and comments go
// with it via the schema's ON DELETE CASCADE rules, not explicit deletes.
func (s *SQLiteStorage) DeleteIssue(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM issues WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete issue: %w", err)
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

// nullableStr converts an optional string into a driver-bindable value
func nullableStr(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func nullableStatus(s *types.Status) interface{} {
	if s == nil {
		return nil
	}
	return string(*s)
}

func nullablePriority(p *types.Priority) interface{} {
	if p == nil {
		return nil
	}
	return string(*p)
}
