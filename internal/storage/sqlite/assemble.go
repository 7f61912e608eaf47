package sqlite

import (
	"database/sql"
	"time"

	"github.com/codetrail/tracker/internal/types"
)

// issueRow is one flat row of the issues/users/labels join: issue scalars plus
// nullable assignee and label columns. An issue with N labels produces N rows;
// an issue with none produces one row with null label columns.
type issueRow struct {
	ID           string
	Title        string
	Description  string
	Status       string
	Priority     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CreatedBy    string
	CreatorName  sql.NullString
	AssigneeID   sql.NullString
	AssigneeName sql.NullString
	LabelID      sql.NullString
	LabelName    sql.NullString
	LabelColor   sql.NullString
}

// buildIssues folds flat join rows into one issue per distinct id, preserving
// the first-seen order of issues and accumulating labels in row order. The
// association table's composite primary key guarantees the store never feeds
// this a duplicate (issue, label) pair, so no de-duplication happens here.
func buildIssues(rows []issueRow) []*types.Issue {
	byID := make(map[string]*types.Issue, len(rows))
	ordered := make([]*types.Issue, 0, len(rows))

	for _, r := range rows {
		issue, ok := byID[r.ID]
		if !ok {
			issue = &types.Issue{
				ID:          r.ID,
				Title:       r.Title,
				Description: r.Description,
				Status:      types.Status(r.Status),
				Priority:    types.Priority(r.Priority),
				Creator: types.UserRef{
					ID:   r.CreatedBy,
					Name: r.CreatorName.String,
				},
				Labels:    []types.Label{},
				CreatedAt: r.CreatedAt,
				UpdatedAt: r.UpdatedAt,
			}
			if r.AssigneeID.Valid {
				issue.Assignee = &types.UserRef{
					ID:   r.AssigneeID.String,
					Name: r.AssigneeName.String,
				}
			}
			byID[r.ID] = issue
			ordered = append(ordered, issue)
		}

		if r.LabelID.Valid {
			issue.Labels = append(issue.Labels, types.Label{
				ID:    r.LabelID.String,
				Name:  r.LabelName.String,
				Color: r.LabelColor.String,
			})
		}
	}

	return ordered
}
