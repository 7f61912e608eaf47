package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/codetrail/tracker/internal/auth"
	"github.com/codetrail/tracker/internal/storage/sqlite"
	"github.com/codetrail/tracker/internal/types"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate the database with demo data",
	Long:  `Inserts a couple of demo users (password "password"), a handful of labels and a batch of issues for local development.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := dbPath
		if path == "" {
			var err error
			path, err = defaultDBPath()
			if err != nil {
				return err
			}
		}

		store, err := sqlite.New(path)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer store.Close()

		if err := seedDemoData(cmd.Context(), store); err != nil {
			color.Red("✗ Seeding failed: %v", err)
			return err
		}
		color.Green("✓ Seed data inserted into %s", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

type seedIssue struct {
	title       string
	description string
	status      types.Status
	priority    types.Priority
	assignee    string // user email, "" for unassigned
	creator     string // user email
	label       string // label name, "" for none
}

func seedDemoData(ctx context.Context, store *sqlite.SQLiteStorage) error {
	hash, err := auth.HashPassword("password")
	if err != nil {
		return err
	}

	userIDs := make(map[string]string)
	for _, u := range []struct{ email, name string }{
		{"john@test.com", "John Doe"},
		{"jane@test.com", "Jane Smith"},
	} {
		user, err := store.CreateUser(ctx, u.email, u.name, hash)
		if err != nil {
			return fmt.Errorf("failed to seed user %s: %w", u.email, err)
		}
		userIDs[u.email] = user.ID
	}

	labelIDs := make(map[string]string)
	for _, l := range []struct{ name, color string }{
		{"bug", "#ef4444"},
		{"feature", "#3b82f6"},
		{"performance", "#f59e0b"},
	} {
		label, err := store.CreateLabel(ctx, l.name, l.color)
		if err != nil {
			return fmt.Errorf("failed to seed label %s: %w", l.name, err)
		}
		labelIDs[l.name] = label.ID
	}

	issues := []seedIssue{
		{"Fix login page validation", "Login fails on invalid input", types.StatusTodo, types.PriorityHigh, "john@test.com", "jane@test.com", "bug"},
		{"Performance optimization", "Improve page load speed", types.StatusInProgress, types.PriorityHigh, "john@test.com", "jane@test.com", "performance"},
		{"Add dark mode support", "Add dark theme", types.StatusInProgress, types.PriorityMedium, "jane@test.com", "john@test.com", "feature"},
		{"Fix mobile responsiveness", "UI breaks on small screens", types.StatusDone, types.PriorityMedium, "", "jane@test.com", ""},
		{"Update README", "Improve documentation", types.StatusDone, types.PriorityLow, "", "jane@test.com", ""},
		{"Improve accessibility", "ARIA labels and contrast fixes", types.StatusTodo, types.PriorityMedium, "", "jane@test.com", ""},
		{"Optimize DB queries", "Reduce query count", types.StatusTodo, types.PriorityHigh, "jane@test.com", "john@test.com", ""},
		{"Add avatar upload", "Allow profile pictures", types.StatusInProgress, types.PriorityMedium, "jane@test.com", "john@test.com", ""},
		{"Fix navbar overlap", "Navbar overlaps content", types.StatusTodo, types.PriorityLow, "", "jane@test.com", ""},
		{"Polish UI spacing", "Improve margins and paddings", types.StatusDone, types.PriorityLow, "", "jane@test.com", ""},
	}

	var firstIssueID string
	for i, in := range issues {
		newIssue := &types.NewIssue{
			Title:       in.title,
			Description: in.description,
			Status:      in.status,
			Priority:    in.priority,
			CreatedBy:   userIDs[in.creator],
		}
		if in.assignee != "" {
			id := userIDs[in.assignee]
			newIssue.AssigneeID = &id
		}
		if in.label != "" {
			newIssue.LabelIDs = []string{labelIDs[in.label]}
		}
		id, err := store.CreateIssue(ctx, newIssue)
		if err != nil {
			return fmt.Errorf("failed to seed issue %q: %w", in.title, err)
		}
		if i == 0 {
			firstIssueID = id
		}
	}

	for _, c := range []struct{ author, content string }{
		{"jane@test.com", "Reproduced on the staging build."},
		{"john@test.com", "Looking into it, validation regex is off."},
	} {
		if _, err := store.CreateComment(ctx, firstIssueID, userIDs[c.author], c.content); err != nil {
			return fmt.Errorf("failed to seed comment: %w", err)
		}
	}

	return nil
}
