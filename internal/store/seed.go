package store

import (
	"context"
	"database/sql"
)

type seedLabel struct {
	Name  string
	Color string
}

var defaultCategories = []seedLabel{
	{"Development", "#3b82f6"},
	{"Bug Fix", "#ef4444"},
	{"Learning", "#10b981"},
	{"Memo", "#f59e0b"},
}

var defaultTags = []seedLabel{
	{"Important", "#ef4444"},
	{"In Progress", "#f59e0b"},
	{"Done", "#10b981"},
	{"Awaiting Review", "#8b5cf6"},
}

// Seed inserts the default categories and tags, skipping names that
// already exist.
func Seed(ctx context.Context, db *sql.DB) error {
	cs := NewCategoryStore(db)
	for _, c := range defaultCategories {
		if err := cs.EnsureExists(ctx, c.Name, c.Color); err != nil {
			return err
		}
	}
	ts := NewTagStore(db)
	for _, t := range defaultTags {
		if err := ts.EnsureExists(ctx, t.Name, t.Color); err != nil {
			return err
		}
	}
	return nil
}
