package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/devdiary/internal/model"
)

type StatsStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewStatsStore(db *sql.DB) *StatsStore {
	return &StatsStore{db: db, now: time.Now}
}

// Get computes entry totals and per-category and per-tag counts inside one
// transaction, so all numbers describe the same snapshot. Categories and
// tags without entries are reported with a zero count.
func (s *StatsStore) Get(ctx context.Context) (*model.Stats, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	stats := &model.Stats{
		EntriesByCategory: []model.GroupCount{},
		EntriesByTag:      []model.GroupCount{},
	}
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(is_pinned), 0),
		        COALESCE(SUM(is_favorite), 0)
		 FROM entries`,
		formatTime(monthStart),
	).Scan(&stats.TotalEntries, &stats.ThisMonthEntries, &stats.PinnedEntries, &stats.FavoriteEntries)
	if err != nil {
		return nil, fmt.Errorf("count entries: %w", err)
	}

	stats.EntriesByCategory, err = groupCounts(ctx, tx,
		`SELECT c.name, c.color, COUNT(e.id)
		 FROM categories c LEFT JOIN entries e ON e.category_id = c.id
		 GROUP BY c.id ORDER BY c.name`)
	if err != nil {
		return nil, fmt.Errorf("count by category: %w", err)
	}

	stats.EntriesByTag, err = groupCounts(ctx, tx,
		`SELECT t.name, t.color, COUNT(et.entry_id)
		 FROM tags t LEFT JOIN entry_tags et ON et.tag_id = t.id
		 GROUP BY t.id ORDER BY t.name`)
	if err != nil {
		return nil, fmt.Errorf("count by tag: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return stats, nil
}

func groupCounts(ctx context.Context, q queryer, query string) ([]model.GroupCount, error) {
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := []model.GroupCount{}
	for rows.Next() {
		var g model.GroupCount
		if err := rows.Scan(&g.Name, &g.Color, &g.Count); err != nil {
			return nil, err
		}
		counts = append(counts, g)
	}
	return counts, rows.Err()
}
