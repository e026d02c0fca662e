package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/devdiary/internal/model"
)

type EntryStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewEntryStore(db *sql.DB) *EntryStore {
	return &EntryStore{db: db, now: time.Now}
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const entryCols = `e.id, e.title, e.content, e.category_id, e.is_pinned, e.is_favorite,
	e.created_at, e.updated_at, c.name, c.color`

const entryFrom = ` FROM entries e LEFT JOIN categories c ON c.id = e.category_id`

func scanEntry(scanner interface{ Scan(...any) error }) (*model.Entry, error) {
	var e model.Entry
	var categoryID sql.NullInt64
	var categoryName, categoryColor sql.NullString
	var pinned, favorite int

	err := scanner.Scan(
		&e.ID, &e.Title, &e.Content, &categoryID, &pinned, &favorite,
		scanTime{&e.CreatedAt}, scanTime{&e.UpdatedAt}, &categoryName, &categoryColor,
	)
	if err != nil {
		return nil, err
	}

	e.IsPinned = pinned != 0
	e.IsFavorite = favorite != 0
	if categoryID.Valid {
		e.CategoryID = &categoryID.Int64
	}
	if categoryName.Valid {
		e.CategoryName = &categoryName.String
	}
	if categoryColor.Valid {
		e.CategoryColor = &categoryColor.String
	}
	e.Tags = []model.Tag{}
	return &e, nil
}

// Create inserts an entry and its tag associations in one transaction and
// returns the new id.
func (s *EntryStore) Create(ctx context.Context, in model.NewEntry) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := checkCategory(ctx, tx, in.CategoryID); err != nil {
		return 0, err
	}

	var catID sql.NullInt64
	if in.CategoryID != nil {
		catID = sql.NullInt64{Int64: *in.CategoryID, Valid: true}
	}
	now := formatTime(s.now())

	result, err := tx.ExecContext(ctx,
		`INSERT INTO entries (title, content, category_id, is_pinned, is_favorite, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		in.Title, in.Content, catID, boolInt(in.IsPinned), boolInt(in.IsFavorite), now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("insert entry: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	if err := insertEntryTags(ctx, tx, id, in.TagIDs); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// GetByID returns the enriched entry, or nil if it does not exist.
func (s *EntryStore) GetByID(ctx context.Context, id int64) (*model.Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryCols+entryFrom+` WHERE e.id = ?`, id)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}

	entries := []model.Entry{*e}
	if err := s.attachTags(ctx, entries); err != nil {
		return nil, err
	}
	return &entries[0], nil
}

// List returns entries matching every set filter, pinned entries first and
// then newest first. Search matches title or content with Unicode case
// folding.
func (s *EntryStore) List(ctx context.Context, f model.EntryFilter) ([]model.Entry, error) {
	var where []string
	var args []any

	if term := strings.TrimSpace(f.Search); term != "" {
		where = append(where, `(instr(casefold(e.title), casefold(?)) > 0 OR instr(casefold(e.content), casefold(?)) > 0)`)
		args = append(args, term, term)
	}
	if f.CategoryID != 0 {
		where = append(where, `e.category_id = ?`)
		args = append(args, f.CategoryID)
	}
	if f.TagID != 0 {
		where = append(where, `EXISTS (SELECT 1 FROM entry_tags et WHERE et.entry_id = e.id AND et.tag_id = ?)`)
		args = append(args, f.TagID)
	}
	if f.StartDate != nil {
		where = append(where, `e.created_at >= ?`)
		args = append(args, formatTime(*f.StartDate))
	}
	if f.EndDate != nil {
		where = append(where, `e.created_at <= ?`)
		args = append(args, formatTime(*f.EndDate))
	}
	if f.PinnedOnly {
		where = append(where, `e.is_pinned = 1`)
	}
	if f.FavoriteOnly {
		where = append(where, `e.is_favorite = 1`)
	}

	query := `SELECT ` + entryCols + entryFrom
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY e.is_pinned DESC, e.created_at DESC, e.id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	var entries []model.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, *e)
	}
	// The pool holds a single connection, so rows must be released before
	// the tag query runs.
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	if err := s.attachTags(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// attachTags loads the tag lists for entries with a single query.
func (s *EntryStore) attachTags(ctx context.Context, entries []model.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	index := make(map[int64]int, len(entries))
	args := make([]any, 0, len(entries))
	for i, e := range entries {
		index[e.ID] = i
		args = append(args, e.ID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT et.entry_id, t.id, t.name, t.color
		 FROM entry_tags et JOIN tags t ON t.id = et.tag_id
		 WHERE et.entry_id IN (`+placeholders(len(args))+`)
		 ORDER BY t.name`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("list entry tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entryID int64
		var t model.Tag
		if err := rows.Scan(&entryID, &t.ID, &t.Name, &t.Color); err != nil {
			return fmt.Errorf("scan entry tag: %w", err)
		}
		if i, ok := index[entryID]; ok {
			entries[i].Tags = append(entries[i].Tags, t)
		}
	}
	return rows.Err()
}

// Update merges the patch into the stored entry. When the patch carries tag
// ids, the entry's associations are deleted and re-inserted from the list.
// It returns false if the entry does not exist.
func (s *EntryStore) Update(ctx context.Context, id int64, p model.EntryPatch) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var title, content string
	var categoryID sql.NullInt64
	var pinned, favorite int
	var createdAt time.Time
	err = tx.QueryRowContext(ctx,
		`SELECT title, content, category_id, is_pinned, is_favorite, created_at FROM entries WHERE id = ?`, id,
	).Scan(&title, &content, &categoryID, &pinned, &favorite, scanTime{&createdAt})
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get entry: %w", err)
	}

	if p.Title != nil {
		title = *p.Title
	}
	if p.Content != nil {
		content = *p.Content
	}
	if p.SetCategory {
		if err := checkCategory(ctx, tx, p.CategoryID); err != nil {
			return false, err
		}
		categoryID = sql.NullInt64{}
		if p.CategoryID != nil {
			categoryID = sql.NullInt64{Int64: *p.CategoryID, Valid: true}
		}
	}
	if p.IsPinned != nil {
		pinned = boolInt(*p.IsPinned)
	}
	if p.IsFavorite != nil {
		favorite = boolInt(*p.IsFavorite)
	}

	now := s.now()
	if now.Before(createdAt) {
		now = createdAt
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE entries SET title = ?, content = ?, category_id = ?, is_pinned = ?, is_favorite = ?, updated_at = ?
		 WHERE id = ?`,
		title, content, categoryID, pinned, favorite, formatTime(now), id,
	)
	if err != nil {
		return false, fmt.Errorf("update entry: %w", err)
	}

	if p.TagIDs != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM entry_tags WHERE entry_id = ?`, id); err != nil {
			return false, fmt.Errorf("clear entry tags: %w", err)
		}
		if err := insertEntryTags(ctx, tx, id, *p.TagIDs); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

// Delete removes the entry; its tag associations cascade. It returns false
// if the entry does not exist.
func (s *EntryStore) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete entry: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// CountByDay returns per-day entry counts for entries created in [from, to),
// bucketed by calendar day in loc.
func (s *EntryStore) CountByDay(ctx context.Context, from, to time.Time, loc *time.Location) ([]model.DayCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT created_at FROM entries WHERE created_at >= ? AND created_at < ? ORDER BY created_at`,
		formatTime(from), formatTime(to),
	)
	if err != nil {
		return nil, fmt.Errorf("count by day: %w", err)
	}
	defer rows.Close()

	var counts []model.DayCount
	for rows.Next() {
		var created time.Time
		if err := rows.Scan(scanTime{&created}); err != nil {
			return nil, fmt.Errorf("scan created_at: %w", err)
		}
		day := created.In(loc).Format("2006-01-02")
		if n := len(counts); n > 0 && counts[n-1].Day == day {
			counts[n-1].Count++
			continue
		}
		counts = append(counts, model.DayCount{Day: day, Count: 1})
	}
	return counts, rows.Err()
}

func checkCategory(ctx context.Context, q queryer, id *int64) error {
	if id == nil {
		return nil
	}
	var exists int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM categories WHERE id = ?`, *id).Scan(&exists)
	if err == sql.ErrNoRows {
		return fmt.Errorf("category %d: %w", *id, ErrInvalidReference)
	}
	if err != nil {
		return fmt.Errorf("check category: %w", err)
	}
	return nil
}

func insertEntryTags(ctx context.Context, q queryer, entryID int64, tagIDs []int64) error {
	seen := make(map[int64]bool, len(tagIDs))
	for _, tagID := range tagIDs {
		if seen[tagID] {
			continue
		}
		seen[tagID] = true

		_, err := q.ExecContext(ctx, `INSERT INTO entry_tags (entry_id, tag_id) VALUES (?, ?)`, entryID, tagID)
		if isForeignKeyViolation(err) {
			return fmt.Errorf("tag %d: %w", tagID, ErrInvalidReference)
		}
		if err != nil {
			return fmt.Errorf("insert entry tag: %w", err)
		}
	}
	return nil
}
