package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/devdiary/internal/model"
)

type CategoryStore struct {
	db *sql.DB
}

func NewCategoryStore(db *sql.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

func (s *CategoryStore) Create(ctx context.Context, name, color string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `INSERT INTO categories (name, color) VALUES (?, ?)`, name, color)
	if isUniqueViolation(err) {
		return 0, fmt.Errorf("category %q: %w", name, ErrDuplicateName)
	}
	if err != nil {
		return 0, fmt.Errorf("insert category: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// EnsureExists inserts the category unless one with that name already exists.
func (s *CategoryStore) EnsureExists(ctx context.Context, name, color string) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO categories (name, color) VALUES (?, ?)`, name, color)
	if err != nil {
		return fmt.Errorf("upsert category: %w", err)
	}
	return nil
}

func (s *CategoryStore) GetByID(ctx context.Context, id int64) (*model.Category, error) {
	var c model.Category
	err := s.db.QueryRowContext(ctx, `SELECT id, name, color FROM categories WHERE id = ?`, id).Scan(&c.ID, &c.Name, &c.Color)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &c, nil
}

func (s *CategoryStore) List(ctx context.Context) ([]model.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, color FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Color); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// NameExists reports whether a category with the given name exists.
func (s *CategoryStore) NameExists(ctx context.Context, name string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories WHERE name = ?`, name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check category name: %w", err)
	}
	return count > 0, nil
}

// Delete removes the category. Entries that referenced it keep existing
// with a null category. It returns false if the category does not exist.
func (s *CategoryStore) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete category: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
