package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/pbaille/timelog/internal/domain"
	"go.uber.org/zap"
)

// SaveCategory inserts a new category or renames an existing one
func (s *Store) SaveCategory(c domain.Category) (*domain.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return nil, err
	}

	if existing, err := getCategoryByName(s.db, c.Name); err == nil {
		if c.ID == nil || *existing.ID != *c.ID {
			return nil, fmt.Errorf("category %q: %w", c.Name, ErrExists)
		}
		return existing, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if c.ID == nil {
		return insertCategory(s.db, c.Name)
	}

	res, err := s.db.Exec("UPDATE categories SET name = ? WHERE id = ?", c.Name, *c.ID)
	if err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("category %d: %w", *c.ID, ErrNotFound)
	}
	return &c, nil
}

// GetCategory retrieves a category by ID
func (s *Store) GetCategory(id int64) (*domain.Category, error) {
	var c domain.Category
	err := s.db.QueryRow("SELECT id, name FROM categories WHERE id = ?", id).Scan(&c.ID, &c.Name)
	if err != nil {
		return nil, notFound("get category", err)
	}
	return &c, nil
}

// GetCategoryByName retrieves a category by its unique name
func (s *Store) GetCategoryByName(name string) (*domain.Category, error) {
	return getCategoryByName(s.db, strings.TrimSpace(name))
}

// GetOrCreateCategory finds a category by name or creates it
func (s *Store) GetOrCreateCategory(name string) (*domain.Category, error) {
	return getOrCreateCategory(s.db, name)
}

// ListCategories returns all categories ordered by name
func (s *Store) ListCategories() ([]domain.Category, error) {
	rows, err := s.db.Query("SELECT id, name FROM categories ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// RemoveCategory deletes a category. Its activities become uncategorised; an
// activity whose name is already taken among uncategorised activities is merged
// into that one.
func (s *Store) RemoveCategory(id int64) error {
	err := s.withTx(func(tx *sql.Tx) error {
		rows, err := tx.Query("SELECT id, name FROM activities WHERE category_id = ?", id)
		if err != nil {
			return fmt.Errorf("list category activities: %w", err)
		}
		type pair struct {
			id   int64
			name string
		}
		var acts []pair
		for rows.Next() {
			var p pair
			if err := rows.Scan(&p.id, &p.name); err != nil {
				rows.Close()
				return fmt.Errorf("scan activity: %w", err)
			}
			acts = append(acts, p)
		}
		rows.Close()

		for _, a := range acts {
			var target int64
			err := tx.QueryRow("SELECT id FROM activities WHERE name = ? AND category_id IS NULL", a.name).Scan(&target)
			switch {
			case errors.Is(err, sql.ErrNoRows):
				if _, err := tx.Exec("UPDATE activities SET category_id = NULL WHERE id = ?", a.id); err != nil {
					return fmt.Errorf("uncategorise activity: %w", err)
				}
			case err != nil:
				return fmt.Errorf("find uncategorised activity: %w", err)
			default:
				if _, err := tx.Exec("UPDATE facts SET activity_id = ? WHERE activity_id = ?", target, a.id); err != nil {
					return fmt.Errorf("move facts: %w", err)
				}
				if _, err := tx.Exec("DELETE FROM activities WHERE id = ?", a.id); err != nil {
					return fmt.Errorf("delete merged activity: %w", err)
				}
			}
		}

		res, err := tx.Exec("DELETE FROM categories WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("delete category: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("category %d: %w", id, ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("removed category", zap.Int64("category_id", id))
	return nil
}

func getCategoryByName(q querier, name string) (*domain.Category, error) {
	var c domain.Category
	err := q.QueryRow("SELECT id, name FROM categories WHERE name = ?", name).Scan(&c.ID, &c.Name)
	if err != nil {
		return nil, notFound("get category", err)
	}
	return &c, nil
}

func insertCategory(q querier, name string) (*domain.Category, error) {
	res, err := q.Exec("INSERT INTO categories (name) VALUES (?)", name)
	if err != nil {
		return nil, fmt.Errorf("insert category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert category: %w", err)
	}
	return &domain.Category{ID: &id, Name: name}, nil
}

func getOrCreateCategory(q querier, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if err := (domain.Category{Name: name}).Validate(); err != nil {
		return nil, err
	}
	c, err := getCategoryByName(q, name)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return insertCategory(q, name)
}
