package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/pbaille/timelog/internal/domain"
	"go.uber.org/zap"
)

const activityColumns = `a.id, a.name, a.deleted, c.id, c.name`

const activityFrom = `FROM activities a LEFT JOIN categories c ON c.id = a.category_id`

// ActivityFilter narrows ListActivities
type ActivityFilter struct {
	// Category restricts to one category by name; a pointer to "" selects
	// uncategorised activities.
	Category       *string
	Search         string
	IncludeDeleted bool
}

// SaveActivity inserts a new activity or updates name and category of an existing one
func (s *Store) SaveActivity(a domain.Activity) (*domain.Activity, error) {
	a.Name = strings.TrimSpace(a.Name)
	if err := a.Validate(); err != nil {
		return nil, err
	}

	var saved *domain.Activity
	err := s.withTx(func(tx *sql.Tx) error {
		var categoryID *int64
		if a.Category != nil {
			c, err := getOrCreateCategory(tx, a.Category.Name)
			if err != nil {
				return err
			}
			a.Category = c
			categoryID = c.ID
		}

		existing, err := getActivityByComposite(tx, a.Name, categoryID)
		if err == nil {
			if a.ID == nil || *existing.ID != *a.ID {
				return fmt.Errorf("activity %q: %w", a.String(), ErrExists)
			}
			saved = existing
			return nil
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}

		if a.ID == nil {
			saved, err = insertActivity(tx, a.Name, a.Category)
			return err
		}
		res, err := tx.Exec("UPDATE activities SET name = ?, category_id = ?, deleted = ? WHERE id = ?",
			a.Name, categoryID, a.Deleted, *a.ID)
		if err != nil {
			return fmt.Errorf("update activity: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("activity %d: %w", *a.ID, ErrNotFound)
		}
		saved = &a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// GetActivity retrieves an activity by ID
func (s *Store) GetActivity(id int64) (*domain.Activity, error) {
	row := s.db.QueryRow("SELECT "+activityColumns+" "+activityFrom+" WHERE a.id = ?", id)
	a, err := scanActivity(row)
	if err != nil {
		return nil, notFound("get activity", err)
	}
	return a, nil
}

// GetActivityByComposite looks an activity up by its (name, category) key.
// An empty category selects the uncategorised activity.
func (s *Store) GetActivityByComposite(name, category string) (*domain.Activity, error) {
	var categoryID *int64
	if category != "" {
		c, err := getCategoryByName(s.db, strings.TrimSpace(category))
		if err != nil {
			return nil, fmt.Errorf("activity %s@%s: %w", name, category, ErrNotFound)
		}
		categoryID = c.ID
	}
	return getActivityByComposite(s.db, strings.TrimSpace(name), categoryID)
}

// GetOrCreateActivity resolves an activity and its category by natural key, creating what is missing
func (s *Store) GetOrCreateActivity(a domain.Activity) (*domain.Activity, error) {
	var out *domain.Activity
	err := s.withTx(func(tx *sql.Tx) error {
		var err error
		out, err = getOrCreateActivity(tx, a)
		return err
	})
	return out, err
}

// ListActivities returns activities ordered by name
func (s *Store) ListActivities(filter ActivityFilter) ([]domain.Activity, error) {
	query := "SELECT " + activityColumns + " " + activityFrom + " WHERE 1 = 1"
	var args []any
	if !filter.IncludeDeleted {
		query += " AND a.deleted = 0"
	}
	if filter.Category != nil {
		if *filter.Category == "" {
			query += " AND a.category_id IS NULL"
		} else {
			query += " AND c.name = ?"
			args = append(args, *filter.Category)
		}
	}
	if filter.Search != "" {
		query += " AND a.name LIKE ?"
		args = append(args, "%"+filter.Search+"%")
	}
	query += " ORDER BY a.name, c.name"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var activities []domain.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		activities = append(activities, *a)
	}
	return activities, rows.Err()
}

// RemoveActivity deletes an unused activity. Activities still referenced by
// facts are only flagged as deleted.
func (s *Store) RemoveActivity(id int64) error {
	var flagged bool
	err := s.withTx(func(tx *sql.Tx) error {
		var used int
		if err := tx.QueryRow("SELECT COUNT(*) FROM facts WHERE activity_id = ?", id).Scan(&used); err != nil {
			return fmt.Errorf("count facts: %w", err)
		}
		query := "DELETE FROM activities WHERE id = ?"
		if used > 0 {
			query = "UPDATE activities SET deleted = 1 WHERE id = ?"
			flagged = true
		}
		res, err := tx.Exec(query, id)
		if err != nil {
			return fmt.Errorf("remove activity: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("activity %d: %w", id, ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("removed activity", zap.Int64("activity_id", id), zap.Bool("flagged_only", flagged))
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanActivity(row rowScanner) (*domain.Activity, error) {
	var (
		a            domain.Activity
		categoryID   sql.NullInt64
		categoryName sql.NullString
	)
	if err := row.Scan(&a.ID, &a.Name, &a.Deleted, &categoryID, &categoryName); err != nil {
		return nil, err
	}
	if categoryID.Valid {
		id := categoryID.Int64
		a.Category = &domain.Category{ID: &id, Name: categoryName.String}
	}
	return &a, nil
}

func getActivityByComposite(q querier, name string, categoryID *int64) (*domain.Activity, error) {
	var cid int64
	if categoryID != nil {
		cid = *categoryID
	}
	row := q.QueryRow("SELECT "+activityColumns+" "+activityFrom+
		" WHERE a.name = ? AND IFNULL(a.category_id, 0) = ?", name, cid)
	a, err := scanActivity(row)
	if err != nil {
		return nil, notFound("get activity", err)
	}
	return a, nil
}

func insertActivity(q querier, name string, category *domain.Category) (*domain.Activity, error) {
	var categoryID *int64
	if category != nil {
		categoryID = category.ID
	}
	res, err := q.Exec("INSERT INTO activities (name, category_id) VALUES (?, ?)", name, categoryID)
	if err != nil {
		return nil, fmt.Errorf("insert activity: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert activity: %w", err)
	}
	return &domain.Activity{ID: &id, Name: name, Category: category}, nil
}

// getOrCreateActivity resolves by natural key; a deleted activity is revived.
func getOrCreateActivity(q querier, a domain.Activity) (*domain.Activity, error) {
	a.Name = strings.TrimSpace(a.Name)
	if err := a.Validate(); err != nil {
		return nil, err
	}

	var category *domain.Category
	var categoryID *int64
	if a.Category != nil {
		c, err := getOrCreateCategory(q, a.Category.Name)
		if err != nil {
			return nil, err
		}
		category = c
		categoryID = c.ID
	}

	existing, err := getActivityByComposite(q, a.Name, categoryID)
	if err == nil {
		if existing.Deleted {
			if _, err := q.Exec("UPDATE activities SET deleted = 0 WHERE id = ?", *existing.ID); err != nil {
				return nil, fmt.Errorf("revive activity: %w", err)
			}
			existing.Deleted = false
		}
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return insertActivity(q, a.Name, category)
}
