package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/pbaille/timelog/internal/domain"
	"go.uber.org/zap"
)

// GetOrCreateTag finds a tag by name or creates it
func (s *Store) GetOrCreateTag(name string) (*domain.Tag, error) {
	return getOrCreateTag(s.db, name)
}

// GetTag retrieves a tag by ID
func (s *Store) GetTag(id int64) (*domain.Tag, error) {
	var t domain.Tag
	err := s.db.QueryRow("SELECT id, name FROM tags WHERE id = ?", id).Scan(&t.ID, &t.Name)
	if err != nil {
		return nil, notFound("get tag", err)
	}
	return &t, nil
}

// ListTags returns all tags
func (s *Store) ListTags() ([]domain.Tag, error) {
	rows, err := s.db.Query("SELECT id, name FROM tags ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var tags []domain.Tag
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// RemoveTag deletes a tag and detaches it from all facts
func (s *Store) RemoveTag(id int64) error {
	err := s.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM fact_tags WHERE tag_id = ?", id); err != nil {
			return fmt.Errorf("unlink tag: %w", err)
		}
		res, err := tx.Exec("DELETE FROM tags WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("delete tag: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("tag %d: %w", id, ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("removed tag", zap.Int64("tag_id", id))
	return nil
}

func getOrCreateTag(q querier, name string) (*domain.Tag, error) {
	name = strings.TrimSpace(name)
	if err := (domain.Tag{Name: name}).Validate(); err != nil {
		return nil, err
	}

	var t domain.Tag
	err := q.QueryRow("SELECT id, name FROM tags WHERE name = ?", name).Scan(&t.ID, &t.Name)
	if err == nil {
		return &t, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find tag: %w", err)
	}

	res, err := q.Exec("INSERT INTO tags (name) VALUES (?)", name)
	if err != nil {
		return nil, fmt.Errorf("insert tag: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert tag: %w", err)
	}
	return &domain.Tag{ID: &id, Name: name}, nil
}

// linkFactTags replaces the tag set of a fact
func linkFactTags(q querier, factID int64, tags []domain.Tag) ([]domain.Tag, error) {
	if _, err := q.Exec("DELETE FROM fact_tags WHERE fact_id = ?", factID); err != nil {
		return nil, fmt.Errorf("clear fact tags: %w", err)
	}
	var linked []domain.Tag
	for _, t := range tags {
		tag, err := getOrCreateTag(q, t.Name)
		if err != nil {
			return nil, err
		}
		if _, err := q.Exec("INSERT OR IGNORE INTO fact_tags (fact_id, tag_id) VALUES (?, ?)", factID, *tag.ID); err != nil {
			return nil, fmt.Errorf("link fact tag: %w", err)
		}
		linked = append(linked, *tag)
	}
	return linked, nil
}
