package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pbaille/timelog/internal/domain"
	"github.com/pbaille/timelog/internal/timeframe"
	"go.uber.org/zap"
)

const factColumns = `f.id, f.start_time, f.end_time, f.description, ` + activityColumns

const factFrom = `FROM facts f
	JOIN activities a ON a.id = f.activity_id
	LEFT JOIN categories c ON c.id = a.category_id`

// FactFilter narrows ListFacts. Start and End select facts intersecting that range.
type FactFilter struct {
	Start  *time.Time
	End    *time.Time
	Search string
	Limit  int
}

// SaveFact inserts or updates a fact, resolving its activity, category and
// tags by natural key.
func (s *Store) SaveFact(f domain.Fact) (*domain.Fact, error) {
	if err := s.checkFact(f); err != nil {
		return nil, err
	}
	if err := s.withTx(func(tx *sql.Tx) error {
		return saveFact(tx, &f)
	}); err != nil {
		return nil, err
	}

	s.logger.Debug("saved fact",
		zap.Int64("fact_id", *f.ID),
		zap.String("activity", f.Activity.String()),
		zap.Bool("ongoing", f.IsOngoing()))
	return &f, nil
}

// StartFact ends the ongoing fact, if any, at f's start and saves f in the
// same transaction. stopped is nil when nothing was ongoing.
func (s *Store) StartFact(f domain.Fact) (stopped, saved *domain.Fact, err error) {
	if err := s.checkFact(f); err != nil {
		return nil, nil, err
	}

	err = s.withTx(func(tx *sql.Tx) error {
		current, err := ongoingFact(tx)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("get ongoing fact: %w", err)
		default:
			end := f.Start
			current.End = &end
			if err := s.checkFact(*current); err != nil {
				return err
			}
			if err := saveFact(tx, current); err != nil {
				return err
			}
			stopped = current
		}
		return saveFact(tx, &f)
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Debug("started fact",
		zap.Int64("fact_id", *f.ID),
		zap.String("activity", f.Activity.String()),
		zap.Bool("stopped_previous", stopped != nil))
	return stopped, &f, nil
}

// checkFact validates f and enforces the minimum duration of finished facts.
func (s *Store) checkFact(f domain.Fact) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if f.End != nil && s.minDelta > 0 && f.End.Sub(f.Start) < s.minDelta {
		return fmt.Errorf("%s: %w (%s)", f.Activity, ErrTooShort, s.minDelta)
	}
	return nil
}

func saveFact(tx *sql.Tx, f *domain.Fact) error {
	var self int64
	if f.ID != nil {
		self = *f.ID
	}

	if f.End == nil {
		var other int64
		err := tx.QueryRow("SELECT id FROM facts WHERE end_time IS NULL AND id != ?", self).Scan(&other)
		if err == nil {
			return fmt.Errorf("fact %d: %w", other, ErrOngoingExists)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("find ongoing fact: %w", err)
		}
	}
	if err := checkOverlap(tx, self, f.Start, f.End); err != nil {
		return err
	}

	activity, err := getOrCreateActivity(tx, f.Activity)
	if err != nil {
		return err
	}
	f.Activity = *activity

	var end *string
	if f.End != nil {
		e := formatTime(*f.End)
		end = &e
	}

	if f.ID == nil {
		res, err := tx.Exec(
			"INSERT INTO facts (activity_id, start_time, end_time, description) VALUES (?, ?, ?, ?)",
			*activity.ID, formatTime(f.Start), end, f.Description,
		)
		if err != nil {
			return fmt.Errorf("insert fact: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert fact: %w", err)
		}
		f.ID = &id
	} else {
		res, err := tx.Exec(
			"UPDATE facts SET activity_id = ?, start_time = ?, end_time = ?, description = ? WHERE id = ?",
			*activity.ID, formatTime(f.Start), end, f.Description, *f.ID,
		)
		if err != nil {
			return fmt.Errorf("update fact: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("fact %d: %w", *f.ID, ErrNotFound)
		}
	}

	tags, err := linkFactTags(tx, *f.ID, f.Tags)
	if err != nil {
		return err
	}
	f.Tags = tags
	return nil
}

// checkOverlap fails when another fact intersects [start, end). A nil end
// extends to infinity.
func checkOverlap(q querier, self int64, start time.Time, end *time.Time) error {
	query := "SELECT id FROM facts WHERE id != ? AND (end_time IS NULL OR end_time > ?)"
	args := []any{self, formatTime(start)}
	if end != nil {
		query += " AND start_time < ?"
		args = append(args, formatTime(*end))
	}
	query += " ORDER BY start_time LIMIT 1"

	var other int64
	err := q.QueryRow(query, args...).Scan(&other)
	if err == nil {
		return fmt.Errorf("fact %d: %w", other, ErrOverlap)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("check overlap: %w", err)
	}
	return nil
}

// GetFact retrieves a fact by ID with its tags
func (s *Store) GetFact(id int64) (*domain.Fact, error) {
	row := s.db.QueryRow("SELECT "+factColumns+" "+factFrom+" WHERE f.id = ?", id)
	f, err := scanFact(row)
	if err != nil {
		return nil, notFound("get fact", err)
	}
	if f.Tags, err = factTags(s.db, id); err != nil {
		return nil, err
	}
	return f, nil
}

// ListFacts returns facts ordered by start time
func (s *Store) ListFacts(filter FactFilter) ([]domain.Fact, error) {
	query := "SELECT " + factColumns + " " + factFrom + " WHERE 1 = 1"
	var args []any
	if filter.Start != nil {
		query += " AND (f.end_time IS NULL OR f.end_time >= ?)"
		args = append(args, formatTime(*filter.Start))
	}
	if filter.End != nil {
		query += " AND f.start_time <= ?"
		args = append(args, formatTime(*filter.End))
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query += ` AND (a.name LIKE ? OR c.name LIKE ? OR f.description LIKE ?
			OR EXISTS (SELECT 1 FROM fact_tags ft JOIN tags t ON t.id = ft.tag_id
				WHERE ft.fact_id = f.id AND t.name LIKE ?))`
		args = append(args, like, like, like, like)
	}
	query += " ORDER BY f.start_time"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list facts: %w", err)
	}
	var facts []domain.Fact
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan fact: %w", err)
		}
		facts = append(facts, *f)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("list facts: %w", err)
	}
	rows.Close()

	// Tags are loaded after the cursor is closed: the pool holds one connection.
	for i := range facts {
		if facts[i].Tags, err = factTags(s.db, *facts[i].ID); err != nil {
			return nil, err
		}
	}
	return facts, nil
}

// RemoveFact deletes a fact
func (s *Store) RemoveFact(id int64) error {
	err := s.withTx(func(tx *sql.Tx) error {
		return deleteFact(tx, id)
	})
	if err != nil {
		return err
	}
	s.logger.Info("removed fact", zap.Int64("fact_id", id))
	return nil
}

// GetOngoingFact returns the fact without an end, or ErrNotFound
func (s *Store) GetOngoingFact() (*domain.Fact, error) {
	f, err := ongoingFact(s.db)
	if err != nil {
		return nil, notFound("get ongoing fact", err)
	}
	return f, nil
}

func ongoingFact(q querier) (*domain.Fact, error) {
	row := q.QueryRow("SELECT " + factColumns + " " + factFrom + " WHERE f.end_time IS NULL")
	f, err := scanFact(row)
	if err != nil {
		return nil, err
	}
	if f.Tags, err = factTags(q, *f.ID); err != nil {
		return nil, err
	}
	return f, nil
}

// StopOngoingFact ends the ongoing fact at the given instant
func (s *Store) StopOngoingFact(at time.Time) (*domain.Fact, error) {
	f, err := s.GetOngoingFact()
	if err != nil {
		return nil, err
	}
	end := at.Truncate(time.Second)
	f.End = &end
	if _, _, err := timeframe.ValidateRange(&f.Start, f.End); err != nil {
		return nil, err
	}
	return s.SaveFact(*f)
}

// CancelOngoingFact discards the ongoing fact
func (s *Store) CancelOngoingFact() (*domain.Fact, error) {
	f, err := s.GetOngoingFact()
	if err != nil {
		return nil, err
	}
	if err := s.RemoveFact(*f.ID); err != nil {
		return nil, err
	}
	return f, nil
}

func deleteFact(q querier, id int64) error {
	if _, err := q.Exec("DELETE FROM fact_tags WHERE fact_id = ?", id); err != nil {
		return fmt.Errorf("unlink fact tags: %w", err)
	}
	res, err := q.Exec("DELETE FROM facts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete fact: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("fact %d: %w", id, ErrNotFound)
	}
	return nil
}

func scanFact(row rowScanner) (*domain.Fact, error) {
	var (
		f            domain.Fact
		start        string
		end          sql.NullString
		categoryID   sql.NullInt64
		categoryName sql.NullString
	)
	err := row.Scan(&f.ID, &start, &end, &f.Description,
		&f.Activity.ID, &f.Activity.Name, &f.Activity.Deleted, &categoryID, &categoryName)
	if err != nil {
		return nil, err
	}
	if f.Start, err = parseTime(start); err != nil {
		return nil, err
	}
	if end.Valid {
		e, err := parseTime(end.String)
		if err != nil {
			return nil, err
		}
		f.End = &e
	}
	if categoryID.Valid {
		id := categoryID.Int64
		f.Activity.Category = &domain.Category{ID: &id, Name: categoryName.String}
	}
	return &f, nil
}

func factTags(q querier, factID int64) ([]domain.Tag, error) {
	rows, err := q.Query(`
		SELECT t.id, t.name
		FROM tags t
		JOIN fact_tags ft ON t.id = ft.tag_id
		WHERE ft.fact_id = ?
		ORDER BY t.name
	`, factID)
	if err != nil {
		return nil, fmt.Errorf("get fact tags: %w", err)
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
