package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pbaille/timelog/internal/timeframe"
)

// ErrEmptyName is returned when an entity is validated without a name.
var ErrEmptyName = errors.New("name must not be empty")

// Category groups activities
type Category struct {
	ID   *int64 `json:"id,omitempty"`
	Name string `json:"name"`
}

// Validate checks the category name
func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("category: %w", ErrEmptyName)
	}
	return nil
}

// Equal compares by identity when both sides are persisted, by name otherwise.
func (c *Category) Equal(other *Category) bool {
	if c == nil || other == nil {
		return c == nil && other == nil
	}
	if c.ID != nil && other.ID != nil {
		return *c.ID == *other.ID
	}
	return c.Name == other.Name
}

// Activity is something time gets spent on. (Name, Category) is unique.
type Activity struct {
	ID       *int64    `json:"id,omitempty"`
	Name     string    `json:"name"`
	Category *Category `json:"category,omitempty"`
	Deleted  bool      `json:"deleted,omitempty"`
}

// ActivityKey is the natural key of an activity
type ActivityKey struct {
	Name     string
	Category string
}

// Key returns the composite (name, category) key
func (a Activity) Key() ActivityKey {
	key := ActivityKey{Name: a.Name}
	if a.Category != nil {
		key.Category = a.Category.Name
	}
	return key
}

// Validate checks the activity and its category
func (a Activity) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("activity: %w", ErrEmptyName)
	}
	if a.Category != nil {
		return a.Category.Validate()
	}
	return nil
}

func (a Activity) String() string {
	if a.Category == nil {
		return a.Name
	}
	return a.Name + "@" + a.Category.Name
}

// Tag is a free-form label attached to facts
type Tag struct {
	ID   *int64 `json:"id,omitempty"`
	Name string `json:"name"`
}

// Validate checks the tag name
func (t Tag) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("tag: %w", ErrEmptyName)
	}
	return nil
}

// Fact is a span of time spent on an activity. A nil End marks an ongoing fact.
type Fact struct {
	ID          *int64     `json:"id,omitempty"`
	Activity    Activity   `json:"activity"`
	Start       time.Time  `json:"start"`
	End         *time.Time `json:"end,omitempty"`
	Description string     `json:"description,omitempty"`
	Tags        []Tag      `json:"tags,omitempty"`
}

// Validate checks that the fact is ready to be stored
func (f Fact) Validate() error {
	if err := f.Activity.Validate(); err != nil {
		return err
	}
	if f.Start.IsZero() {
		return errors.New("fact: start is required")
	}
	start := f.Start
	if _, _, err := timeframe.ValidateRange(&start, f.End); err != nil {
		return fmt.Errorf("fact: %w", err)
	}
	for _, t := range f.Tags {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// IsOngoing reports whether the fact has not ended yet
func (f Fact) IsOngoing() bool {
	return f.End == nil
}

// Duration returns the length of the fact, measuring ongoing facts up to now.
func (f Fact) Duration(now time.Time) time.Duration {
	end := now
	if f.End != nil {
		end = *f.End
	}
	return end.Sub(f.Start)
}

// TagNames returns the names of the fact's tags
func (f Fact) TagNames() []string {
	names := make([]string, len(f.Tags))
	for i, t := range f.Tags {
		names[i] = t.Name
	}
	return names
}

// String renders the fact in raw fact syntax.
func (f Fact) String() string {
	var sb strings.Builder
	sb.WriteString(f.Start.Format("2006-01-02 15:04"))
	if f.End != nil {
		sb.WriteString(" - ")
		sb.WriteString(f.End.Format("2006-01-02 15:04"))
	}
	sb.WriteString(" ")
	sb.WriteString(f.Activity.Name)
	hasDetails := f.Description != "" || len(f.Tags) > 0
	// A bare '@' keeps an uncategorised description from merging into the name.
	if f.Activity.Category != nil || hasDetails {
		sb.WriteString("@")
	}
	if f.Activity.Category != nil {
		sb.WriteString(f.Activity.Category.Name)
	}
	if hasDetails {
		sb.WriteString(",")
	}
	if f.Description != "" {
		sb.WriteString(" ")
		sb.WriteString(f.Description)
	}
	for _, t := range f.Tags {
		sb.WriteString(" #")
		sb.WriteString(t.Name)
	}
	return sb.String()
}
