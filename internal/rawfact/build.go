package rawfact

import (
	"time"

	"github.com/pbaille/timelog/internal/domain"
	"github.com/pbaille/timelog/internal/timeframe"
)

// Build completes the time information of rf and assembles an unpersisted
// fact. Without any start information the fact starts now; without any end
// information it is ongoing.
func Build(rf RawFact, tags []string, cfg timeframe.Config) (*domain.Fact, error) {
	start, end, err := timeframe.Complete(rf.TimeInfo, cfg, true)
	if err != nil {
		return nil, err
	}
	if start == nil {
		now := cfg.CurrentTime().Truncate(time.Second)
		start = &now
	}
	if _, _, err := timeframe.ValidateRange(start, end); err != nil {
		return nil, err
	}

	fact := &domain.Fact{
		Activity:    domain.Activity{Name: rf.Activity},
		Start:       *start,
		End:         end,
		Description: rf.Description,
	}
	if rf.Category != "" {
		fact.Activity.Category = &domain.Category{Name: rf.Category}
	}
	seen := make(map[string]bool)
	for _, name := range tags {
		if seen[name] {
			continue
		}
		seen[name] = true
		fact.Tags = append(fact.Tags, domain.Tag{Name: name})
	}

	if err := fact.Validate(); err != nil {
		return nil, err
	}
	return fact, nil
}

// ParseFact runs Parse, pulls hashtags out of the description and builds the fact.
func ParseFact(raw string, cfg timeframe.Config) (*domain.Fact, error) {
	rf, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	tags, description := SplitTags(rf.Description)
	rf.Description = description
	return Build(rf, tags, cfg)
}
