// Package rawfact turns one-line raw facts such as
// "12:00-14:14 coding@work, fixed bug #urgent" into facts.
package rawfact

import (
	"strings"

	"github.com/pbaille/timelog/internal/timeframe"
)

// RawFact is the parsed but not yet completed content of a raw fact.
// Empty Category and Description mean none was given.
type RawFact struct {
	TimeInfo    timeframe.TimeFrame `json:"timeinfo"`
	Activity    string              `json:"activity"`
	Category    string              `json:"category,omitempty"`
	Description string              `json:"description,omitempty"`
}

// Parse extracts the leading time information from raw and segments the rest.
func Parse(raw string) (RawFact, error) {
	tf, rest, err := timeframe.Extract(raw)
	if err != nil {
		return RawFact{}, err
	}
	activity, category, description, err := Segment(rest)
	if err != nil {
		return RawFact{}, err
	}
	return RawFact{
		TimeInfo:    tf,
		Activity:    activity,
		Category:    category,
		Description: description,
	}, nil
}

// Segment splits "activity@category, description". Only the first '@' and the
// first ',' after it are delimiters, so descriptions may contain both. The
// category itself may not contain another '@'.
func Segment(rest string) (activity, category, description string, err error) {
	front, back, hasAt := strings.Cut(rest, "@")
	activity = strings.TrimSpace(front)
	if !hasAt {
		return activity, "", "", nil
	}

	cat, desc, _ := strings.Cut(back, ",")
	category = strings.TrimSpace(cat)
	if strings.Contains(category, "@") {
		return "", "", "", &timeframe.FormatError{Input: rest, Reason: "too many '@' before the description"}
	}
	description = strings.TrimSpace(desc)
	return activity, category, description, nil
}

// SplitTags removes the trailing run of "#tag" words from description.
func SplitTags(description string) (tags []string, rest string) {
	fields := strings.Fields(description)
	i := len(fields)
	for i > 0 && isTag(fields[i-1]) {
		i--
	}

	rest = strings.TrimSpace(description)
	for j := len(fields) - 1; j >= i; j-- {
		rest = strings.TrimSpace(strings.TrimSuffix(rest, fields[j]))
	}

	seen := make(map[string]bool)
	for _, f := range fields[i:] {
		name := strings.TrimPrefix(f, "#")
		if seen[name] {
			continue
		}
		seen[name] = true
		tags = append(tags, name)
	}
	return tags, rest
}

func isTag(word string) bool {
	return len(word) > 1 && word[0] == '#' && !strings.Contains(word[1:], "#")
}
