// Package report writes facts out as TSV, iCalendar or XML.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pbaille/timelog/internal/domain"
)

const timeLayout = "2006-01-02 15:04:05"

// Writer serializes a list of facts
type Writer interface {
	WriteFacts(w io.Writer, facts []domain.Fact) error
	// ContentType is the MIME type of the output
	ContentType() string
}

var writers = map[string]Writer{
	"tsv":  TSVWriter{},
	"ical": ICalWriter{},
	"xml":  XMLWriter{},
}

// New returns the writer registered for format
func New(format string) (Writer, error) {
	w, ok := writers[strings.ToLower(strings.TrimSpace(format))]
	if !ok {
		return nil, fmt.Errorf("unknown report format %q (want one of %s)", format, strings.Join(Formats(), ", "))
	}
	return w, nil
}

// Formats lists the supported format names
func Formats() []string {
	names := make([]string, 0, len(writers))
	for name := range writers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func categoryName(f domain.Fact) string {
	if f.Activity.Category == nil {
		return ""
	}
	return f.Activity.Category.Name
}

func durationMinutes(f domain.Fact) string {
	if f.End == nil {
		return ""
	}
	return fmt.Sprintf("%d", int(f.End.Sub(f.Start).Minutes()))
}
