package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/pbaille/timelog/internal/domain"
)

// TSVWriter writes one tab separated row per fact after a header row.
type TSVWriter struct{}

func (TSVWriter) ContentType() string { return "text/tab-separated-values" }

func (TSVWriter) WriteFacts(w io.Writer, facts []domain.Fact) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	header := []string{"start", "end", "activity", "category", "description", "tags", "duration_minutes"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, f := range facts {
		end := ""
		if f.End != nil {
			end = f.End.Format(timeLayout)
		}
		row := []string{
			f.Start.Format(timeLayout),
			end,
			f.Activity.Name,
			categoryName(f),
			f.Description,
			strings.Join(f.TagNames(), ","),
			durationMinutes(f),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
