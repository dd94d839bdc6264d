package report

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/pbaille/timelog/internal/domain"
)

// XMLWriter writes a <facts> document.
type XMLWriter struct{}

type xmlFacts struct {
	XMLName xml.Name  `xml:"facts"`
	Facts   []xmlFact `xml:"fact"`
}

type xmlFact struct {
	ID          int64    `xml:"id,attr,omitempty"`
	Start       string   `xml:"start,attr"`
	End         string   `xml:"end,attr,omitempty"`
	Duration    string   `xml:"duration_minutes,attr,omitempty"`
	Activity    string   `xml:"activity"`
	Category    string   `xml:"category,omitempty"`
	Description string   `xml:"description,omitempty"`
	Tags        []string `xml:"tags>tag,omitempty"`
}

func (XMLWriter) ContentType() string { return "application/xml" }

func (XMLWriter) WriteFacts(w io.Writer, facts []domain.Fact) error {
	doc := xmlFacts{Facts: make([]xmlFact, 0, len(facts))}
	for _, f := range facts {
		xf := xmlFact{
			Start:       f.Start.Format(timeLayout),
			Duration:    durationMinutes(f),
			Activity:    f.Activity.Name,
			Category:    categoryName(f),
			Description: f.Description,
			Tags:        f.TagNames(),
		}
		if f.ID != nil {
			xf.ID = *f.ID
		}
		if f.End != nil {
			xf.End = f.End.Format(timeLayout)
		}
		doc.Facts = append(doc.Facts, xf)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("write xml header: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode facts: %w", err)
	}
	return nil
}
