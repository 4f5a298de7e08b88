package domain

import (
	"fmt"
	"strings"
	"time"
)

// Paper is a core entity describing an ingested candidate and its lifecycle state.
type Paper struct {
	ID          int64     `json:"id"`
	ExternalID  string    `json:"external_id"`
	Title       string    `json:"title"`
	Abstract    string    `json:"abstract"`
	Authors     []string  `json:"authors"`
	Categories  []string  `json:"categories"`
	PublishedAt time.Time `json:"published_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	PDFURL      string    `json:"pdf_url"`
	PageURL     string    `json:"page_url"`

	Evaluated          bool      `json:"evaluated"`
	Recommended        bool      `json:"recommended"`
	Reason             string    `json:"reason"`
	EvaluatedAt        time.Time `json:"evaluated_at,omitzero"`
	TranslatedTitle    string    `json:"translated_title"`
	TranslatedAbstract string    `json:"translated_abstract"`

	Disposition   Disposition `json:"disposition"`
	DispositionAt time.Time   `json:"disposition_at,omitzero"`
	Note          string      `json:"note,omitempty"`
	SummaryFolded bool        `json:"summary_folded"`

	CreatedAt time.Time `json:"created_at"`
}

// Disposition is the single current user decision on a paper.
type Disposition uint8

const (
	DispositionNone Disposition = iota
	DispositionFavorite
	DispositionMaybeLater
	DispositionDislike
)

var dispositionNames = [...]string{
	DispositionNone:       "none",
	DispositionFavorite:   "favorite",
	DispositionMaybeLater: "maybe_later",
	DispositionDislike:    "dislike",
}

func (d Disposition) String() string {
	if int(d) < len(dispositionNames) {
		return dispositionNames[d]
	}
	return fmt.Sprintf("disposition(%d)", uint8(d))
}

// Valid reports whether d is one of the declared dispositions.
func (d Disposition) Valid() bool {
	return int(d) < len(dispositionNames)
}

// Protected dispositions survive age-based cleanup.
func (d Disposition) Protected() bool {
	return d == DispositionFavorite || d == DispositionMaybeLater
}

// ParseDisposition accepts the wire names plus a couple of historical aliases.
func ParseDisposition(value string) (Disposition, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "none", "":
		return DispositionNone, nil
	case "favorite", "favourite":
		return DispositionFavorite, nil
	case "maybe_later", "maybe-later":
		return DispositionMaybeLater, nil
	case "dislike":
		return DispositionDislike, nil
	default:
		return DispositionNone, fmt.Errorf("%w: unknown disposition %q", ErrInvalidArgument, value)
	}
}

func (d Disposition) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid disposition %d", uint8(d))
	}
	return []byte(d.String()), nil
}

func (d *Disposition) UnmarshalText(text []byte) error {
	parsed, err := ParseDisposition(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Verdict is the evaluator's recommend/do-not-recommend decision.
type Verdict struct {
	Recommended bool   `json:"recommended"`
	Reason      string `json:"reason"`
}

// Translation holds localized title and abstract; empty fields mean translation was unavailable.
type Translation struct {
	Title    string `json:"title"`
	Abstract string `json:"abstract"`
}

// IngestResult tells whether upsert created a row.
type IngestResult int

const (
	IngestInserted IngestResult = iota + 1
	IngestAlreadyPresent
)

func (r IngestResult) String() string {
	switch r {
	case IngestInserted:
		return "inserted"
	case IngestAlreadyPresent:
		return "already_present"
	default:
		return "unknown"
	}
}

// Page is one slice of a disposition list.
type Page struct {
	Papers  []Paper `json:"papers"`
	Total   int     `json:"total"`
	Page    int     `json:"page"`
	PerPage int     `json:"per_page"`
}

// Pages returns the number of pages needed to show Total items.
func (p Page) Pages() int {
	if p.PerPage <= 0 {
		return 0
	}
	return (p.Total + p.PerPage - 1) / p.PerPage
}
