package domain

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Candidate is a search result pending quality evaluation. It is ephemeral:
// only candidates that survive both quality gates become ArticleRecords.
type Candidate struct {
	Title       string
	URL         string
	Description string
}

// ArticleRecord is the finalized article produced by the ingestion pipeline.
// Immutable once assembled; owned by the pipeline until handed to storage.
type ArticleRecord struct {
	Title     string
	URL       string
	Source    string
	Summary   string
	RunID     string
	CreatedAt time.Time
}

// Validate reports whether the record can be persisted. Records with an
// empty title, url, summary or source are refused.
func (r ArticleRecord) Validate() error {
	if strings.TrimSpace(r.Title) == "" ||
		strings.TrimSpace(r.URL) == "" ||
		strings.TrimSpace(r.Source) == "" ||
		strings.TrimSpace(r.Summary) == "" {
		return ErrInvalidRecord
	}
	return nil
}

// PricePoint is a single spot-price observation from a market data provider.
type PricePoint struct {
	Coin      string
	Currency  string
	Price     float64
	FetchedAt time.Time
}

// RejectReason classifies why a candidate was dropped by a quality gate.
type RejectReason string

const (
	RejectShortContent RejectReason = "content_too_short"
	RejectShortSummary RejectReason = "summary_too_short"
)

// ErrInvalidRecord is returned by storage when a record is missing required
// fields (title, url, summary or source).
var ErrInvalidRecord = errors.New("article record has empty required fields")

// SummarizationError marks an upstream summarizer failure. Quality rejections
// are not errors; this type covers transport and provider faults only.
type SummarizationError struct {
	Provider string
	Err      error
}

func (e *SummarizationError) Error() string {
	return fmt.Sprintf("summarize via %s: %v", e.Provider, e.Err)
}

func (e *SummarizationError) Unwrap() error { return e.Err }

// SourceFromURL derives the publisher identifier from the URL's authority
// component, case preserved. Unparsable input degrades to hand-slicing off
// the scheme and path.
func SourceFromURL(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		return u.Host
	}

	rest := rawURL
	if i := strings.Index(rest, "//"); i >= 0 {
		rest = rest[i+2:]
	}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	return rest
}
