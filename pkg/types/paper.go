// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
	"time"
)

// PaperType partitions the corpus into protected and rolling subsets.
type PaperType string

const (
	// PaperRecent marks a paper ingested from a time-windowed scan. Recent
	// papers are eligible for eviction once the corpus exceeds its cap.
	PaperRecent PaperType = "recent"

	// PaperClassic marks a paper found through curation or citation signals.
	// Classic papers are never evicted.
	PaperClassic PaperType = "classic"
)

// ParsePaperType accepts "recent" or "classic" in any case. The empty string
// parses to the empty type, meaning "any".
func ParsePaperType(s string) (PaperType, error) {
	switch PaperType(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return "", nil
	case PaperRecent:
		return PaperRecent, nil
	case PaperClassic:
		return PaperClassic, nil
	default:
		return "", fmt.Errorf("unknown paper type %q: use recent or classic", s)
	}
}

// Paper is the metadata record stored for every arXiv paper in the corpus.
// The ID is shared with the vector index.
type Paper struct {
	// ID is the arXiv identifier without version suffix (e.g. "1706.03762").
	ID string `json:"id" yaml:"id"`

	// Title is the paper title with surrounding whitespace removed.
	Title string `json:"title" yaml:"title"`

	// Summary is the abstract with newlines collapsed to single spaces.
	Summary string `json:"summary" yaml:"summary"`

	// Authors is the comma-separated author list in source order.
	Authors string `json:"authors" yaml:"authors"`

	// PDFURL links to the arXiv PDF.
	PDFURL string `json:"pdf_url" yaml:"pdf_url"`

	// Type is set on first ingestion and preserved by later upserts.
	Type PaperType `json:"type" yaml:"type"`

	// IngestedAt is refreshed on every write and orders eviction.
	IngestedAt time.Time `json:"ingested_at" yaml:"ingested_at"`
}

// EmbeddingText returns the text that is embedded for the paper. Ingestion
// and repair must use the same form so vectors stay comparable.
func (p Paper) EmbeddingText() string {
	return fmt.Sprintf("Title: %s. Abstract: %s", p.Title, CleanSummary(p.Summary))
}

// CleanSummary collapses newlines in an abstract to spaces.
func CleanSummary(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	return strings.ReplaceAll(s, "\n", " ")
}

// JoinAuthors formats an author list the way it is stored.
func JoinAuthors(names []string) string {
	return strings.Join(names, ", ")
}
