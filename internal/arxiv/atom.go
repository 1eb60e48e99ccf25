// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package arxiv

import (
	"strconv"
	"strings"

	"github.com/ap-aditya/srchive/pkg/types"
)

// arXiv Atom feed XML structures.
type feed struct {
	Entries []entry `xml:"entry"`
}

type entry struct {
	ID      string   `xml:"id"`
	Title   string   `xml:"title"`
	Summary string   `xml:"summary"`
	Authors []author `xml:"author"`
	Links   []link   `xml:"link"`
}

type author struct {
	Name string `xml:"name"`
}

type link struct {
	Href  string `xml:"href,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

// paper converts an entry into a Paper. The second result is false for
// error entries and entries without an identifier or title.
func (e entry) paper() (types.Paper, bool) {
	id := ExtractID(e.ID)
	title := strings.Join(strings.Fields(e.Title), " ")
	if id == "" || title == "" {
		return types.Paper{}, false
	}

	names := make([]string, 0, len(e.Authors))
	for _, a := range e.Authors {
		if n := strings.TrimSpace(a.Name); n != "" {
			names = append(names, n)
		}
	}

	p := types.Paper{
		ID:      id,
		Title:   title,
		Summary: types.CleanSummary(strings.TrimSpace(e.Summary)),
		Authors: types.JoinAuthors(names),
		PDFURL:  "https://arxiv.org/pdf/" + id,
	}
	for _, l := range e.Links {
		if l.Title == "pdf" || l.Type == "application/pdf" {
			p.PDFURL = l.Href
			break
		}
	}
	return p, true
}

// ExtractID pulls the arXiv identifier from an entry <id> URL and drops
// the version suffix ("http://arxiv.org/abs/2301.07041v1" → "2301.07041").
func ExtractID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	return StripVersion(idURL[idx+len(prefix):])
}

// StripVersion removes a trailing "vN" from an arXiv identifier.
func StripVersion(id string) string {
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			return id[:vIdx]
		}
	}
	return id
}
