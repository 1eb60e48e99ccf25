// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package arxiv

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ap-aditya/srchive/internal/httputil"
	"github.com/ap-aditya/srchive/pkg/types"
)

const sampleEntryXML = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/1706.03762v7</id>
    <title>Attention Is All
      You Need</title>
    <summary>  The dominant sequence transduction models
are based on complex recurrent networks.
</summary>
    <author><name>Ashish Vaswani</name></author>
    <author><name>Noam Shazeer</name></author>
    <link href="http://arxiv.org/abs/1706.03762v7" rel="alternate" type="text/html"/>
    <link title="pdf" href="http://arxiv.org/pdf/1706.03762v7" rel="related" type="application/pdf"/>
  </entry>
</feed>`

const errorEntryXML = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/api/errors#incorrect_id_format_for_bogus</id>
    <title>Error</title>
    <summary>incorrect id format for bogus</summary>
  </entry>
</feed>`

func withAPI(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(h)
	old := apiBase
	apiBase = ts.URL
	t.Cleanup(func() {
		apiBase = old
		ts.Close()
	})
	return ts
}

func testClient(ts *httptest.Server, pageSize, maxResults int) *Client {
	c := NewClient(ts.Client(), types.ArxivConfig{
		HTTPConfig:          types.HTTPConfig{UserAgent: "srchive-test"},
		PageSize:            pageSize,
		MaxResultsPerWindow: maxResults,
	})
	c.Policy = httputil.Policy{MaxAttempts: 2, RateLimitCooldown: time.Millisecond, RetryDelay: time.Millisecond}
	return c
}

func TestFetchByID(t *testing.T) {
	var gotQuery string
	ts := withAPI(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("id_list")
		assert.Equal(t, "srchive-test", r.Header.Get("User-Agent"))
		fmt.Fprint(w, sampleEntryXML)
	})

	p, err := testClient(ts, 10, 10).FetchByID(context.Background(), "1706.03762")
	require.NoError(t, err)

	assert.Equal(t, "1706.03762", gotQuery)
	assert.Equal(t, "1706.03762", p.ID)
	assert.Equal(t, "Attention Is All You Need", p.Title)
	assert.Equal(t, "The dominant sequence transduction models are based on complex recurrent networks.", p.Summary)
	assert.Equal(t, "Ashish Vaswani, Noam Shazeer", p.Authors)
	assert.Equal(t, "http://arxiv.org/pdf/1706.03762v7", p.PDFURL)
	assert.Empty(t, p.Type)
}

func TestFetchByIDNotFound(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty feed", `<feed xmlns="http://www.w3.org/2005/Atom"></feed>`},
		{"error entry", errorEntryXML},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := withAPI(t, func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, tt.body)
			})
			_, err := testClient(ts, 10, 10).FetchByID(context.Background(), "bogus")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestFetchByIDServerError(t *testing.T) {
	ts := withAPI(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	_, err := testClient(ts, 10, 10).FetchByID(context.Background(), "1706.03762")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, httputil.ErrRetriesExhausted)
}

// pagedHandler serves total synthetic entries, honouring start and max_results.
func pagedHandler(total int, mu *sync.Mutex, starts *[]int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start, _ := strconv.Atoi(r.URL.Query().Get("start"))
		size, _ := strconv.Atoi(r.URL.Query().Get("max_results"))
		mu.Lock()
		*starts = append(*starts, start)
		mu.Unlock()

		var b strings.Builder
		b.WriteString(`<feed xmlns="http://www.w3.org/2005/Atom">`)
		for i := start; i < start+size && i < total; i++ {
			fmt.Fprintf(&b, `<entry><id>http://arxiv.org/abs/2401.%05dv1</id><title>Paper %d</title><summary>s</summary></entry>`, i, i)
		}
		b.WriteString(`</feed>`)
		fmt.Fprint(w, b.String())
	}
}

func TestSearchPagesUntilShortPage(t *testing.T) {
	var mu sync.Mutex
	var starts []int
	ts := withAPI(t, pagedHandler(7, &mu, &starts))

	c := testClient(ts, 3, 100)
	var ids []string
	for p, err := range c.Search(context.Background(), SearchQuery{Categories: "cat:cs.AI"}) {
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}

	assert.Len(t, ids, 7)
	assert.Equal(t, "2401.00000", ids[0])
	assert.Equal(t, []int{0, 3, 6}, starts)
}

func TestSearchRespectsMaxResults(t *testing.T) {
	var mu sync.Mutex
	var starts []int
	ts := withAPI(t, pagedHandler(100, &mu, &starts))

	c := testClient(ts, 4, 100)
	n := 0
	for _, err := range c.Search(context.Background(), SearchQuery{Categories: "cat:cs.AI", MaxResults: 10}) {
		require.NoError(t, err)
		n++
	}
	assert.Equal(t, 10, n)
	assert.Equal(t, []int{0, 4, 8}, starts)
}

func TestSearchStopsWhenConsumerBreaks(t *testing.T) {
	var mu sync.Mutex
	var starts []int
	ts := withAPI(t, pagedHandler(100, &mu, &starts))

	c := testClient(ts, 5, 100)
	n := 0
	for range c.Search(context.Background(), SearchQuery{Categories: "cat:cs.AI"}) {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
	assert.Equal(t, []int{0}, starts, "no further pages after break")
}

func TestSearchYieldsRequestError(t *testing.T) {
	ts := withAPI(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	var errs []error
	for _, err := range testClient(ts, 5, 10).Search(context.Background(), SearchQuery{Categories: "cat:cs.AI"}) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "HTTP 400")
}

func TestSearchQueryString(t *testing.T) {
	q := SearchQuery{
		Categories: "cat:cs.AI OR cat:cs.LG",
		From:       time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		To:         time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, "(cat:cs.AI OR cat:cs.LG) AND submittedDate:[20250301 TO 20250308]", q.String())
}

func TestExtractID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"http://arxiv.org/abs/2301.07041v1", "2301.07041"},
		{"http://arxiv.org/abs/2301.07041", "2301.07041"},
		{"http://arxiv.org/abs/hep-th/9901001v2", "hep-th/9901001"},
		{"http://arxiv.org/api/errors#bad", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractID(tt.in), tt.in)
	}
}
