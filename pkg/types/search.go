// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the srchive corpus:
// paper records, search hits, and configuration for every stage.
package types

// SearchHit is a paper returned by the query engine together with the
// similarity score of the query that first matched it.
type SearchHit struct {
	Paper `yaml:",inline"`

	// Score is the vector similarity reported by the index (higher is closer).
	Score float64 `json:"score" yaml:"score"`

	// Query is the sub-query that produced this hit.
	Query string `json:"query" yaml:"query"`
}
