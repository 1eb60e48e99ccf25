// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ap-aditya/srchive/internal/query"
	"github.com/ap-aditya/srchive/pkg/types"
)

type errorResponse struct {
	Error string `json:"error"`
}

// StatsResponse is the body of GET /api/stats.
type StatsResponse struct {
	Total   int                     `json:"total"`
	ByType  map[types.PaperType]int `json:"by_type"`
	Vectors int                     `json:"vectors"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("writing response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// search handles GET /api/search?q=...&type=recent|classic&sort=score|title.
func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	typ, err := types.ParsePaperType(q.Get("type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sortBy := q.Get("sort")
	if sortBy != "" && sortBy != "score" && sortBy != "title" {
		writeError(w, http.StatusBadRequest, "sort must be score or title")
		return
	}

	out, err := s.Searcher.Search(r.Context(), q.Get("q"))
	if err != nil {
		if errors.Is(err, query.ErrEmptyQuery) {
			writeError(w, http.StatusBadRequest, "missing query parameter q")
			return
		}
		slog.Error("search failed", "error", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	out.Hits = query.FilterByType(out.Hits, typ)
	if sortBy == "title" {
		query.SortByTitle(out.Hits)
	}
	if out.Hits == nil {
		out.Hits = []types.SearchHit{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	byType, err := s.Store.CountByType(r.Context())
	if err != nil {
		slog.Error("counting records", "error", err)
		writeError(w, http.StatusInternalServerError, "stats unavailable")
		return
	}
	resp := StatsResponse{ByType: byType}
	for _, n := range byType {
		resp.Total += n
	}
	if s.Index != nil {
		if resp.Vectors, err = s.Index.Count(r.Context()); err != nil {
			slog.Error("counting vectors", "error", err)
			writeError(w, http.StatusInternalServerError, "stats unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
