package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/chatrelay/relay/search"
)

type searchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results,omitempty"`
}

type searchResponse struct {
	Results []search.Result `json:"results"`
}

func (s *Server) handleWebSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	results, err := s.search.Search(r.Context(), req.Query, req.MaxResults)
	if err != nil {
		if errors.Is(err, search.ErrEmptyQuery) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if results == nil {
		results = []search.Result{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Results: results})
}
