package web

import (
	"net/http"

	"github.com/JonMunkholm/collector/internal/core"
)

// handleListCollection lists collection items with their cards. only_trade
// restricts the list to items flagged for trade.
func (s *Server) handleListCollection(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.ListCollection(r.Context(), parseBool(r.URL.Query().Get("only_trade")))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]ItemView, len(items))
	for i, item := range items {
		out[i] = itemView(item)
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleAddCollectionItem(w http.ResponseWriter, r *http.Request) {
	var in core.CollectionInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	item, err := s.service.AddCollectionItem(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, itemView(item))
}

// handleSetTrade sets for_trade from a JSON body or a form field. A form
// without the field clears the flag, as an unchecked checkbox would.
func (s *Server) handleSetTrade(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var forTrade bool
	if isJSONRequest(r) {
		var body struct {
			ForTrade *bool `json:"for_trade"`
		}
		if err := decodeJSON(w, r, &body); err != nil {
			s.fail(w, r, err)
			return
		}
		if body.ForTrade == nil {
			s.fail(w, r, core.ValidationErrors{{Field: "for_trade", Message: "is required"}})
			return
		}
		forTrade = *body.ForTrade
	} else {
		forTrade = parseBool(r.FormValue("for_trade"))
	}

	item, err := s.service.SetTradeFlag(r.Context(), id, forTrade)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, itemView(item))
}

func (s *Server) handleDeleteCollectionItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.service.DeleteCollectionItem(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
