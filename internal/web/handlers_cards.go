package web

import (
	"net/http"
	"strings"

	"github.com/JonMunkholm/collector/internal/core"
	"github.com/JonMunkholm/collector/internal/store"
)

// handleListCards lists cards ordered by name.
//
// Query parameters: q (name contains), set_id, rarity, type, number, limit,
// offset.
func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.CardFilter{
		Query:  strings.TrimSpace(q.Get("q")),
		SetID:  strings.TrimSpace(q.Get("set_id")),
		Rarity: strings.TrimSpace(q.Get("rarity")),
		Type:   strings.TrimSpace(q.Get("type")),
		Number: strings.TrimSpace(q.Get("number")),
		Limit:  parseIntParam(r, "limit", core.DefaultCardLimit, 1),
		Offset: parseIntParam(r, "offset", 0, 0),
	}
	cards, err := s.service.ListCards(r.Context(), f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, cardViews(cards))
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	var in core.CardInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	card, err := s.service.CreateCard(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, cardView(card))
}

func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	detail, err := s.service.GetCard(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, CardDetailView{
		CardView: cardView(detail.Card),
		Prices:   priceViews(detail.Prices),
	})
}

func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var upd core.CardUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		s.fail(w, r, err)
		return
	}
	card, err := s.service.UpdateCard(r.Context(), id, upd)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, cardView(card))
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.service.DeleteCard(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListPrices(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	quotes, err := s.service.ListPriceQuotes(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, priceViews(quotes))
}

// handleAddPrice records a manual price quote for the card.
func (s *Server) handleAddPrice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var in core.PriceInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	q, err := s.service.AddPriceQuote(r.Context(), id, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, priceViews([]store.PriceQuote{q})[0])
}
