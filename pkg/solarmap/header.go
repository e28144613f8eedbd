package solarmap

import (
	"github.com/astrogo/fitsio"
)

// Header is an ordered, flat set of FITS keywords. It is a value type: the
// constructor and accessors copy, so a Header cannot change once built.
type Header struct {
	cards []fitsio.Card
}

// NewHeader builds a header from cards. Later cards with a repeated key
// replace earlier ones in place.
func NewHeader(cards ...fitsio.Card) Header {
	h := Header{cards: make([]fitsio.Card, 0, len(cards))}
	for _, c := range cards {
		if i := h.index(c.Name); i >= 0 {
			h.cards[i] = c
			continue
		}
		h.cards = append(h.cards, c)
	}
	return h
}

// Len returns the number of keywords
func (h Header) Len() int {
	return len(h.cards)
}

// Keys returns the keywords in order
func (h Header) Keys() []string {
	keys := make([]string, len(h.cards))
	for i, c := range h.cards {
		keys[i] = c.Name
	}
	return keys
}

// Cards returns a copy of the cards
func (h Header) Cards() []fitsio.Card {
	out := make([]fitsio.Card, len(h.cards))
	copy(out, h.cards)
	return out
}

// Get returns the raw value of key
func (h Header) Get(key string) (interface{}, bool) {
	i := h.index(key)
	if i < 0 {
		return nil, false
	}
	return h.cards[i].Value, true
}

// Float returns a numeric keyword as float64
func (h Header) Float(key string) (float64, bool) {
	v, ok := h.Get(key)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}

// String returns a string keyword
func (h Header) String(key string) (string, bool) {
	v, ok := h.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (h Header) index(key string) int {
	for i, c := range h.cards {
		if c.Name == key {
			return i
		}
	}
	return -1
}
