// Package extract turns loosely structured document text and JSON into
// ordered key/value pairs.
package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/efebarandurmaz/docqa/internal/keys"
)

// MaxDisplayRunes bounds Pair.DisplayText.
const MaxDisplayRunes = 500

// Pair is one extracted fact. Sequence is the zero-based discovery order
// within a source; a larger sequence wins over duplicates.
type Pair struct {
	RawKey       string `json:"raw_key"`
	CanonicalKey string `json:"canonical_key"`
	Value        string `json:"value"`
	DisplayText  string `json:"display_text"`
	Sequence     int    `json:"sequence"`
}

// Extractor runs the extraction strategies. It is safe for concurrent use
// as long as its key table is not modified.
type Extractor struct {
	keys *keys.Table
}

// New creates an Extractor normalizing keys with table. A nil table means
// the built-in aliases.
func New(table *keys.Table) *Extractor {
	if table == nil {
		table = keys.DefaultTable()
	}
	return &Extractor{keys: table}
}

// candidate is a raw (key, value) before normalization and numbering.
type candidate struct {
	key   string
	value string
}

// finalize drops empty candidates, normalizes keys and numbers the rest in
// order.
func (e *Extractor) finalize(cands []candidate) []Pair {
	out := make([]Pair, 0, len(cands))
	for _, c := range cands {
		raw := strings.TrimSpace(c.key)
		val := strings.TrimSpace(c.value)
		if raw == "" || val == "" {
			continue
		}
		canon := e.keys.Normalize(raw)
		if canon == "" {
			continue
		}
		out = append(out, Pair{
			RawKey:       raw,
			CanonicalKey: canon,
			Value:        val,
			DisplayText:  DisplayText(raw, val),
			Sequence:     len(out),
		})
	}
	return out
}

// DisplayText renders "key: value" cut to MaxDisplayRunes.
func DisplayText(rawKey, value string) string {
	s := rawKey + ": " + value
	if utf8.RuneCountInString(s) <= MaxDisplayRunes {
		return s
	}
	r := []rune(s)
	return string(r[:MaxDisplayRunes])
}
