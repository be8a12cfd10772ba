// Package keys maps raw field labels and user questions to canonical keys.
//
// Ingestion and query resolution must fold labels identically, otherwise
// exact lookups miss. Everything here is pure: a Table is built once at
// startup and only read afterwards.
package keys

import (
	"sort"
	"strings"
)

// Overview is the canonical key of free-text overview blocks.
const Overview = "overview"

// maxLabelWords bounds how long an unknown query or colon label may be and
// still be treated as a field label rather than free text.
const maxLabelWords = 3

var separators = strings.NewReplacer(
	":", " ",
	"?", " ",
	".", " ",
	"-", " ",
	"–", " ",
	"—", " ",
	"/", " ",
	"_", " ",
)

// questionPrefixes are stripped from folded queries before alias lookup.
// Longer prefixes come first so "what is the" wins over "what is".
var questionPrefixes = []string{
	"what is the ", "what are the ", "what's the ", "where is the ", "who is the ",
	"when is the ", "tell me the ", "what is ", "what are ", "what's ", "where is ",
	"who is ", "when is ", "tell me ", "jaki jest ", "jaka jest ", "gdzie jest ",
	"kto jest ", "co to jest ",
}

// Fold lowercases a label, turns separators into spaces and collapses
// whitespace. The separators are ':', '?', '.', '-', '/', '_', the en dash
// and the em dash. Fold(Fold(s)) == Fold(s).
func Fold(label string) string {
	s := strings.ToLower(label)
	s = separators.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// Table is a many-to-one alias table. Each folded alias resolves to an
// ordered, non-empty list of canonical keys; the first one is what
// Normalize returns. A Table must not be modified once it is shared.
type Table struct {
	entries map[string][]string
}

// NewTable returns an empty table. With no aliases, Normalize is Fold.
func NewTable() *Table {
	return &Table{entries: make(map[string][]string)}
}

// Add registers aliases for a canonical key. The canonical key always
// resolves to itself; an alias that is already some other canonical key is
// ignored so that normalization stays idempotent.
func (t *Table) Add(canonical string, aliases ...string) {
	canon := Fold(canonical)
	if canon == "" {
		return
	}
	t.entries[canon] = []string{canon}
	for _, a := range aliases {
		alias := Fold(a)
		if alias == "" || alias == canon || t.isCanonical(alias) {
			continue
		}
		t.entries[alias] = []string{canon}
	}
}

// AddAmbiguous registers an alias that may mean several canonical keys.
// Candidates are tried in the given order.
func (t *Table) AddAmbiguous(alias string, candidates ...string) {
	a := Fold(alias)
	if a == "" || t.isCanonical(a) {
		return
	}
	var list []string
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		canon := Fold(c)
		if canon == "" || seen[canon] {
			continue
		}
		seen[canon] = true
		if !t.isCanonical(canon) {
			t.entries[canon] = []string{canon}
		}
		list = append(list, canon)
	}
	if len(list) > 0 {
		t.entries[a] = list
	}
}

func (t *Table) isCanonical(key string) bool {
	c, ok := t.entries[key]
	return ok && len(c) == 1 && c[0] == key
}

// Normalize returns the canonical key for a raw label. Unknown labels
// normalize to their folded form.
func (t *Table) Normalize(raw string) string {
	f := Fold(raw)
	if c, ok := t.entries[f]; ok {
		return c[0]
	}
	return f
}

// Candidates derives the ordered canonical keys a query may refer to. It
// returns nil for free text that does not look like a field label, which
// sends the resolver straight to semantic search.
func (t *Table) Candidates(query string) []string {
	c, _ := t.Lookup(query)
	return c
}

// Lookup is Candidates that also reports whether the keys came from the
// table. When known is false the single candidate is the folded query
// itself.
func (t *Table) Lookup(query string) (candidates []string, known bool) {
	f := Fold(query)
	if f == "" {
		return nil, false
	}
	if c, ok := t.entries[f]; ok {
		return append([]string(nil), c...), true
	}
	stripped := stripQuestion(f)
	if stripped == "" {
		return nil, false
	}
	if c, ok := t.entries[stripped]; ok {
		return append([]string(nil), c...), true
	}
	if len(strings.Fields(stripped)) > maxLabelWords {
		return nil, false
	}
	return []string{stripped}, false
}

// Known reports whether raw folds to a label the table knows.
func (t *Table) Known(raw string) bool {
	_, ok := t.entries[Fold(raw)]
	return ok
}

// IsLabel reports whether raw reads like a field label rather than a
// sentence: either the table knows it or it is at most a few words long.
func (t *Table) IsLabel(raw string) bool {
	f := Fold(raw)
	if f == "" {
		return false
	}
	if _, ok := t.entries[f]; ok {
		return true
	}
	return len(strings.Fields(f)) <= maxLabelWords
}

// Canonicals lists every canonical key, sorted.
func (t *Table) Canonicals() []string {
	var out []string
	for k := range t.entries {
		if t.isCanonical(k) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Len reports the number of folded labels the table knows.
func (t *Table) Len() int { return len(t.entries) }

// Clone returns an independent copy, useful for layering overlays.
func (t *Table) Clone() *Table {
	c := NewTable()
	for k, v := range t.entries {
		c.entries[k] = append([]string(nil), v...)
	}
	return c
}

func stripQuestion(folded string) string {
	s := folded
	if !strings.HasSuffix(s, " ") {
		s += " "
	}
	for _, p := range questionPrefixes {
		if strings.HasPrefix(s, p) {
			return strings.TrimSpace(s[len(p):])
		}
	}
	return folded
}
