package taxonomy

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// ErrEmptyTaxonomy is returned when a rules source yields zero entries.
// An empty taxonomy is always fatal: classification cannot proceed and
// silently accepting it would make every validation fail downstream.
var ErrEmptyTaxonomy = errors.New("taxonomy: no classification rules loaded")

// Entry is one legal (main, sub) category pair with its match metadata.
type Entry struct {
	Main     string   // canonical main category spelling
	Sub      string   // canonical sub category spelling
	Keywords []string // substring match terms for the local matcher
	Notes    string   // free-text explanation, rendered into the prompt
	Brands   []string // brand affinity list for disambiguation
}

type key struct {
	main string
	sub  string
}

// Store is the immutable set of classification rules. It is built once at
// startup and shared read-only across all resolvers and workers.
type Store struct {
	entries map[key]Entry
	order   []key // insertion order, for deterministic rendering
}

// Normalize case-folds a category/keyword/brand string and strips every
// whitespace character. It is idempotent and locale-independent.
func Normalize(s string) string {
	s = strings.ToLower(s)
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// listSeparators matches the delimiters used inside keyword and brand
// cells: ASCII comma, full-width comma, and the Chinese enumeration comma.
var listSeparators = regexp.MustCompile(`[,，、]`)

// SplitList splits a free-text cell into trimmed, non-empty items.
func SplitList(cell string) []string {
	var items []string
	for _, part := range listSeparators.Split(cell, -1) {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}

func newStore() *Store {
	return &Store{entries: make(map[key]Entry)}
}

// add inserts an entry, keeping the first occurrence of a duplicate key.
func (s *Store) add(e Entry) {
	k := key{Normalize(e.Main), Normalize(e.Sub)}
	if k.main == "" || k.sub == "" {
		return
	}
	if _, exists := s.entries[k]; exists {
		return
	}
	s.entries[k] = e
	s.order = append(s.order, k)
}

// finish validates the loaded store. Every loader ends with this.
func (s *Store) finish() (*Store, error) {
	if len(s.entries) == 0 {
		return nil, ErrEmptyTaxonomy
	}
	return s, nil
}

// Len returns the number of rules.
func (s *Store) Len() int {
	return len(s.order)
}

// Entries returns all rules in load order.
func (s *Store) Entries() []Entry {
	out := make([]Entry, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.entries[k])
	}
	return out
}

// Lookup returns the entry for a candidate (main, sub) pair, matching on
// the normalized forms.
func (s *Store) Lookup(main, sub string) (Entry, bool) {
	e, ok := s.entries[key{Normalize(main), Normalize(sub)}]
	return e, ok
}

// Canonical resolves a candidate pair to the taxonomy's stored spelling.
func (s *Store) Canonical(main, sub string) (string, string, bool) {
	e, ok := s.Lookup(main, sub)
	if !ok {
		return "", "", false
	}
	return e.Main, e.Sub, true
}

// SampleMains returns up to n distinct main categories, for error messages.
func (s *Store) SampleMains(n int) []string {
	var out []string
	seen := make(map[string]bool)
	for _, k := range s.order {
		e := s.entries[k]
		if !seen[e.Main] {
			seen[e.Main] = true
			out = append(out, e.Main)
			if len(out) >= n {
				break
			}
		}
	}
	return out
}

// SampleSubs returns up to n distinct sub categories, for error messages.
func (s *Store) SampleSubs(n int) []string {
	var out []string
	seen := make(map[string]bool)
	for _, k := range s.order {
		e := s.entries[k]
		if !seen[e.Sub] {
			seen[e.Sub] = true
			out = append(out, e.Sub)
			if len(out) >= n {
				break
			}
		}
	}
	return out
}

// RuleLines renders every rule in the prompt form the model is instructed
// to choose from:
//
//	- 大类：X，二级类：Y，关键词：…，释义：…，常用品牌：…
//
// Optional segments are omitted when empty.
func (s *Store) RuleLines() []string {
	lines := make([]string, 0, len(s.order))
	for _, k := range s.order {
		e := s.entries[k]
		var b strings.Builder
		fmt.Fprintf(&b, "- 大类：%s，二级类：%s", e.Main, e.Sub)
		if len(e.Keywords) > 0 {
			fmt.Fprintf(&b, "，关键词：%s", strings.Join(e.Keywords, "、"))
		}
		if e.Notes != "" {
			fmt.Fprintf(&b, "，释义：%s", e.Notes)
		}
		if len(e.Brands) > 0 {
			fmt.Fprintf(&b, "，常用品牌：%s", strings.Join(e.Brands, "、"))
		}
		lines = append(lines, b.String())
	}
	return lines
}

// Load reads a rules file, selecting the parser by extension: .yaml/.yml
// use the YAML loader, everything else is treated as CSV.
func Load(path string) (*Store, error) {
	switch {
	case strings.HasSuffix(path, ".yaml"), strings.HasSuffix(path, ".yml"):
		return LoadYAML(path)
	default:
		return LoadCSV(path)
	}
}
