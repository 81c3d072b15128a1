// Package match implements the deterministic, LLM-free classification
// path: substring keyword matching over taxonomy rules, with brand
// affinity as the tie-break.
package match

import (
	"strings"

	"github.com/yfzhou/taxon/internal/model"
	"github.com/yfzhou/taxon/internal/taxonomy"
)

// Candidate is one taxonomy entry matched by keyword, carrying the brand
// list needed for disambiguation.
type Candidate struct {
	Main   string
	Sub    string
	Brands []string
}

// Matcher matches material records against a shared, read-only taxonomy.
type Matcher struct {
	store *taxonomy.Store
}

// NewMatcher creates a matcher over the given taxonomy store.
func NewMatcher(store *taxonomy.Store) *Matcher {
	return &Matcher{store: store}
}

// MatchText returns every taxonomy entry with a keyword that is a
// substring of the normalized text, in rule order.
func (m *Matcher) MatchText(text string) []Candidate {
	normalized := taxonomy.Normalize(text)
	if normalized == "" {
		return nil
	}

	var matches []Candidate
	for _, e := range m.store.Entries() {
		for _, kw := range e.Keywords {
			nkw := taxonomy.Normalize(kw)
			if nkw == "" {
				continue
			}
			if strings.Contains(normalized, nkw) {
				matches = append(matches, Candidate{Main: e.Main, Sub: e.Sub, Brands: e.Brands})
				break // one hit per entry
			}
		}
	}
	return matches
}

// MatchFields matches record fields in precedence order: material name,
// then model, then brand, then raw material. The first field that yields
// any match wins; matches are never merged across fields. Results are
// deduplicated by (main, sub) in first-seen order. Never errors; an empty
// result means "no local match", which is expected, not exceptional.
func (m *Matcher) MatchFields(rec model.Record) []Candidate {
	for _, value := range []string{rec.Name, rec.Model, rec.Brand, rec.RawMaterial} {
		matches := m.MatchText(value)
		if len(matches) == 0 {
			continue
		}

		var out []Candidate
		seen := make(map[[2]string]bool)
		for _, c := range matches {
			k := [2]string{c.Main, c.Sub}
			if !seen[k] {
				seen[k] = true
				out = append(out, c)
			}
		}
		return out
	}
	return nil
}

// Match runs the full local path: keyword matching across fields, then
// brand-affinity disambiguation when more than one category matched.
// With no brand evidence the first keyword match is returned (stable
// fallback). The second return is false only when no keyword matched at
// all.
func (m *Matcher) Match(rec model.Record) (Candidate, bool) {
	candidates := m.MatchFields(rec)
	if len(candidates) == 0 {
		return Candidate{}, false
	}
	if len(candidates) == 1 {
		return candidates[0], true
	}

	recordBrand := taxonomy.Normalize(rec.Brand)
	if recordBrand == "" {
		return candidates[0], true
	}

	for _, c := range candidates {
		for _, brand := range c.Brands {
			nb := taxonomy.Normalize(brand)
			if nb == "" {
				continue
			}
			// Either direction: "西门子" matches both "西门子(SIEMENS)"
			// and plain "西门子".
			if strings.Contains(recordBrand, nb) || strings.Contains(nb, recordBrand) {
				return c, true
			}
		}
	}
	return candidates[0], true
}
