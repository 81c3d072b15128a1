package model

import "encoding/json"

// Source identifies which path produced a classification.
type Source string

const (
	SourceKeywordMatcher Source = "keyword_matcher"
	SourceLLM            Source = "llm"
)

// Classification is the final, validated result for a single record.
// MainCategory and SubCategory always hold the taxonomy's canonical
// (original-cased) spelling, never the raw matcher/LLM spelling.
type Classification struct {
	MainCategory string `json:"main_category"`
	SubCategory  string `json:"sub_category"`
	Source       Source `json:"classification_source"`

	// Extra carries any additional fields the model emitted alongside the
	// category pair (e.g. a confidence or reasoning field), preserved
	// verbatim.
	Extra map[string]json.RawMessage `json:"extra,omitempty"`
}

// Outcome pairs an input record with either its classification or the
// error that stopped it. Batch processing returns one Outcome per input,
// in input order.
type Outcome struct {
	Record Record          `json:"record"`
	Result *Classification `json:"classification,omitempty"`
	Err    error           `json:"-"`
}

// Status returns the batch status label for result files.
func (o Outcome) Status() string {
	if o.Err != nil {
		return "failed"
	}
	return "success"
}
