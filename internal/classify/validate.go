package classify

import (
	"fmt"

	"github.com/yfzhou/taxon/internal/model"
	"github.com/yfzhou/taxon/internal/taxonomy"
)

// categorySamples caps how many valid categories an error message lists.
const categorySamples = 5

// Validate checks that a candidate classification names a legal (main,
// sub) taxonomy pair and rewrites both fields to the taxonomy's canonical
// spelling. It never accepts a pair that is not in the store.
func Validate(store *taxonomy.Store, result *model.Classification) error {
	if result.MainCategory == "" || result.SubCategory == "" {
		return fmt.Errorf("%w: 大类=%q, 二级类=%q", ErrIncompleteResult, result.MainCategory, result.SubCategory)
	}

	main, sub, ok := store.Canonical(result.MainCategory, result.SubCategory)
	if !ok {
		return fmt.Errorf("%w: 大类=%q, 二级类=%q (valid mains include %v; valid subs include %v)",
			ErrUnknownCategory, result.MainCategory, result.SubCategory,
			store.SampleMains(categorySamples), store.SampleSubs(categorySamples))
	}

	result.MainCategory = main
	result.SubCategory = sub
	return nil
}
