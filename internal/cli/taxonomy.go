package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yfzhou/taxon/internal/taxonomy"
)

var taxonomyRulesBlock bool

// taxonomyCmd represents the taxonomy command
var taxonomyCmd = &cobra.Command{
	Use:   "taxonomy <rules-file>",
	Short: "Load and inspect a classification rules file",
	Long: `Load a rules file and print the parsed taxonomy, one rule per line in
the same form the prompt uses. Useful for checking a rules file before a
batch run: a file with zero parsable rules is rejected, the same way the
classifier would reject it at startup.

Example:
  taxon taxonomy rules.csv
  taxon taxonomy rules.yaml
  taxon taxonomy prompt.txt --rules-block`,
	Args: cobra.ExactArgs(1),
	RunE: runTaxonomy,
}

func init() {
	rootCmd.AddCommand(taxonomyCmd)

	taxonomyCmd.Flags().BoolVar(&taxonomyRulesBlock, "rules-block", false, "parse a prompt document's embedded rules block instead of CSV/YAML")
}

func runTaxonomy(cmd *cobra.Command, args []string) error {
	path := args[0]

	var (
		store *taxonomy.Store
		err   error
	)
	if taxonomyRulesBlock {
		store, err = taxonomy.LoadRulesFile(path)
	} else {
		store, err = taxonomy.Load(path)
	}
	if err != nil {
		return fmt.Errorf("load taxonomy: %w", err)
	}

	mains := make(map[string]int)
	for _, e := range store.Entries() {
		mains[e.Main]++
	}

	fmt.Fprintf(os.Stderr, "%d rules, %d main categories\n\n", store.Len(), len(mains))
	fmt.Println(strings.Join(store.RuleLines(), "\n"))
	return nil
}
