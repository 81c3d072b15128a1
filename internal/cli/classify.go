package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/yfzhou/taxon/internal/classify"
	"github.com/yfzhou/taxon/internal/model"
)

var (
	recName         string
	recModel        string
	recBrand        string
	recSupplier     string
	recRawMaterial  string
	taxonomyPath    string
	classifyTimeout time.Duration
)

// classifyCmd represents the classify command
var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify a single material record",
	Long: `Classify one material record given on the command line.

The local keyword/brand matcher runs first; only when it finds nothing is
the configured LLM endpoint consulted. The result is printed as JSON with
the canonical category spelling and a provenance tag.

Example:
  taxon classify --name "PLC模块" --model S7-300
  taxon classify --name "UPS电源" --brand 华为 --taxonomy rules.csv`,
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)

	classifyCmd.Flags().StringVar(&recName, "name", "", "material name (物料名称)")
	classifyCmd.Flags().StringVar(&recModel, "model", "", "model / drawing number (图号/型号)")
	classifyCmd.Flags().StringVar(&recBrand, "brand", "", "brand (分类/品牌)")
	classifyCmd.Flags().StringVar(&recSupplier, "supplier", "", "supplier (供应商)")
	classifyCmd.Flags().StringVar(&recRawMaterial, "material", "", "raw material (材料)")
	classifyCmd.Flags().StringVar(&taxonomyPath, "taxonomy", "", "taxonomy rules file (CSV or YAML)")
	classifyCmd.Flags().DurationVar(&classifyTimeout, "timeout", 2*time.Minute, "overall timeout")
}

func runClassify(cmd *cobra.Command, args []string) error {
	rec := model.Record{
		Name:        recName,
		Model:       recModel,
		Brand:       recBrand,
		Supplier:    recSupplier,
		RawMaterial: recRawMaterial,
	}
	if rec.IsEmpty() {
		return fmt.Errorf("no record fields given (see --name, --model, --brand, --supplier, --material)")
	}

	cfg := buildConfig()
	if taxonomyPath != "" {
		cfg.Taxonomy.Path = taxonomyPath
	}

	store, err := loadStore(cfg)
	if err != nil {
		return err
	}

	resolver, _, err := newResolver(cfg, store)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), classifyTimeout)
	defer cancel()

	if verbose {
		fmt.Fprintf(os.Stderr, "Classifying: %s\n", rec.Description())
	}

	result, err := resolver.Classify(ctx, rec)
	if err != nil {
		if classify.IsTerminal(err) {
			return fmt.Errorf("model answer rejected: %w", err)
		}
		return fmt.Errorf("classify: %w", err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
