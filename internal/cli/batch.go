package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/yfzhou/taxon/internal/model"
	"github.com/yfzhou/taxon/internal/report"
	"github.com/yfzhou/taxon/internal/worker"
)

var (
	batchOutput     string
	batchWorkers    int
	batchTimeout    time.Duration
	batchSequential bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <records.csv>",
	Short: "Classify material records from a CSV file",
	Long: `Batch classifies every row of a CSV material file:
- Rows map onto record fields by header (物料名称, 图号/型号, 分类/品牌, 供应商, 材料)
- Records are classified in parallel with a bounded worker pool; a shared
  rate limiter keeps the combined upstream call rate within limits
- Per-record failures are recorded in the result file, never abort the run

Example:
  taxon batch materials.csv
  taxon batch materials.csv --output results.csv --workers 5
  taxon batch materials.csv --sequential`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVar(&batchOutput, "output", "", "output CSV path (default: <input>_classified_<timestamp>.csv)")
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 0, "worker pool width (default from config, 5)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total batch timeout")
	batchCmd.Flags().BoolVar(&batchSequential, "sequential", false, "classify one record at a time with a fixed inter-record delay")
	batchCmd.Flags().StringVar(&taxonomyPath, "taxonomy", "", "taxonomy rules file (CSV or YAML)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	input := args[0]

	cfg := buildConfig()
	if taxonomyPath != "" {
		cfg.Taxonomy.Path = taxonomyPath
	}
	if batchWorkers > 0 {
		cfg.Concurrency.Workers = batchWorkers
	}

	output := batchOutput
	if output == "" {
		base := strings.TrimSuffix(input, filepath.Ext(input))
		output = fmt.Sprintf("%s_classified_%s.csv", base, time.Now().Format("20060102_150405"))
	}

	store, err := loadStore(cfg)
	if err != nil {
		return err
	}

	resolver, provider, err := newResolver(cfg, store)
	if err != nil {
		return err
	}

	file, err := worker.ReadRecordsFromCSV(input)
	if err != nil {
		return fmt.Errorf("read records: %w", err)
	}
	records := file.Records
	if len(records) == 0 {
		return fmt.Errorf("no material rows in %s", input)
	}

	fmt.Fprintf(os.Stderr, "Classifying %d records from %s\n", len(records), input)

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	if verbose && !provider.IsAvailable(ctx) {
		fmt.Fprintf(os.Stderr, "Warning: %s provider not reachable; remote fallback will fail\n", provider.Name())
	}

	start := time.Now()

	var batchOutcomes []model.Outcome
	if batchSequential {
		batchOutcomes = resolver.ClassifyBatch(ctx, records)
	} else {
		resolver.SetGate(worker.NewLimiter(cfg.Concurrency.RequestsPerSecond, cfg.Concurrency.BurstSize))
		processor := worker.NewBatchProcessor(resolver, cfg.Concurrency.Workers)
		batchOutcomes = processor.Process(ctx, records)
	}

	success, failed := 0, 0
	for _, o := range batchOutcomes {
		if o.Err != nil {
			failed++
			if verbose {
				fmt.Fprintf(os.Stderr, "✗ %s: %v\n", o.Record.Description(), o.Err)
			}
		} else {
			success++
			if verbose {
				fmt.Fprintf(os.Stderr, "✓ %s -> %s/%s (%s)\n",
					o.Record.Description(), o.Result.MainCategory, o.Result.SubCategory, o.Result.Source)
			}
		}
	}

	if err := report.WriteCSVFile(output, file.Header, file.Rows, batchOutcomes); err != nil {
		return fmt.Errorf("write results: %w", err)
	}

	fmt.Fprintf(os.Stderr, "\nDone in %v: %d succeeded, %d failed\n", time.Since(start).Round(time.Second), success, failed)
	fmt.Fprintf(os.Stderr, "Results: %s\n", output)
	if failed > 0 {
		fmt.Fprintf(os.Stderr, "Failed rows carry their error in the 错误信息 column\n")
	}

	return nil
}
