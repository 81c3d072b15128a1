package worker

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/yfzhou/taxon/internal/model"
)

// Classifier is the interface batch jobs call; satisfied by
// classify.Resolver and by test doubles.
type Classifier interface {
	Classify(ctx context.Context, rec model.Record) (*model.Classification, error)
}

// ClassifyJob classifies one record.
type ClassifyJob struct {
	Index      int
	Record     model.Record
	Classifier Classifier
}

// Execute runs the classification.
func (j *ClassifyJob) Execute(ctx context.Context) Result {
	result, err := j.Classifier.Classify(ctx, j.Record)
	return &ClassifyResult{
		Index:   j.Index,
		Outcome: model.Outcome{Record: j.Record, Result: result, Err: err},
	}
}

// ClassifyResult carries one outcome plus its input position.
type ClassifyResult struct {
	Index   int
	Outcome model.Outcome
}

// GetError returns the classification error, if any.
func (r *ClassifyResult) GetError() error {
	return r.Outcome.Err
}

// BatchProcessor classifies many records in parallel while a shared
// limiter keeps the combined remote-call rate bounded.
type BatchProcessor struct {
	classifier  Classifier
	concurrency int
}

// NewBatchProcessor creates a batch processor.
func NewBatchProcessor(classifier Classifier, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		classifier:  classifier,
		concurrency: concurrency,
	}
}

// Process classifies all records and returns outcomes in input order.
// A record's failure never aborts the batch.
func (b *BatchProcessor) Process(ctx context.Context, records []model.Record) []model.Outcome {
	if len(records) == 0 {
		return []model.Outcome{}
	}

	pool := NewPool(b.concurrency, len(records))
	pool.Start()

	for i, rec := range records {
		pool.Submit(&ClassifyJob{Index: i, Record: rec, Classifier: b.classifier})
	}

	results := pool.Wait()

	outcomes := make([]model.Outcome, len(records))
	for i := range outcomes {
		outcomes[i] = model.Outcome{
			Record: records[i],
			Err:    fmt.Errorf("classification not completed"),
		}
	}
	for _, result := range results {
		r := result.(*ClassifyResult)
		outcomes[r.Index] = r.Outcome
	}
	return outcomes
}

// recordColumns maps known header names (Chinese and English) onto Record
// fields.
var recordColumns = map[string]func(*model.Record, string){
	"物料名称":          func(r *model.Record, v string) { r.Name = v },
	"material_name": func(r *model.Record, v string) { r.Name = v },
	"图号/型号":         func(r *model.Record, v string) { r.Model = v },
	"型号":            func(r *model.Record, v string) { r.Model = v },
	"model":         func(r *model.Record, v string) { r.Model = v },
	"分类/品牌":         func(r *model.Record, v string) { r.Brand = v },
	"品牌":            func(r *model.Record, v string) { r.Brand = v },
	"brand":         func(r *model.Record, v string) { r.Brand = v },
	"供应商":           func(r *model.Record, v string) { r.Supplier = v },
	"supplier":      func(r *model.Record, v string) { r.Supplier = v },
	"材料":            func(r *model.Record, v string) { r.RawMaterial = v },
	"raw_material":  func(r *model.Record, v string) { r.RawMaterial = v },
}

// RecordFile is a parsed material file: the header, the raw rows, and the
// record mapped from each row. Raw rows are kept verbatim, including
// columns no record field claims, so result writers can echo the full
// original row.
type RecordFile struct {
	Header  []string
	Rows    [][]string
	Records []model.Record
}

// ReadRecordsFromCSV reads material rows from a CSV file. The header row
// selects which columns map onto record fields; all columns survive in the
// raw rows. Incomplete rows are kept; classification handles missing
// fields.
func ReadRecordsFromCSV(path string) (*RecordFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	// Excel exports often lead with a UTF-8 BOM.
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}

	file := &RecordFile{Header: header}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		var rec model.Record
		for i, name := range header {
			if i >= len(row) {
				break
			}
			if set, ok := recordColumns[strings.TrimSpace(name)]; ok {
				set(&rec, strings.TrimSpace(row[i]))
			}
		}
		file.Rows = append(file.Rows, row)
		file.Records = append(file.Records, rec)
	}

	return file, nil
}
