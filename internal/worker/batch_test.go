package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/yfzhou/taxon/internal/model"
)

// fakeClassifier fails records whose name contains "坏" and returns a
// fixed classification otherwise.
type fakeClassifier struct {
	mu    sync.Mutex
	calls int
}

func (c *fakeClassifier) Classify(ctx context.Context, rec model.Record) (*model.Classification, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()

	if strings.Contains(rec.Name, "坏") {
		return nil, errors.New("cannot classify")
	}
	return &model.Classification{
		MainCategory: "PLC/IO模块/柜体",
		SubCategory:  "PLC",
		Source:       model.SourceKeywordMatcher,
	}, nil
}

func TestBatchProcessor_OrderAndIsolation(t *testing.T) {
	classifier := &fakeClassifier{}
	processor := NewBatchProcessor(classifier, 4)

	records := []model.Record{
		{Name: "物料0"},
		{Name: "坏物料1"},
		{Name: "物料2"},
		{Name: "坏物料3"},
		{Name: "物料4"},
	}
	outcomes := processor.Process(context.Background(), records)
	if len(outcomes) != len(records) {
		t.Fatalf("got %d outcomes, want %d", len(outcomes), len(records))
	}

	for i, o := range outcomes {
		if o.Record.Name != records[i].Name {
			t.Errorf("outcome %d out of order: %q", i, o.Record.Name)
		}
		wantFail := strings.Contains(records[i].Name, "坏")
		if wantFail && o.Err == nil {
			t.Errorf("outcome %d should have failed", i)
		}
		if !wantFail && o.Err != nil {
			t.Errorf("outcome %d failed: %v", i, o.Err)
		}
	}

	if classifier.calls != len(records) {
		t.Errorf("classifier called %d times, want %d", classifier.calls, len(records))
	}
}

func TestBatchProcessor_LargeBatch(t *testing.T) {
	classifier := &fakeClassifier{}
	processor := NewBatchProcessor(classifier, 5)

	records := make([]model.Record, 100)
	for i := range records {
		records[i] = model.Record{Name: "物料"}
	}
	outcomes := processor.Process(context.Background(), records)
	if len(outcomes) != 100 {
		t.Fatalf("got %d outcomes, want 100", len(outcomes))
	}
	for i, o := range outcomes {
		if o.Err != nil {
			t.Fatalf("outcome %d failed: %v", i, o.Err)
		}
	}
}

func TestBatchProcessor_Empty(t *testing.T) {
	processor := NewBatchProcessor(&fakeClassifier{}, 2)
	outcomes := processor.Process(context.Background(), nil)
	if len(outcomes) != 0 {
		t.Errorf("expected no outcomes, got %d", len(outcomes))
	}
}

const sampleInputCSV = "\uFEFF" + `物料名称,图号/型号,分类/品牌,供应商,材料,备注
PLC模块,S7-300,西门子,供应商A,塑料,进口
UPS电源,UPS2000,华为,,,
,,,,,空行照收
`

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "materials.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp csv: %v", err)
	}
	return path
}

func TestReadRecordsFromCSV(t *testing.T) {
	path := writeTempCSV(t, sampleInputCSV)

	file, err := ReadRecordsFromCSV(path)
	if err != nil {
		t.Fatalf("ReadRecordsFromCSV: %v", err)
	}
	if len(file.Records) != 3 {
		t.Fatalf("got %d records, want 3", len(file.Records))
	}

	// The BOM must not corrupt the first header.
	if file.Header[0] != "物料名称" {
		t.Errorf("first header = %q, want 物料名称", file.Header[0])
	}

	first := file.Records[0]
	if first.Name != "PLC模块" || first.Model != "S7-300" || first.Brand != "西门子" ||
		first.Supplier != "供应商A" || first.RawMaterial != "塑料" {
		t.Errorf("first record mismatch: %+v", first)
	}

	// Partially filled rows are kept.
	if file.Records[1].Name != "UPS电源" || file.Records[1].Supplier != "" {
		t.Errorf("second record mismatch: %+v", file.Records[1])
	}

	// Entirely empty rows are kept too; classification reports them.
	if !file.Records[2].IsEmpty() {
		t.Errorf("third record should be empty: %+v", file.Records[2])
	}
}

func TestReadRecordsFromCSV_KeepsUnmappedColumns(t *testing.T) {
	path := writeTempCSV(t, "序号,物料名称,备注\n42,PLC模块,进口\n")

	file, err := ReadRecordsFromCSV(path)
	if err != nil {
		t.Fatalf("ReadRecordsFromCSV: %v", err)
	}
	if len(file.Rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(file.Rows))
	}

	// Columns no record field claims still come back verbatim so the
	// result file can carry the full original row.
	if file.Rows[0][0] != "42" || file.Rows[0][2] != "进口" {
		t.Errorf("raw row mismatch: %q", file.Rows[0])
	}
	if file.Records[0].Name != "PLC模块" {
		t.Errorf("record mismatch: %+v", file.Records[0])
	}
}

func TestReadRecordsFromCSV_EnglishHeaders(t *testing.T) {
	path := writeTempCSV(t, "material_name,model,brand\nPLC模块,S7-300,西门子\n")

	file, err := ReadRecordsFromCSV(path)
	if err != nil {
		t.Fatalf("ReadRecordsFromCSV: %v", err)
	}
	if len(file.Records) != 1 || file.Records[0].Name != "PLC模块" || file.Records[0].Model != "S7-300" {
		t.Errorf("unexpected records: %+v", file.Records)
	}
}

func TestReadRecordsFromCSV_RaggedRows(t *testing.T) {
	path := writeTempCSV(t, "物料名称,型号,品牌\nPLC模块,S7-300\n")

	file, err := ReadRecordsFromCSV(path)
	if err != nil {
		t.Fatalf("ragged rows should be tolerated: %v", err)
	}
	if len(file.Records) != 1 || file.Records[0].Brand != "" {
		t.Errorf("unexpected records: %+v", file.Records)
	}
}

func TestReadRecordsFromCSV_MissingFile(t *testing.T) {
	if _, err := ReadRecordsFromCSV(filepath.Join(t.TempDir(), "nope.csv")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
