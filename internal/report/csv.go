// Package report writes classification outcomes to result files.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/yfzhou/taxon/internal/model"
)

// Result file columns appended after the echoed input columns. The names
// match the downstream spreadsheets that consume these files.
var resultColumns = []string{"功能大类", "二级分类", "分类状态", "分类来源", "错误信息"}

// inputColumns is the fallback header used when the caller has no
// original file to echo (records built from flags rather than a CSV).
var inputColumns = []string{"物料名称", "图号/型号", "分类/品牌", "供应商", "材料"}

// WriteCSV writes one row per outcome: the full original input row
// followed by the category pair, status, provenance tag, and error
// message. Every input column survives into the result file, including
// columns no record field maps onto. Failed rows keep their input and
// carry the error, so a batch result file is always complete. With an
// empty header the input columns are synthesized from the record fields.
func WriteCSV(w io.Writer, header []string, rows [][]string, outcomes []model.Outcome) error {
	if len(header) == 0 {
		header = inputColumns
	}

	writer := csv.NewWriter(w)

	out := append(append([]string{}, header...), resultColumns...)
	if err := writer.Write(out); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, o := range outcomes {
		var row []string
		if i < len(rows) {
			row = append(row, rows[i]...)
		} else {
			row = append(row,
				o.Record.Name,
				o.Record.Model,
				o.Record.Brand,
				o.Record.Supplier,
				o.Record.RawMaterial,
			)
		}
		// Ragged input rows are padded so result columns stay aligned.
		for len(row) < len(header) {
			row = append(row, "")
		}

		if o.Err == nil && o.Result != nil {
			row = append(row, o.Result.MainCategory, o.Result.SubCategory, o.Status(), string(o.Result.Source), "")
		} else {
			errMsg := ""
			if o.Err != nil {
				errMsg = o.Err.Error()
			}
			row = append(row, "", "", o.Status(), "", errMsg)
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteCSVFile writes outcomes to a new file at path.
func WriteCSVFile(path string, header []string, rows [][]string, outcomes []model.Outcome) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create result file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close result file: %w", closeErr)
		}
	}()

	return WriteCSV(f, header, rows, outcomes)
}
