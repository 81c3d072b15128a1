package taxonomy

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// missingSentinel is how spreadsheet exports render empty cells.
const missingSentinel = "nan"

// LoadCSV reads a tabular rules file with the fixed column order
// [index, main, sub, keywords, notes, brands]; the brands column is
// optional. The source uses a grouped layout: a row with a non-empty main
// cell starts a new main category that carries forward over the following
// rows, and a row contributes a rule only when its own sub cell is
// non-empty.
func LoadCSV(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open taxonomy file: %w", err)
	}
	defer func() { _ = f.Close() }()

	store, err := ParseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parse taxonomy file %s: %w", path, err)
	}
	return store, nil
}

// ParseCSV parses tabular rules from r. The first row is assumed to be a
// header and skipped.
func ParseCSV(r io.Reader) (*Store, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // rows may omit trailing columns

	store := newStore()
	currentMain := ""
	first := true

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if first {
			first = false
			continue
		}

		mainCat := cell(row, 1)
		subCat := cell(row, 2)
		keywords := cell(row, 3)
		notes := cell(row, 4)
		brands := cell(row, 5)

		if mainCat != "" {
			currentMain = mainCat
		}
		if currentMain == "" || subCat == "" {
			continue
		}

		store.add(Entry{
			Main:     currentMain,
			Sub:      subCat,
			Keywords: SplitList(keywords),
			Notes:    notes,
			Brands:   SplitList(brands),
		})
	}

	return store.finish()
}

// cell returns the trimmed value at index i, with out-of-range and
// missing-value cells mapped to the empty string.
func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	v := strings.TrimSpace(row[i])
	if strings.EqualFold(v, missingSentinel) {
		return ""
	}
	return v
}
