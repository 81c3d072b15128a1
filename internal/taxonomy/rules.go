package taxonomy

import (
	"fmt"
	"os"
	"strings"
)

// Markers delimiting the rules block inside a prompt/instruction document.
// Rules used by older deployments live directly in the classification
// prompt, between the standards header and the worked examples.
const (
	rulesHeader     = "5. 仅使用以下分类标准中的分类："
	examplesMarker  = "示例："
	rulePrefix      = "- 大类："
	ruleSubSep      = "，二级类："
	fullWidthComma  = "，"
	keywordsSegment = "关键词："
	notesSegment    = "释义："
	brandsSegment   = "常用品牌："
)

// ParseRules extracts classification rules embedded in a prompt document.
// Only lines between the standards header and the examples marker are
// considered; within the block, lines that do not match the
// "- 大类：X，二级类：Y" pattern are skipped, not errors.
func ParseRules(text string) (*Store, error) {
	lines := strings.Split(text, "\n")

	start, end := -1, -1
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == rulesHeader {
			start = i + 1
		} else if start >= 0 && strings.HasPrefix(line, examplesMarker) {
			end = i
			break
		}
	}
	if start < 0 || end < 0 {
		return nil, fmt.Errorf("rules block not found (missing header or examples marker): %w", ErrEmptyTaxonomy)
	}

	store := newStore()
	for _, line := range lines[start:end] {
		entry, ok := parseRuleLine(strings.TrimSpace(line))
		if !ok {
			continue
		}
		store.add(entry)
	}

	return store.finish()
}

// LoadRulesFile reads a prompt document from disk and parses its rules block.
func LoadRulesFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open rules file: %w", err)
	}
	store, err := ParseRules(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	return store, nil
}

// parseRuleLine parses a single "- 大类：X，二级类：Y[，…]" line. Trailing
// segments (关键词/释义/常用品牌) are parsed when present; keywords and
// brands inside a segment are delimited with 、 in rendered rules, so the
// full-width comma safely terminates each segment.
func parseRuleLine(line string) (Entry, bool) {
	if !strings.HasPrefix(line, rulePrefix) {
		return Entry{}, false
	}
	rest := line[len(rulePrefix):]

	mainCat, rest, found := strings.Cut(rest, ruleSubSep)
	if !found {
		return Entry{}, false
	}
	subCat, rest, _ := strings.Cut(rest, fullWidthComma)

	mainCat = strings.TrimSpace(mainCat)
	subCat = strings.TrimSpace(subCat)
	if mainCat == "" || subCat == "" {
		return Entry{}, false
	}

	entry := Entry{Main: mainCat, Sub: subCat}
	for _, seg := range strings.Split(rest, fullWidthComma) {
		seg = strings.TrimSpace(seg)
		switch {
		case strings.HasPrefix(seg, keywordsSegment):
			entry.Keywords = SplitList(seg[len(keywordsSegment):])
		case strings.HasPrefix(seg, notesSegment):
			entry.Notes = strings.TrimSpace(seg[len(notesSegment):])
		case strings.HasPrefix(seg, brandsSegment):
			entry.Brands = SplitList(seg[len(brandsSegment):])
		}
	}
	return entry, true
}
