package source

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// CategoryRemap is one row of the category-remap lookup: the three remapped
// hierarchy levels for a source composite key.
type CategoryRemap struct {
	Level1 string
	Level2 string
	Level3 string
}

// Lookup column headers in the remap workbook.
const (
	colOriginalConcat = "original_name_concat"
	colMasterNew      = "masterCategory_new"
	colSubNew         = "subCategory_new"
	colArticleNew     = "articleType_new"
)

// ReadCategoryLookup loads the category-remap spreadsheet. The first sheet
// is used; rows are keyed by the original_name_concat column. Duplicate keys
// keep the first occurrence.
func ReadCategoryLookup(path string) (map[string]CategoryRemap, error) {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("source: open workbook %s: %w", path, err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("source: workbook %s has no sheets", path)
	}
	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("source: read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("source: sheet %s is empty", sheets[0])
	}

	idx := map[string]int{}
	for i, h := range rows[0] {
		idx[strings.TrimSpace(h)] = i
	}
	for _, want := range []string{colOriginalConcat, colMasterNew, colSubNew, colArticleNew} {
		if _, ok := idx[want]; !ok {
			return nil, fmt.Errorf("source: lookup column %q missing in %s", want, path)
		}
	}

	cell := func(row []string, name string) string {
		i := idx[name]
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	out := make(map[string]CategoryRemap, len(rows)-1)
	for _, row := range rows[1:] {
		key := cell(row, colOriginalConcat)
		if key == "" {
			continue
		}
		if _, dup := out[key]; dup {
			continue
		}
		out[key] = CategoryRemap{
			Level1: cell(row, colMasterNew),
			Level2: cell(row, colSubNew),
			Level3: cell(row, colArticleNew),
		}
	}
	return out, nil
}
