// Package source reads the raw input files the pipeline consumes: the
// transactions, clickstream, and customer CSV exports, the malformed product
// catalog, and the category-remap spreadsheet.
//
// All readers are tolerant by construction: lenient quoting, variable field
// counts, and ill-formed UTF-8 replaced rather than rejected. The files are
// read-only inputs whose schemas are assumed stable.
package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\uFEFF"

// Options configures ReadCSV. All fields are optional.
type Options struct {
	// Comma is the field delimiter; ',' when zero.
	Comma rune

	// TrimSpace trims surrounding spaces from every field value.
	TrimSpace bool
}

// ReadCSV reads an entire CSV file with a header row into one map per data
// row, keyed by header name. Missing trailing fields map to the empty string.
// Ill-formed UTF-8 sequences are replaced with U+FFFD before parsing and the
// text is NFC-normalized, so mildly corrupted exports still load.
func ReadCSV(path string, opt Options) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("source: open %s: %w", path, err)
	}
	defer f.Close()
	return parseCSV(tolerantReader(f), opt)
}

// tolerantReader wraps r so downstream parsing never sees invalid UTF-8.
func tolerantReader(r io.Reader) io.Reader {
	t := transform.Chain(runes.ReplaceIllFormed(), norm.NFC)
	return transform.NewReader(r, t)
}

func parseCSV(r io.Reader, opt Options) ([]map[string]string, error) {
	cr := csv.NewReader(r)
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("source: empty input")
		}
		return nil, fmt.Errorf("source: read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], utf8BOM))
	}

	var out []map[string]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("source: read row %d: %w", len(out)+2, err)
		}
		row := make(map[string]string, len(header))
		for i, name := range header {
			if name == "" {
				continue
			}
			v := ""
			if i < len(rec) {
				v = rec[i]
			}
			if opt.TrimSpace {
				v = strings.TrimSpace(v)
			}
			row[name] = v
		}
		out = append(out, row)
	}
	return out, nil
}
