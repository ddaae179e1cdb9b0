// Package transform holds the stage transformers: pure reshaping functions
// from raw source rows (or earlier stages' outputs) to the typed entity rows
// of internal/schema, plus each stage's destination TableSpec and the
// ordered row conversion the Table Writer consumes.
//
// Transformers never touch the warehouse; persistence is the orchestrator's
// job. Column order in every Rows function matches the matching Spec.
package transform

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// timeLayouts are tried in order when parsing source timestamps. The raw
// exports mix ISO-8601 "T" separators with space-separated datetimes, with
// and without fractional seconds and zone offsets.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// parseTime parses a source timestamp and normalizes it to UTC. Offset-less
// values are taken as already UTC. It does not truncate; callers that need
// whole seconds apply floorSecond.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("transform: empty timestamp")
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("transform: unparseable timestamp %q", s)
}

// floorSecond truncates a timestamp to whole seconds.
func floorSecond(t time.Time) time.Time { return t.Truncate(time.Second) }

// ptr returns a pointer to v.
func ptr[T any](v T) *T { return &v }

// opt turns an optional value into a driver argument: nil pointer to NULL.
func opt[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

// optString maps an empty CSV cell to nil, matching the NULL the source's
// missing values carry through to the warehouse.
func optString(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return ptr(s)
}

// optInt parses an optional integer cell; empty or malformed becomes nil.
func optInt(s string) *int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ptr(n)
	}
	// integral floats ("3.0") appear where the source round-tripped a
	// numeric column through a float representation
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		n := int64(f)
		if float64(n) == f {
			return ptr(n)
		}
	}
	return nil
}

// optDecimal parses an optional fixed-precision cell; empty or malformed
// becomes nil.
func optDecimal(s string) *decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return ptr(d)
}
