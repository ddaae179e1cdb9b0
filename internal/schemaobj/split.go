// Package schemaobj builds the dependent schema objects (indexes, scalar
// functions, reporting views) on top of the loaded tables by executing the
// T-SQL scripts shipped with the loader.
package schemaobj

import (
	"regexp"
	"strings"
)

// goSeparator matches a GO batch separator on its own line, case-insensitive.
var goSeparator = regexp.MustCompile(`(?im)^\s*GO\s*$`)

// SplitStatements splits a script into executable statements. CREATE FUNCTION
// must be the only statement in its batch, so function scripts use the GO
// separator; everything else splits on semicolons. The file name decides
// which rule applies. Empty fragments are dropped.
func SplitStatements(script, fileName string) []string {
	var parts []string
	if strings.Contains(strings.ToLower(fileName), "function") {
		parts = goSeparator.Split(script, -1)
	} else {
		parts = strings.Split(script, ";")
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
