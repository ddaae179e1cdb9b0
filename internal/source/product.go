package source

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"
)

// productFieldCount is the fixed width of the product catalog. The raw file
// embeds unquoted commas and newlines inside the display-name column, so each
// physical line is truncated to this many comma fields before parsing.
const productFieldCount = 10

// ReadProductCSV reads the product catalog with line-level pre-repair:
// every line is cut to its first 10 comma-separated fields, the fields are
// re-joined with tabs, and embedded CR/LF bytes become spaces. The repaired
// text is then parsed as tab-separated CSV with quote support.
func ReadProductCSV(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("source: open %s: %w", path, err)
	}
	defer f.Close()

	var repaired bytes.Buffer
	sc := bufio.NewScanner(tolerantReader(f))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		fields := strings.SplitN(line, ",", productFieldCount+1)
		if len(fields) > productFieldCount {
			fields = fields[:productFieldCount]
		}
		joined := strings.Join(fields, "\t")
		joined = strings.ReplaceAll(joined, "\r", " ")
		repaired.WriteString(joined)
		repaired.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("source: scan %s: %w", path, err)
	}

	return parseCSV(&repaired, Options{Comma: '\t', TrimSpace: true})
}
