package source

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestReadCSV_HeaderKeyedRows(t *testing.T) {
	p := writeFile(t, "in.csv", "a,b,c\n1,2,3\n4,5\n")
	rows, err := ReadCSV(p, Options{TrimSpace: true})
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0]["b"] != "2" {
		t.Fatalf("rows[0][b] = %q", rows[0]["b"])
	}
	// short row: missing trailing field maps to empty string
	if rows[1]["c"] != "" {
		t.Fatalf("rows[1][c] = %q, want empty", rows[1]["c"])
	}
}

func TestReadCSV_BOMAndIllFormed(t *testing.T) {
	// header carries a BOM; the value carries an invalid UTF-8 byte
	p := writeFile(t, "in.csv", "\uFEFFname\n"+string([]byte{0xff})+"x\n")
	rows, err := ReadCSV(p, Options{})
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if _, ok := rows[0]["name"]; !ok {
		t.Fatalf("BOM not stripped from header: %v", rows[0])
	}
	if !strings.HasSuffix(rows[0]["name"], "x") {
		t.Fatalf("value = %q", rows[0]["name"])
	}
}

func TestReadProductCSV_Repair(t *testing.T) {
	// wide row: 12 comma fields, two beyond the catalog width
	content := strings.Join([]string{
		"id,gender,masterCategory,subCategory,articleType,baseColour,season,year,usage,productDisplayName",
		"15970,Men,Apparel,Topwear,Shirts,Navy Blue,Fall,2011,Casual,Turtle Check Men Navy Blue Shirt, extra, junk",
		"39386,Men,Apparel,Bottomwear,Jeans,Blue,Summer,2012,Casual,Peter England Men Party Blue Jeans",
	}, "\n") + "\n"
	p := writeFile(t, "product.csv", content)

	rows, err := ReadProductCSV(p)
	if err != nil {
		t.Fatalf("ReadProductCSV: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0]["id"] != "15970" {
		t.Fatalf("id = %q", rows[0]["id"])
	}
	if rows[0]["productDisplayName"] != "Turtle Check Men Navy Blue Shirt" {
		t.Fatalf("display name not truncated to field 10: %q", rows[0]["productDisplayName"])
	}
	if rows[1]["year"] != "2012" {
		t.Fatalf("year = %q", rows[1]["year"])
	}
}
