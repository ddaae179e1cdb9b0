// Package warehouse implements the destructive create-or-replace table load
// against the SQL Server warehouse: drop the destination if it exists, create
// it with an explicit ordered column-to-type mapping, then bulk-insert rows
// in batches over the go-mssqldb bulk copy API.
//
// The writer is the only component that mutates the warehouse during ETL.
// Batches are not individually visible checkpoints; a concurrent reader may
// observe a partially populated table mid-load. The design assumes
// single-process, single-run exclusivity.
package warehouse

import (
	"fmt"
	"strings"
)

// targetSchema is the warehouse schema every destination table lives in.
const targetSchema = "dbo"

// ColumnDef is one destination column: its name and exact T-SQL type.
type ColumnDef struct {
	Name string
	Type string
}

// TableSpec is the ordered column-to-type mapping for one destination table.
// Column order here is the row order the stage's Rows conversion emits.
type TableSpec struct {
	Name    string
	Columns []ColumnDef
}

// ColumnNames returns the column names in declaration order.
func (t TableSpec) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// validate rejects specs that would render unusable DDL.
func (t TableSpec) validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("warehouse: table name must not be empty")
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("warehouse: table %s needs at least one column", t.Name)
	}
	for _, c := range t.Columns {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("warehouse: table %s has a column with an empty name", t.Name)
		}
		if strings.TrimSpace(c.Type) == "" {
			return fmt.Errorf("warehouse: column %s.%s missing type", t.Name, c.Name)
		}
	}
	return nil
}

// DropSQL renders the guarded drop for the destination table.
func (t TableSpec) DropSQL() string {
	fqn := quoteFQN(targetSchema + "." + t.Name)
	return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NOT NULL DROP TABLE %s;", fqn, fqn)
}

// CreateSQL renders the CREATE TABLE statement. Every column is nullable:
// the load replaces data wholesale and the sources carry genuine gaps.
func (t TableSpec) CreateSQL() (string, error) {
	if err := t.validate(); err != nil {
		return "", err
	}
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = quoteIdent(c.Name) + " " + c.Type
	}
	return fmt.Sprintf(
		"CREATE TABLE %s (\n    %s\n);",
		quoteFQN(targetSchema+"."+t.Name),
		strings.Join(cols, ",\n    "),
	), nil
}

// quoteIdent quotes a single identifier segment for SQL Server using
// bracket syntax, escaping any closing brackets.
func quoteIdent(id string) string {
	return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
}

// quoteFQN quotes a possibly schema-qualified name like "dbo.rd_products"
// to "[dbo].[rd_products]".
func quoteFQN(fqn string) string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, quoteIdent(p))
	}
	return strings.Join(out, ".")
}
