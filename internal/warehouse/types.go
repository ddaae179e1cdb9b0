package warehouse

import "fmt"

// T-SQL column types used by the stage table specs. The mapping is
// intentionally conservative: integers widen to BIGINT unless the source is
// known small, money uses fixed-precision DECIMAL, timestamps DATETIME2.
const (
	TypeBigInt      = "BIGINT"
	TypeInt         = "INT"
	TypeDateTime    = "DATETIME2"
	TypeNVarCharMax = "NVARCHAR(MAX)"
)

// NVarChar renders a bounded Unicode string type; n <= 0 falls back to MAX.
func NVarChar(n int) string {
	if n <= 0 {
		return TypeNVarCharMax
	}
	return fmt.Sprintf("NVARCHAR(%d)", n)
}

// Decimal renders a fixed-precision decimal type.
func Decimal(precision, scale int) string {
	return fmt.Sprintf("DECIMAL(%d,%d)", precision, scale)
}
