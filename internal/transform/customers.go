package transform

import (
	"fmt"
	"strconv"
	"strings"

	"ecomdw/internal/schema"
	"ecomdw/internal/warehouse"
)

// Customers reshapes raw customer rows into Customer entities. An empty
// birthdate becomes NULL; a present but unparseable one fails the stage.
// Rows without a numeric customer_id are dropped.
func Customers(rows []map[string]string) ([]schema.Customer, error) {
	out := make([]schema.Customer, 0, len(rows))
	for i, row := range rows {
		id, err := strconv.ParseInt(strings.TrimSpace(row["customer_id"]), 10, 64)
		if err != nil {
			continue
		}
		c := schema.Customer{
			CustomerID:    id,
			Gender:        optString(row["gender"]),
			DeviceType:    optString(row["device_type"]),
			DeviceVersion: optString(row["device_version"]),
			HomeLocation:  optString(row["home_location"]),
		}
		if bd := strings.TrimSpace(row["birthdate"]); bd != "" {
			t, err := parseTime(bd)
			if err != nil {
				return nil, fmt.Errorf("customer row %d: birthdate: %w", i+1, err)
			}
			c.Birthdate = ptr(floorSecond(t))
		}
		out = append(out, c)
	}
	return out, nil
}

// CustomersSpec is the rd_customers column-to-type mapping.
func CustomersSpec(table string) warehouse.TableSpec {
	return warehouse.TableSpec{
		Name: table,
		Columns: []warehouse.ColumnDef{
			{Name: "customer_id", Type: warehouse.TypeBigInt},
			{Name: "gender", Type: warehouse.NVarChar(255)},
			{Name: "birthdate", Type: warehouse.TypeDateTime},
			{Name: "device_type", Type: warehouse.NVarChar(255)},
			{Name: "device_version", Type: warehouse.NVarChar(255)},
			{Name: "home_location", Type: warehouse.NVarChar(255)},
		},
	}
}

// CustomerRows converts customers to writer rows in CustomersSpec order.
func CustomerRows(customers []schema.Customer) [][]any {
	rows := make([][]any, len(customers))
	for i, c := range customers {
		rows[i] = []any{
			c.CustomerID,
			opt(c.Gender),
			opt(c.Birthdate),
			opt(c.DeviceType),
			opt(c.DeviceVersion),
			opt(c.HomeLocation),
		}
	}
	return rows
}
