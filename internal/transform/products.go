package transform

import (
	"strconv"
	"strings"

	"ecomdw/internal/schema"
	"ecomdw/internal/source"
	"ecomdw/internal/warehouse"
)

// Products reshapes repaired catalog rows into Product entities. The three
// raw category attributes form a composite "master-sub-article" key that is
// left-joined against the remap lookup: matched keys substitute the three
// remapped levels, unmatched keys keep the row with NULL categories. Rows
// without a usable numeric id are dropped (the catalog file is the one input
// that arrives genuinely corrupted).
func Products(rows []map[string]string, lookup map[string]source.CategoryRemap) []schema.Product {
	out := make([]schema.Product, 0, len(rows))
	for _, row := range rows {
		id, err := strconv.ParseInt(strings.TrimSpace(row["id"]), 10, 64)
		if err != nil {
			continue
		}
		p := schema.Product{
			ProdID:     id,
			ProdName:   optString(row["productDisplayName"]),
			Gender:     optString(row["gender"]),
			BaseColour: optString(row["baseColour"]),
			Season:     optString(row["season"]),
			Year:       optInt(row["year"]),
			Usage:      optString(row["usage"]),
		}
		key := row["masterCategory"] + "-" + row["subCategory"] + "-" + row["articleType"]
		if remap, ok := lookup[key]; ok {
			p.CategoryLevel1 = optString(remap.Level1)
			p.CategoryLevel2 = optString(remap.Level2)
			p.CategoryLevel3 = optString(remap.Level3)
		}
		out = append(out, p)
	}
	return out
}

// ProductsSpec is the rd_products column-to-type mapping.
func ProductsSpec(table string) warehouse.TableSpec {
	return warehouse.TableSpec{
		Name: table,
		Columns: []warehouse.ColumnDef{
			{Name: "prod_id", Type: warehouse.TypeBigInt},
			{Name: "prod_name", Type: warehouse.TypeNVarCharMax},
			{Name: "category_level_1", Type: warehouse.NVarChar(255)},
			{Name: "category_level_2", Type: warehouse.NVarChar(255)},
			{Name: "category_level_3", Type: warehouse.NVarChar(255)},
			{Name: "gender", Type: warehouse.NVarChar(255)},
			{Name: "baseColour", Type: warehouse.NVarChar(255)},
			{Name: "season", Type: warehouse.NVarChar(255)},
			{Name: "year", Type: warehouse.TypeBigInt},
			{Name: "usage", Type: warehouse.NVarChar(255)},
		},
	}
}

// ProductRows converts products to writer rows in ProductsSpec order.
func ProductRows(products []schema.Product) [][]any {
	rows := make([][]any, len(products))
	for i, p := range products {
		rows[i] = []any{
			p.ProdID,
			opt(p.ProdName),
			opt(p.CategoryLevel1),
			opt(p.CategoryLevel2),
			opt(p.CategoryLevel3),
			opt(p.Gender),
			opt(p.BaseColour),
			opt(p.Season),
			opt(p.Year),
			opt(p.Usage),
		}
	}
	return rows
}
