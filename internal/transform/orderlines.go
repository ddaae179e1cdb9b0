package transform

import (
	"ecomdw/internal/parser/payload"
	"ecomdw/internal/schema"
	"ecomdw/internal/warehouse"
)

// OrderLines explodes each order's product-metadata list into one row per
// list element. A malformed or non-list payload contributes zero rows for
// that order and is never an error; an element that is not a dict, or lacks
// a field, leaves the corresponding columns NULL. product_amount is
// quantity * item_price when both are present.
func OrderLines(orders []schema.Order) []schema.OrderLine {
	var out []schema.OrderLine
	for _, o := range orders {
		res := payload.DecodeList(o.ProductMetadata)
		if !res.Valid {
			continue
		}
		for _, item := range res.Items {
			line := schema.OrderLine{BookingID: o.BookingID}
			if fields, ok := item.(map[string]any); ok {
				if v, ok := payload.Int(fields["product_id"]); ok {
					line.ProductID = ptr(v)
				}
				if v, ok := payload.Int(fields["quantity"]); ok {
					line.Quantity = ptr(v)
				}
				if v, ok := payload.Int(fields["item_price"]); ok {
					line.ItemPrice = ptr(v)
				}
			}
			if line.Quantity != nil && line.ItemPrice != nil {
				line.ProductAmount = ptr(*line.Quantity * *line.ItemPrice)
			}
			out = append(out, line)
		}
	}
	return out
}

// OrderLinesSpec is the rd_transactions_prods column-to-type mapping.
func OrderLinesSpec(table string) warehouse.TableSpec {
	return warehouse.TableSpec{
		Name: table,
		Columns: []warehouse.ColumnDef{
			{Name: "booking_id", Type: warehouse.NVarChar(36)},
			{Name: "product_id", Type: warehouse.TypeBigInt},
			{Name: "quantity", Type: warehouse.TypeBigInt},
			{Name: "item_price", Type: warehouse.TypeBigInt},
			{Name: "product_amount", Type: warehouse.TypeBigInt},
		},
	}
}

// OrderLineRows converts lines to writer rows in OrderLinesSpec order.
func OrderLineRows(lines []schema.OrderLine) [][]any {
	rows := make([][]any, len(lines))
	for i, l := range lines {
		rows[i] = []any{
			l.BookingID,
			opt(l.ProductID),
			opt(l.Quantity),
			opt(l.ItemPrice),
			opt(l.ProductAmount),
		}
	}
	return rows
}
