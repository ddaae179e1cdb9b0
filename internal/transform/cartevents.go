package transform

import (
	"github.com/shopspring/decimal"

	"ecomdw/internal/parser/payload"
	"ecomdw/internal/schema"
	"ecomdw/internal/warehouse"
)

// CartEvents selects the ADD_TO_CART subset of the clickstream and unpacks
// each event's metadata dict into product columns, dropping the metadata and
// event-name columns. item_price is rounded to two decimal places and
// prod_amount derives as quantity * item_price. A malformed metadata payload
// keeps the event with NULL product columns rather than failing the stage.
func CartEvents(events []schema.ClickEvent) []schema.CartEvent {
	var out []schema.CartEvent
	for _, e := range events {
		if e.EventName != schema.EventAddToCart {
			continue
		}
		ce := schema.CartEvent{
			EventID:       e.EventID,
			EventTime:     e.EventTime,
			SessionID:     e.SessionID,
			TrafficSource: e.TrafficSource,
		}
		if res := payload.DecodeDict(e.EventMetadata); res.Valid {
			if v, ok := payload.Int(res.Fields["product_id"]); ok {
				ce.ProdID = ptr(v)
			}
			if v, ok := payload.Int(res.Fields["quantity"]); ok {
				ce.Quantity = ptr(v)
			}
			if f, ok := payload.Float(res.Fields["item_price"]); ok {
				ce.ItemPrice = ptr(decimal.NewFromFloat(f).Round(2))
			}
		}
		if ce.Quantity != nil && ce.ItemPrice != nil {
			ce.ProdAmount = ptr(ce.ItemPrice.Mul(decimal.NewFromInt(*ce.Quantity)).Round(2))
		}
		out = append(out, ce)
	}
	return out
}

// CartEventsSpec is the rd_events_add_to_cart column-to-type mapping.
func CartEventsSpec(table string) warehouse.TableSpec {
	return warehouse.TableSpec{
		Name: table,
		Columns: []warehouse.ColumnDef{
			{Name: "event_id", Type: warehouse.TypeNVarCharMax},
			{Name: "event_time", Type: warehouse.TypeDateTime},
			{Name: "session_id", Type: warehouse.TypeNVarCharMax},
			{Name: "traffic_source", Type: warehouse.NVarChar(31)},
			{Name: "prod_id", Type: warehouse.TypeBigInt},
			{Name: "quantity", Type: warehouse.TypeInt},
			{Name: "item_price", Type: warehouse.Decimal(10, 2)},
			{Name: "prod_amount", Type: warehouse.Decimal(10, 2)},
		},
	}
}

// CartEventRows converts cart events to writer rows in CartEventsSpec order.
func CartEventRows(events []schema.CartEvent) [][]any {
	rows := make([][]any, len(events))
	for i, e := range events {
		rows[i] = []any{
			e.EventID,
			e.EventTime,
			e.SessionID,
			e.TrafficSource,
			opt(e.ProdID),
			opt(e.Quantity),
			opt(e.ItemPrice),
			opt(e.ProdAmount),
		}
	}
	return rows
}
