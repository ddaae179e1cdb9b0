package transform

import (
	"fmt"

	"ecomdw/internal/schema"
	"ecomdw/internal/warehouse"
)

// Orders reshapes raw transaction rows into Order entities. Both timestamps
// are truncated to whole seconds, and the two indicator columns are derived:
// has_free_shipping = 1 iff shipment_fee is exactly zero, has_promo = 1 iff
// promo_amount is strictly positive. An unparseable creation or shipment
// timestamp fails the stage; every other field degrades to NULL.
func Orders(rows []map[string]string) ([]schema.Order, error) {
	out := make([]schema.Order, 0, len(rows))
	for i, row := range rows {
		createdAt, err := parseTime(row["created_at"])
		if err != nil {
			return nil, fmt.Errorf("transactions row %d: created_at: %w", i+1, err)
		}
		limit, err := parseTime(row["shipment_date_limit"])
		if err != nil {
			return nil, fmt.Errorf("transactions row %d: shipment_date_limit: %w", i+1, err)
		}

		o := schema.Order{
			BookingID:         row["booking_id"],
			SessionID:         row["session_id"],
			CustomerID:        optInt(row["customer_id"]),
			CreatedAt:         floorSecond(createdAt),
			ShipmentDateLimit: floorSecond(limit),
			DaysToShipment:    optInt(row["days_to_shipment"]),
			PromoFlag:         optInt(row["promo_flag"]),
			PromoAmount:       optDecimal(row["promo_amount"]),
			PromoCode:         optString(row["promo_code"]),
			PaymentMethod:     optString(row["payment_method"]),
			PaymentStatus:     optString(row["payment_status"]),
			ShipmentFee:       optDecimal(row["shipment_fee"]),
			TotalAmount:       optDecimal(row["total_amount"]),
			ProductMetadata:   row["product_metadata"],
		}
		if o.ShipmentFee != nil && o.ShipmentFee.IsZero() {
			o.HasFreeShipping = 1
		}
		if o.PromoAmount != nil && o.PromoAmount.IsPositive() {
			o.HasPromo = 1
		}
		out = append(out, o)
	}
	return out, nil
}

// OrdersSpec is the rd_transactions column-to-type mapping.
func OrdersSpec(table string) warehouse.TableSpec {
	return warehouse.TableSpec{
		Name: table,
		Columns: []warehouse.ColumnDef{
			{Name: "booking_id", Type: warehouse.TypeNVarCharMax},
			{Name: "session_id", Type: warehouse.TypeNVarCharMax},
			{Name: "customer_id", Type: warehouse.TypeBigInt},
			{Name: "created_at", Type: warehouse.TypeDateTime},
			{Name: "shipment_date_limit", Type: warehouse.TypeDateTime},
			{Name: "days_to_shipment", Type: warehouse.TypeInt},
			{Name: "promo_flag", Type: warehouse.TypeInt},
			{Name: "promo_amount", Type: warehouse.Decimal(18, 2)},
			{Name: "promo_code", Type: warehouse.TypeNVarCharMax},
			{Name: "payment_method", Type: warehouse.TypeNVarCharMax},
			{Name: "payment_status", Type: warehouse.TypeNVarCharMax},
			{Name: "shipment_fee", Type: warehouse.Decimal(18, 2)},
			{Name: "total_amount", Type: warehouse.Decimal(18, 2)},
			{Name: "has_free_shipping", Type: warehouse.TypeInt},
			{Name: "has_promo", Type: warehouse.TypeInt},
		},
	}
}

// OrderRows converts orders to writer rows in OrdersSpec column order.
func OrderRows(orders []schema.Order) [][]any {
	rows := make([][]any, len(orders))
	for i, o := range orders {
		rows[i] = []any{
			o.BookingID,
			o.SessionID,
			opt(o.CustomerID),
			o.CreatedAt,
			o.ShipmentDateLimit,
			opt(o.DaysToShipment),
			opt(o.PromoFlag),
			opt(o.PromoAmount),
			opt(o.PromoCode),
			opt(o.PaymentMethod),
			opt(o.PaymentStatus),
			opt(o.ShipmentFee),
			opt(o.TotalAmount),
			o.HasFreeShipping,
			o.HasPromo,
		}
	}
	return rows
}
