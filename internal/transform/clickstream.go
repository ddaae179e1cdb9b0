package transform

import (
	"fmt"

	"ecomdw/internal/schema"
	"ecomdw/internal/warehouse"
)

// Clickstream reshapes raw clickstream rows into ClickEvent entities with
// event_time normalized to UTC and truncated to whole seconds. The raw
// metadata text and event name are carried along for the cart-event and
// session stages. An unparseable event_time fails the stage.
func Clickstream(rows []map[string]string) ([]schema.ClickEvent, error) {
	out := make([]schema.ClickEvent, 0, len(rows))
	for i, row := range rows {
		ts, err := parseTime(row["event_time"])
		if err != nil {
			return nil, fmt.Errorf("click_stream row %d: event_time: %w", i+1, err)
		}
		out = append(out, schema.ClickEvent{
			EventID:       row["event_id"],
			EventTime:     floorSecond(ts),
			SessionID:     row["session_id"],
			EventName:     row["event_name"],
			EventMetadata: row["event_metadata"],
			TrafficSource: row["traffic_source"],
		})
	}
	return out, nil
}

// ClickstreamSpec is the rd_click_stream column-to-type mapping.
func ClickstreamSpec(table string) warehouse.TableSpec {
	return warehouse.TableSpec{
		Name: table,
		Columns: []warehouse.ColumnDef{
			{Name: "event_id", Type: warehouse.NVarChar(36)},
			{Name: "event_time", Type: warehouse.TypeDateTime},
			{Name: "session_id", Type: warehouse.NVarChar(36)},
			{Name: "event_name", Type: warehouse.NVarChar(31)},
			{Name: "event_metadata", Type: warehouse.TypeNVarCharMax},
			{Name: "traffic_source", Type: warehouse.NVarChar(31)},
		},
	}
}

// ClickstreamRows converts events to writer rows in ClickstreamSpec order.
func ClickstreamRows(events []schema.ClickEvent) [][]any {
	rows := make([][]any, len(events))
	for i, e := range events {
		rows[i] = []any{
			e.EventID,
			e.EventTime,
			e.SessionID,
			e.EventName,
			e.EventMetadata,
			e.TrafficSource,
		}
	}
	return rows
}
