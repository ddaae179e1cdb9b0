package transform

import (
	"sort"
	"time"

	"ecomdw/internal/schema"
	"ecomdw/internal/warehouse"
)

type sessionKey struct {
	sessionID     string
	trafficSource string
}

// baseAgg holds the session-wide aggregates computed across all traffic
// sources of one session id.
type baseAgg struct {
	eventsCnt int64
	start     time.Time
	end       time.Time
	step2     *time.Time
	step3     *time.Time
}

// Sessions aggregates clickstream events into one row per
// (session_id, traffic_source) pair. Per-type counts and first/last times are
// computed within the pair; session_events_cnt, session bounds and the funnel
// checkpoints are computed across the whole session id and joined back on.
// A type the pair never produced stays NULL throughout.
func Sessions(events []schema.ClickEvent) []schema.Session {
	perType := make(map[sessionKey]map[string]*schema.TypeStats)
	base := make(map[string]*baseAgg)

	step2 := make(map[string]bool, len(schema.EngagementEvents))
	for _, name := range schema.EngagementEvents {
		step2[name] = true
	}
	step3 := make(map[string]bool, len(schema.ConversionEvents))
	for _, name := range schema.ConversionEvents {
		step3[name] = true
	}

	for _, ev := range events {
		key := sessionKey{ev.SessionID, ev.TrafficSource}
		stats := perType[key]
		if stats == nil {
			stats = make(map[string]*schema.TypeStats)
			perType[key] = stats
		}
		st := stats[ev.EventName]
		if st == nil {
			st = &schema.TypeStats{First: ev.EventTime, Last: ev.EventTime}
			stats[ev.EventName] = st
		}
		st.Count++
		if ev.EventTime.Before(st.First) {
			st.First = ev.EventTime
		}
		if ev.EventTime.After(st.Last) {
			st.Last = ev.EventTime
		}

		b := base[ev.SessionID]
		if b == nil {
			b = &baseAgg{start: ev.EventTime, end: ev.EventTime}
			base[ev.SessionID] = b
		}
		b.eventsCnt++
		if ev.EventTime.Before(b.start) {
			b.start = ev.EventTime
		}
		if ev.EventTime.After(b.end) {
			b.end = ev.EventTime
		}
		if step2[ev.EventName] && (b.step2 == nil || ev.EventTime.Before(*b.step2)) {
			b.step2 = ptr(ev.EventTime)
		}
		if step3[ev.EventName] && (b.step3 == nil || ev.EventTime.Before(*b.step3)) {
			b.step3 = ptr(ev.EventTime)
		}
	}

	out := make([]schema.Session, 0, len(perType))
	for key, stats := range perType {
		b := base[key.sessionID]
		s := schema.Session{
			SessionID:        key.sessionID,
			TrafficSource:    key.trafficSource,
			SessionEventsCnt: b.eventsCnt,
			SessionStartTime: b.start,
			SessionEndTime:   b.end,
			Step2Time:        b.step2,
			Step3Time:        b.step3,
		}
		fillTypeStats(&s, stats)
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SessionID != out[j].SessionID {
			return out[i].SessionID < out[j].SessionID
		}
		return out[i].TrafficSource < out[j].TrafficSource
	})
	return out
}

// fillTypeStats maps per-type aggregates onto the session's typed columns.
// Terminal types keep only their first occurrence.
func fillTypeStats(s *schema.Session, stats map[string]*schema.TypeStats) {
	for name, st := range stats {
		switch name {
		case schema.EventAddPromo:
			s.AddPromoTime = ptr(st.First)
		case schema.EventBooking:
			s.BookingTime = ptr(st.First)
		case schema.EventAddToCart:
			s.AddToCartCnt = ptr(st.Count)
			s.AddToCartFirstTime = ptr(st.First)
			s.AddToCartLastTime = ptr(st.Last)
		case schema.EventClick:
			s.ClickCnt = ptr(st.Count)
			s.ClickFirstTime = ptr(st.First)
			s.ClickLastTime = ptr(st.Last)
		case schema.EventHomepage:
			s.HomepageCnt = ptr(st.Count)
			s.HomepageFirstTime = ptr(st.First)
			s.HomepageLastTime = ptr(st.Last)
		case schema.EventItemDetail:
			s.ItemDetailCnt = ptr(st.Count)
			s.ItemDetailFirst = ptr(st.First)
			s.ItemDetailLast = ptr(st.Last)
		case schema.EventPromoPage:
			s.PromoPageCnt = ptr(st.Count)
			s.PromoPageFirstTime = ptr(st.First)
			s.PromoPageLastTime = ptr(st.Last)
		case schema.EventScroll:
			s.ScrollCnt = ptr(st.Count)
			s.ScrollFirstTime = ptr(st.First)
			s.ScrollLastTime = ptr(st.Last)
		case schema.EventSearch:
			s.SearchCnt = ptr(st.Count)
			s.SearchFirstTime = ptr(st.First)
			s.SearchLastTime = ptr(st.Last)
		}
	}
}

// SessionsSpec is the rd_sessions column-to-type mapping. Per-type columns
// follow schema.EventNames order; terminal events collapse to a single
// _time column.
func SessionsSpec(table string) warehouse.TableSpec {
	cols := []warehouse.ColumnDef{
		{Name: "session_id", Type: warehouse.TypeNVarCharMax},
		{Name: "traffic_source", Type: warehouse.NVarChar(31)},
	}
	for _, name := range schema.EventNames {
		if schema.TerminalEvents[name] {
			cols = append(cols, warehouse.ColumnDef{Name: name + "_time", Type: warehouse.TypeDateTime})
			continue
		}
		cols = append(cols,
			warehouse.ColumnDef{Name: name + "_cnt", Type: warehouse.TypeInt},
			warehouse.ColumnDef{Name: name + "_first_time", Type: warehouse.TypeDateTime},
			warehouse.ColumnDef{Name: name + "_last_time", Type: warehouse.TypeDateTime})
	}
	cols = append(cols,
		warehouse.ColumnDef{Name: "session_events_cnt", Type: warehouse.TypeInt},
		warehouse.ColumnDef{Name: "session_start_time", Type: warehouse.TypeDateTime},
		warehouse.ColumnDef{Name: "session_end_time", Type: warehouse.TypeDateTime},
		warehouse.ColumnDef{Name: "step2_time", Type: warehouse.TypeDateTime},
		warehouse.ColumnDef{Name: "step3_time", Type: warehouse.TypeDateTime})
	return warehouse.TableSpec{Name: table, Columns: cols}
}

// SessionRows converts sessions to writer rows in SessionsSpec order.
func SessionRows(sessions []schema.Session) [][]any {
	rows := make([][]any, len(sessions))
	for i, s := range sessions {
		rows[i] = []any{
			s.SessionID,
			s.TrafficSource,
			opt(s.AddPromoTime),
			opt(s.AddToCartCnt),
			opt(s.AddToCartFirstTime),
			opt(s.AddToCartLastTime),
			opt(s.BookingTime),
			opt(s.ClickCnt),
			opt(s.ClickFirstTime),
			opt(s.ClickLastTime),
			opt(s.HomepageCnt),
			opt(s.HomepageFirstTime),
			opt(s.HomepageLastTime),
			opt(s.ItemDetailCnt),
			opt(s.ItemDetailFirst),
			opt(s.ItemDetailLast),
			opt(s.PromoPageCnt),
			opt(s.PromoPageFirstTime),
			opt(s.PromoPageLastTime),
			opt(s.ScrollCnt),
			opt(s.ScrollFirstTime),
			opt(s.ScrollLastTime),
			opt(s.SearchCnt),
			opt(s.SearchFirstTime),
			opt(s.SearchLastTime),
			s.SessionEventsCnt,
			s.SessionStartTime,
			s.SessionEndTime,
			opt(s.Step2Time),
			opt(s.Step3Time),
		}
	}
	return rows
}
