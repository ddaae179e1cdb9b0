// Package schema defines the typed row models for every destination table
// the pipeline produces. Column names and order are an external contract:
// the reporting layer and the schema-object scripts query these tables by
// name, so renaming a db tag here is a breaking change.
package schema

import (
	"time"

	"github.com/shopspring/decimal"
)

// Clickstream event names. The source enumerates exactly these nine types.
const (
	EventAddPromo   = "ADD_PROMO"
	EventAddToCart  = "ADD_TO_CART"
	EventBooking    = "BOOKING"
	EventClick      = "CLICK"
	EventHomepage   = "HOMEPAGE"
	EventItemDetail = "ITEM_DETAIL"
	EventPromoPage  = "PROMO_PAGE"
	EventScroll     = "SCROLL"
	EventSearch     = "SEARCH"
)

// EventNames lists all event types in the order the session table lays out
// its per-type columns.
var EventNames = []string{
	EventAddPromo, EventAddToCart, EventBooking, EventClick,
	EventHomepage, EventItemDetail, EventPromoPage, EventScroll, EventSearch,
}

// TerminalEvents are aggregated as a single first-occurrence timestamp
// instead of count/first/last.
var TerminalEvents = map[string]bool{
	EventAddPromo: true,
	EventBooking:  true,
}

// EngagementEvents feed the step2_time funnel checkpoint.
var EngagementEvents = []string{
	EventClick, EventScroll, EventSearch, EventItemDetail, EventPromoPage,
}

// ConversionEvents feed the step3_time funnel checkpoint.
var ConversionEvents = []string{EventAddToCart, EventAddPromo}

// Order is one purchase event, destined for rd_transactions.
// The two indicator columns are derived at transform time:
// has_free_shipping = 1 iff shipment_fee is exactly zero,
// has_promo = 1 iff promo_amount is strictly positive.
type Order struct {
	BookingID         string           `db:"booking_id"`
	SessionID         string           `db:"session_id"`
	CustomerID        *int64           `db:"customer_id"`
	CreatedAt         time.Time        `db:"created_at"`
	ShipmentDateLimit time.Time        `db:"shipment_date_limit"`
	DaysToShipment    *int64           `db:"days_to_shipment"`
	PromoFlag         *int64           `db:"promo_flag"`
	PromoAmount       *decimal.Decimal `db:"promo_amount"`
	PromoCode         *string          `db:"promo_code"`
	PaymentMethod     *string          `db:"payment_method"`
	PaymentStatus     *string          `db:"payment_status"`
	ShipmentFee       *decimal.Decimal `db:"shipment_fee"`
	TotalAmount       *decimal.Decimal `db:"total_amount"`
	HasFreeShipping   int64            `db:"has_free_shipping"`
	HasPromo          int64            `db:"has_promo"`

	// ProductMetadata carries the raw nested product-list literal for the
	// order-line stage. It is not a destination column.
	ProductMetadata string `db:"-"`
}

// OrderLine is one product within an order, destined for
// rd_transactions_prods. ProductAmount = Quantity * ItemPrice; any field the
// parsed payload element lacks stays nil.
type OrderLine struct {
	BookingID     string `db:"booking_id"`
	ProductID     *int64 `db:"product_id"`
	Quantity      *int64 `db:"quantity"`
	ItemPrice     *int64 `db:"item_price"`
	ProductAmount *int64 `db:"product_amount"`
}

// ClickEvent is one raw interaction event, destined for rd_click_stream.
// EventMetadata keeps the raw payload text; only the add-to-cart stage
// unpacks it.
type ClickEvent struct {
	EventID       string    `db:"event_id"`
	EventTime     time.Time `db:"event_time"`
	SessionID     string    `db:"session_id"`
	EventName     string    `db:"event_name"`
	EventMetadata string    `db:"event_metadata"`
	TrafficSource string    `db:"traffic_source"`
}

// CartEvent is an ADD_TO_CART clickstream event with its metadata payload
// unpacked, destined for rd_events_add_to_cart.
type CartEvent struct {
	EventID       string           `db:"event_id"`
	EventTime     time.Time        `db:"event_time"`
	SessionID     string           `db:"session_id"`
	TrafficSource string           `db:"traffic_source"`
	ProdID        *int64           `db:"prod_id"`
	Quantity      *int64           `db:"quantity"`
	ItemPrice     *decimal.Decimal `db:"item_price"`
	ProdAmount    *decimal.Decimal `db:"prod_amount"`
}

// Product is one catalog entry, destined for rd_products. The three category
// levels come from the lookup remap; rows whose composite key has no match
// keep nil categories.
type Product struct {
	ProdID         int64   `db:"prod_id"`
	ProdName       *string `db:"prod_name"`
	CategoryLevel1 *string `db:"category_level_1"`
	CategoryLevel2 *string `db:"category_level_2"`
	CategoryLevel3 *string `db:"category_level_3"`
	Gender         *string `db:"gender"`
	BaseColour     *string `db:"baseColour"`
	Season         *string `db:"season"`
	Year           *int64  `db:"year"`
	Usage          *string `db:"usage"`
}

// Customer is one customer record, destined for rd_customers.
type Customer struct {
	CustomerID    int64      `db:"customer_id"`
	Gender        *string    `db:"gender"`
	Birthdate     *time.Time `db:"birthdate"`
	DeviceType    *string    `db:"device_type"`
	DeviceVersion *string    `db:"device_version"`
	HomeLocation  *string    `db:"home_location"`
}

// TypeStats holds the per-event-type aggregate for a session. A type the
// session never produced has a nil entry, which surfaces as NULL count and
// NULL first/last times in rd_sessions (never zero rows, never zero counts).
type TypeStats struct {
	Count int64
	First time.Time
	Last  time.Time
}

// Session aggregates all clickstream events of one (session, traffic source)
// pair, destined for rd_sessions. Every timestamp is UTC-normalized.
type Session struct {
	SessionID     string `db:"session_id"`
	TrafficSource string `db:"traffic_source"`

	AddPromoTime       *time.Time `db:"ADD_PROMO_time"`
	AddToCartCnt       *int64     `db:"ADD_TO_CART_cnt"`
	AddToCartFirstTime *time.Time `db:"ADD_TO_CART_first_time"`
	AddToCartLastTime  *time.Time `db:"ADD_TO_CART_last_time"`
	BookingTime        *time.Time `db:"BOOKING_time"`
	ClickCnt           *int64     `db:"CLICK_cnt"`
	ClickFirstTime     *time.Time `db:"CLICK_first_time"`
	ClickLastTime      *time.Time `db:"CLICK_last_time"`
	HomepageCnt        *int64     `db:"HOMEPAGE_cnt"`
	HomepageFirstTime  *time.Time `db:"HOMEPAGE_first_time"`
	HomepageLastTime   *time.Time `db:"HOMEPAGE_last_time"`
	ItemDetailCnt      *int64     `db:"ITEM_DETAIL_cnt"`
	ItemDetailFirst    *time.Time `db:"ITEM_DETAIL_first_time"`
	ItemDetailLast     *time.Time `db:"ITEM_DETAIL_last_time"`
	PromoPageCnt       *int64     `db:"PROMO_PAGE_cnt"`
	PromoPageFirstTime *time.Time `db:"PROMO_PAGE_first_time"`
	PromoPageLastTime  *time.Time `db:"PROMO_PAGE_last_time"`
	ScrollCnt          *int64     `db:"SCROLL_cnt"`
	ScrollFirstTime    *time.Time `db:"SCROLL_first_time"`
	ScrollLastTime     *time.Time `db:"SCROLL_last_time"`
	SearchCnt          *int64     `db:"SEARCH_cnt"`
	SearchFirstTime    *time.Time `db:"SEARCH_first_time"`
	SearchLastTime     *time.Time `db:"SEARCH_last_time"`

	SessionEventsCnt int64      `db:"session_events_cnt"`
	SessionStartTime time.Time  `db:"session_start_time"`
	SessionEndTime   time.Time  `db:"session_end_time"`
	Step2Time        *time.Time `db:"step2_time"`
	Step3Time        *time.Time `db:"step3_time"`
}
