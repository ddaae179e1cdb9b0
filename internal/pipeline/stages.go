package pipeline

import (
	"context"
	"errors"
	"path/filepath"

	"ecomdw/internal/config"
	"ecomdw/internal/source"
	"ecomdw/internal/transform"
)

// Stage order is a contract: order lines explode the orders loaded by the
// transactions stage, and the cart-event and session stages reuse the parsed
// clickstream rather than re-reading the largest input file.
var (
	errNoOrders      = errors.New("transactions stage did not run; orders unavailable")
	errNoClickstream = errors.New("click_stream stage did not run; events unavailable")
)

// Stages builds the seven load stages against cfg's data directory and table
// names.
func Stages(cfg *config.Config, w TableWriter) []Stage {
	dataPath := func(name string) string { return filepath.Join(cfg.DataDir, name) }

	return []Stage{
		{
			Name: "transactions",
			Run: func(ctx context.Context, store *Store) (int64, error) {
				rows, err := source.ReadCSV(dataPath("transactions.csv"), source.Options{})
				if err != nil {
					return 0, err
				}
				orders, err := transform.Orders(rows)
				if err != nil {
					return 0, err
				}
				n, err := w.Replace(ctx, transform.OrdersSpec(cfg.Tables.Transactions), transform.OrderRows(orders))
				if err != nil {
					return n, err
				}
				store.Orders = orders
				store.HasOrders = true
				return n, nil
			},
		},
		{
			Name: "transactions_prods",
			Run: func(ctx context.Context, store *Store) (int64, error) {
				if !store.HasOrders {
					return 0, errNoOrders
				}
				lines := transform.OrderLines(store.Orders)
				return w.Replace(ctx, transform.OrderLinesSpec(cfg.Tables.TransactionsProds), transform.OrderLineRows(lines))
			},
		},
		{
			Name: "click_stream",
			Run: func(ctx context.Context, store *Store) (int64, error) {
				rows, err := source.ReadCSV(dataPath("click_stream.csv"), source.Options{})
				if err != nil {
					return 0, err
				}
				events, err := transform.Clickstream(rows)
				if err != nil {
					return 0, err
				}
				n, err := w.Replace(ctx, transform.ClickstreamSpec(cfg.Tables.ClickStream), transform.ClickstreamRows(events))
				if err != nil {
					return n, err
				}
				store.Clickstream = events
				store.HasClickstream = true
				return n, nil
			},
		},
		{
			Name: "events_add_to_cart",
			Run: func(ctx context.Context, store *Store) (int64, error) {
				if !store.HasClickstream {
					return 0, errNoClickstream
				}
				carts := transform.CartEvents(store.Clickstream)
				return w.Replace(ctx, transform.CartEventsSpec(cfg.Tables.EventsAddToCart), transform.CartEventRows(carts))
			},
		},
		{
			Name: "products",
			Run: func(ctx context.Context, store *Store) (int64, error) {
				lookup, err := source.ReadCategoryLookup(cfg.CategoriesFile)
				if err != nil {
					return 0, err
				}
				rows, err := source.ReadProductCSV(dataPath("product.csv"))
				if err != nil {
					return 0, err
				}
				products := transform.Products(rows, lookup)
				return w.Replace(ctx, transform.ProductsSpec(cfg.Tables.Products), transform.ProductRows(products))
			},
		},
		{
			Name: "customers",
			Run: func(ctx context.Context, store *Store) (int64, error) {
				rows, err := source.ReadCSV(dataPath("customer.csv"), source.Options{})
				if err != nil {
					return 0, err
				}
				customers, err := transform.Customers(rows)
				if err != nil {
					return 0, err
				}
				return w.Replace(ctx, transform.CustomersSpec(cfg.Tables.Customers), transform.CustomerRows(customers))
			},
		},
		{
			Name: "sessions",
			Run: func(ctx context.Context, store *Store) (int64, error) {
				if !store.HasClickstream {
					return 0, errNoClickstream
				}
				sessions := transform.Sessions(store.Clickstream)
				return w.Replace(ctx, transform.SessionsSpec(cfg.Tables.Sessions), transform.SessionRows(sessions))
			},
		},
	}
}
