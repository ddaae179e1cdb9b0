package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"ecomdw/internal/config"
	"ecomdw/internal/warehouse"
)

type writeCall struct {
	table string
	rows  [][]any
	cols  int
}

// fakeWriter records Replace calls and can be told to fail per table.
type fakeWriter struct {
	fail  map[string]error
	calls []writeCall
}

func (f *fakeWriter) Replace(_ context.Context, spec warehouse.TableSpec, rows [][]any) (int64, error) {
	if err := f.fail[spec.Name]; err != nil {
		return 0, err
	}
	f.calls = append(f.calls, writeCall{table: spec.Name, rows: rows, cols: len(spec.Columns)})
	return int64(len(rows)), nil
}

func (f *fakeWriter) tables() []string {
	var names []string
	for _, c := range f.calls {
		names = append(names, c.table)
	}
	return names
}

func TestRunner_ContinuesAfterStageFailure(t *testing.T) {
	var ran []string
	stages := []Stage{
		{Name: "a", Run: func(context.Context, *Store) (int64, error) {
			ran = append(ran, "a")
			return 5, nil
		}},
		{Name: "b", Run: func(context.Context, *Store) (int64, error) {
			ran = append(ran, "b")
			return 0, errors.New("bad export")
		}},
		{Name: "c", Run: func(context.Context, *Store) (int64, error) {
			ran = append(ran, "c")
			return 2, nil
		}},
	}

	report := NewRunner("test", nil).Run(context.Background(), stages)

	assert.Equal(t, []string{"a", "b", "c"}, ran)
	require.Len(t, report.Results, 3)
	assert.Equal(t, []string{"b"}, report.Failed())
	assert.Equal(t, int64(5), report.Results[0].Rows)
	assert.NotEmpty(t, report.RunID)
}

func TestRunner_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	report := NewRunner("test", nil).Run(ctx, []Stage{
		{Name: "a", Run: func(context.Context, *Store) (int64, error) {
			ran = true
			return 0, nil
		}},
	})

	assert.False(t, ran)
	require.Len(t, report.Results, 1)
	assert.ErrorIs(t, report.Results[0].Err, context.Canceled)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func writeLookup(t *testing.T, path string) {
	t.Helper()
	wb := excelize.NewFile()
	sheet := wb.GetSheetName(0)
	require.NoError(t, wb.SetSheetRow(sheet, "A1", &[]string{
		"original_name_concat", "masterCategory_new", "subCategory_new", "articleType_new",
	}))
	require.NoError(t, wb.SetSheetRow(sheet, "A2", &[]string{
		"Apparel-Topwear-Tshirts", "Clothing", "Tops", "T-Shirts",
	}))
	require.NoError(t, wb.SaveAs(path))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	writeFile(t, dir, "transactions.csv",
		"booking_id,session_id,customer_id,created_at,shipment_date_limit,total_amount,shipment_fee,promo_amount,product_metadata\n"+
			"B1,S1,10,2022-07-01 10:00:00,2022-07-03 00:00:00,150000,0,,\"[{'product_id': 1, 'quantity': 2, 'item_price': 100}]\"\n"+
			"B2,S2,11,2022-07-01 11:00:00,2022-07-03 00:00:00,90000,9000,5000,not a list\n")

	writeFile(t, dir, "click_stream.csv",
		"event_id,event_time,session_id,event_name,event_metadata,traffic_source\n"+
			"E1,2022-07-01 09:58:00,S1,CLICK,,WEB\n"+
			"E2,2022-07-01 09:59:00,S1,ADD_TO_CART,\"{'product_id': 1, 'quantity': 2, 'item_price': 100.0}\",WEB\n"+
			"E3,2022-07-01 12:00:00,S2,HOMEPAGE,,MOBILE\n")

	writeFile(t, dir, "product.csv",
		"id,gender,masterCategory,subCategory,articleType,baseColour,season,year,usage,productDisplayName\n"+
			"1,Men,Apparel,Topwear,Tshirts,Blue,Summer,2019,Casual,Blue Tee, extra, commas\n")

	writeFile(t, dir, "customer.csv",
		"customer_id,gender,birthdate,device_type,device_version,home_location\n"+
			"10,F,1990-05-14,mobile,ios-15,Jakarta\n"+
			"11,M,,web,,Bandung\n")

	lookupPath := filepath.Join(dir, "categories.xlsx")
	writeLookup(t, lookupPath)

	cfg, err := config.Load(filepath.Join(dir, "absent.yaml"))
	require.NoError(t, err)
	cfg.DataDir = dir
	cfg.CategoriesFile = lookupPath
	return cfg
}

func TestStages_FullRun(t *testing.T) {
	cfg := testConfig(t)
	fw := &fakeWriter{}

	report := NewRunner("test", nil).Run(context.Background(), Stages(cfg, fw))

	assert.Empty(t, report.Failed())
	assert.Equal(t, []string{
		"rd_transactions",
		"rd_transactions_prods",
		"rd_click_stream",
		"rd_events_add_to_cart",
		"rd_products",
		"rd_customers",
		"rd_sessions",
	}, fw.tables())

	byTable := map[string]writeCall{}
	for _, c := range fw.calls {
		byTable[c.table] = c
	}
	assert.Len(t, byTable["rd_transactions"].rows, 2)
	// only B1 has a well-formed product list
	assert.Len(t, byTable["rd_transactions_prods"].rows, 1)
	assert.Len(t, byTable["rd_click_stream"].rows, 3)
	assert.Len(t, byTable["rd_events_add_to_cart"].rows, 1)
	assert.Len(t, byTable["rd_products"].rows, 1)
	assert.Len(t, byTable["rd_customers"].rows, 2)
	// S1/WEB and S2/MOBILE
	assert.Len(t, byTable["rd_sessions"].rows, 2)

	for table, c := range byTable {
		for _, row := range c.rows {
			assert.Len(t, row, c.cols, "row width mismatch in %s", table)
		}
	}
}

func TestStages_DependentStagesFailFast(t *testing.T) {
	cfg := testConfig(t)
	fw := &fakeWriter{fail: map[string]error{
		"rd_transactions": errors.New("connection reset"),
		"rd_click_stream": errors.New("connection reset"),
	}}

	report := NewRunner("test", nil).Run(context.Background(), Stages(cfg, fw))

	assert.Equal(t, []string{
		"transactions", "transactions_prods",
		"click_stream", "events_add_to_cart", "sessions",
	}, report.Failed())

	// the independent stages still landed
	assert.Equal(t, []string{"rd_products", "rd_customers"}, fw.tables())

	byName := map[string]StageResult{}
	for _, res := range report.Results {
		byName[res.Name] = res
	}
	assert.ErrorIs(t, byName["transactions_prods"].Err, errNoOrders)
	assert.ErrorIs(t, byName["sessions"].Err, errNoClickstream)
}

func TestStages_MissingInputFileFailsOnlyThatStage(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.Remove(filepath.Join(cfg.DataDir, "customer.csv")))
	fw := &fakeWriter{}

	report := NewRunner("test", nil).Run(context.Background(), Stages(cfg, fw))

	assert.Equal(t, []string{"customers"}, report.Failed())
	assert.Contains(t, fw.tables(), "rd_sessions")
	assert.NotContains(t, fw.tables(), "rd_customers")
}
