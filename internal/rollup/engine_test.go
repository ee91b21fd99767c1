package rollup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allattain/opsdash/internal/attribution"
	"github.com/allattain/opsdash/internal/config"
	"github.com/allattain/opsdash/internal/models"
)

var now = time.Date(2025, 8, 10, 13, 30, 0, 0, time.UTC)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func testEngine() *Engine {
	return NewEngine(attribution.NewModel(map[string]config.Setting{
		"SAC_成果": {Mode: config.ModePerformance, UnitPrice: 90000},
		"SAC_予算": {Mode: config.ModeBudget, FeeRate: 0.2},
	}))
}

func metaRow(d, campaign, creative string, cost, imps, clicks, mcv float64) models.Row {
	return models.Row{
		Date: day(d), Source: models.SourceMeta, Campaign: campaign, Creative: creative,
		Cost: cost, Impressions: imps, Clicks: clicks, MCV: mcv, CV: mcv,
	}
}

func beyondRow(d, campaign, creative string, cost, pv, clicks, cv float64) models.Row {
	return models.Row{
		Date: day(d), Source: models.SourceBeyond, Campaign: campaign, Creative: creative,
		Cost: cost, PV: pv, Clicks: clicks, CV: cv,
	}
}

// the worked example: one ad-side row and one funnel-side row of a
// performance campaign priced at 90000 per conversion
func exampleRows(d string) []models.Row {
	m := metaRow(d, "SAC_成果", "cr-1", 10000, 1000, 50, 5)
	m.Revenue, m.Profit = 0, -10000
	b := beyondRow(d, "SAC_成果", "utm_creative=cr-1", 2000, 300, 40, 2)
	b.Revenue, b.Profit = 180000, 178000
	return []models.Row{m, b}
}

func TestRollupTotalView(t *testing.T) {
	rows := exampleRows("2025-08-09")
	res := testEngine().Rollup(rows, Query{Window: Window{Kind: WindowLast7}, View: ViewTotal}, now)
	require.Len(t, res.Campaigns, 1)

	a := res.Campaigns[0]
	assert.Equal(t, "SAC_成果", a.Campaign)
	assert.Equal(t, 180000.0, a.Revenue)
	assert.Equal(t, 10000.0, a.Cost) // ad-side spend
	assert.Equal(t, 170000.0, a.Profit)
	assert.Equal(t, 2.0, a.CV) // funnel conversions, not ad results
	assert.Equal(t, 5.0, a.MCV)
	assert.Equal(t, 50.0, a.Clicks)
	assert.Equal(t, 5000.0, a.CPA)
	assert.Equal(t, 200.0, a.CPC)
	assert.Equal(t, 10000.0, a.CPM)
	assert.InDelta(t, 5.0, a.CTR, 1e-9)
	assert.InDelta(t, 10.0, a.MCVR, 1e-9)
	assert.InDelta(t, 5.0, a.CVR, 1e-9) // 2 conversions over 40 LP transitions
	assert.Equal(t, 1800.0, a.ROAS)

	assert.Equal(t, a.Revenue, res.Total.Revenue)
	assert.Equal(t, a.Profit, res.Total.Profit)
}

func TestRollupMetaView(t *testing.T) {
	rows := exampleRows("2025-08-09")
	res := testEngine().Rollup(rows, Query{Window: Window{Kind: WindowLast7}, View: ViewMeta}, now)
	require.Len(t, res.Campaigns, 1)

	a := res.Campaigns[0]
	assert.Equal(t, 0.0, a.Revenue)
	assert.Equal(t, 10000.0, a.Cost)
	assert.Equal(t, -10000.0, a.Profit) // ad-side loss of the performance model
	assert.Equal(t, 5.0, a.CV)          // results count as CV in this view
	assert.Equal(t, 2000.0, a.CPA)
	assert.InDelta(t, 5.0, a.CTR, 1e-9)
	assert.Equal(t, 0.0, a.PV)
}

func TestRollupBeyondView(t *testing.T) {
	rows := exampleRows("2025-08-09")
	rows[1].PV = 300
	rows[1].FVExit = 30
	rows[1].SVExit = 27
	res := testEngine().Rollup(rows, Query{Window: Window{Kind: WindowLast7}, View: ViewBeyond}, now)
	require.Len(t, res.Campaigns, 1)

	a := res.Campaigns[0]
	assert.Equal(t, 180000.0, a.Revenue)
	assert.Equal(t, 2000.0, a.Cost) // funnel-side cost basis
	assert.Equal(t, 178000.0, a.Profit)
	assert.Equal(t, 1000.0, a.CPA) // 2000 / 2
	assert.Equal(t, 50.0, a.CPC)
	assert.InDelta(t, 5.0, a.CVR, 1e-9)
	assert.InDelta(t, 10.0, a.FVExitRate, 1e-9)    // 30 / 300
	assert.InDelta(t, 10.0, a.SVExitRate, 1e-9)    // 27 / (300 - 30)
	assert.InDelta(t, 19.0, a.TotalExitRate, 1e-9) // 57 / 300
}

func TestRollupWindowInclusivity(t *testing.T) {
	rows := []models.Row{
		metaRow("2025-08-10", "SAC_成果", "", 1, 0, 0, 0),
		metaRow("2025-08-04", "SAC_成果", "", 10, 0, 0, 0),
		metaRow("2025-08-03", "SAC_成果", "", 100, 0, 0, 0),
	}
	eng := testEngine()

	res := eng.Rollup(rows, Query{Window: Window{Kind: WindowLast7}, View: ViewTotal}, now)
	require.Len(t, res.Campaigns, 1)
	// today and today-6 in, today-7 out
	assert.Equal(t, 11.0, res.Campaigns[0].Cost)

	res = eng.Rollup(rows, Query{Window: Window{Kind: WindowLast3}, View: ViewTotal}, now)
	assert.Equal(t, 1.0, res.Campaigns[0].Cost)

	res = eng.Rollup(rows, Query{Window: Window{Kind: WindowToday}, View: ViewTotal}, now)
	assert.Equal(t, 1.0, res.Campaigns[0].Cost)

	res = eng.Rollup(rows, Query{Window: Window{Kind: WindowYesterday}, View: ViewTotal}, now)
	assert.Empty(t, res.Campaigns)
	assert.Equal(t, 0.0, res.Total.Cost)
}

func TestRollupCustomWindow(t *testing.T) {
	rows := []models.Row{
		metaRow("2025-08-01", "SAC_成果", "", 1, 0, 0, 0),
		metaRow("2025-08-05", "SAC_成果", "", 10, 0, 0, 0),
		metaRow("2025-08-09", "SAC_成果", "", 100, 0, 0, 0),
	}
	w, err := ParseWindow("custom", "2025-08-01", "2025-08-05")
	require.NoError(t, err)
	res := testEngine().Rollup(rows, Query{Window: w, View: ViewTotal}, now)
	assert.Equal(t, 11.0, res.Campaigns[0].Cost)
}

func TestRollupFilters(t *testing.T) {
	rows := []models.Row{
		metaRow("2025-08-09", "SAC_成果", "cr-1", 1, 0, 0, 0),
		metaRow("2025-08-09", "SAC_成果", "cr-2", 10, 0, 0, 0),
		metaRow("2025-08-09", "SAC_予算", "cr-1", 100, 0, 0, 0),
	}
	eng := testEngine()

	res := eng.Rollup(rows, Query{Window: Window{Kind: WindowLast7}, Campaign: "SAC_成果", View: ViewTotal}, now)
	require.Len(t, res.Campaigns, 1)
	assert.Equal(t, 11.0, res.Campaigns[0].Cost)

	res = eng.Rollup(rows, Query{Window: Window{Kind: WindowLast7}, Creative: "cr-1", View: ViewTotal}, now)
	require.Len(t, res.Campaigns, 2)
	assert.Equal(t, 101.0, res.Total.Cost)

	// "All" behaves like no filter
	res = eng.Rollup(rows, Query{Window: Window{Kind: WindowLast7}, Campaign: "All", View: ViewTotal}, now)
	require.Len(t, res.Campaigns, 2)
}

func TestRollupMixedModeTotals(t *testing.T) {
	rows := []models.Row{
		metaRow("2025-08-09", "SAC_成果", "", 10000, 0, 0, 0),
		beyondRow("2025-08-09", "SAC_成果", "utm_creative=a", 2000, 0, 40, 2),
		metaRow("2025-08-09", "SAC_予算", "", 5000, 0, 0, 0),
	}
	res := testEngine().Rollup(rows, Query{Window: Window{Kind: WindowLast7}, View: ViewTotal}, now)
	require.Len(t, res.Campaigns, 2)

	// performance: 2 × 90000; budget: 5000 × 0.2
	assert.Equal(t, 181000.0, res.Total.Revenue)
	assert.Equal(t, 15000.0, res.Total.Cost)
	assert.Equal(t, 166000.0, res.Total.Profit)
}

func TestRollupUnconfiguredCampaignZeroRevenue(t *testing.T) {
	rows := []models.Row{
		metaRow("2025-08-09", "mystery", "", 5000, 100, 10, 1),
	}
	res := testEngine().Rollup(rows, Query{Window: Window{Kind: WindowLast7}, View: ViewTotal}, now)
	require.Len(t, res.Campaigns, 1)
	assert.Equal(t, 0.0, res.Campaigns[0].Revenue)
	assert.Equal(t, -5000.0, res.Campaigns[0].Profit)
}

func TestRollupZeroDenominators(t *testing.T) {
	rows := []models.Row{
		metaRow("2025-08-09", "SAC_成果", "", 0, 0, 0, 0),
	}
	res := testEngine().Rollup(rows, Query{Window: Window{Kind: WindowLast7}, View: ViewTotal}, now)
	require.Len(t, res.Campaigns, 1)

	a := res.Campaigns[0]
	for _, v := range []float64{a.CPA, a.CPC, a.CPM, a.CTR, a.MCVR, a.CVR, a.ROAS, a.FVExitRate, a.SVExitRate, a.TotalExitRate} {
		assert.Equal(t, 0.0, v)
	}
}

func TestRollupEmptyDataset(t *testing.T) {
	res := testEngine().Rollup(nil, Query{Window: Window{Kind: WindowToday}, View: ViewTotal}, now)
	assert.Empty(t, res.Campaigns)
	assert.Equal(t, "Total", res.Total.Campaign)
}

func TestWindowBounds(t *testing.T) {
	cases := []struct {
		kind     WindowKind
		from, to string
	}{
		{WindowToday, "2025-08-10", "2025-08-10"},
		{WindowYesterday, "2025-08-09", "2025-08-09"},
		{WindowLast3, "2025-08-08", "2025-08-10"},
		{WindowLast7, "2025-08-04", "2025-08-10"},
	}
	for _, c := range cases {
		from, to := Window{Kind: c.kind}.Bounds(now)
		assert.Equal(t, day(c.from), from, string(c.kind))
		assert.Equal(t, day(c.to), to, string(c.kind))
	}
}

func TestParseWindow(t *testing.T) {
	w, err := ParseWindow("", "", "")
	require.NoError(t, err)
	assert.Equal(t, WindowToday, w.Kind)

	_, err = ParseWindow("custom", "2025-08-01", "nope")
	assert.Error(t, err)

	_, err = ParseWindow("custom", "2025-08-05", "2025-08-01")
	assert.Error(t, err)

	_, err = ParseWindow("fortnight", "", "")
	assert.Error(t, err)
}
