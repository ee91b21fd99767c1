// Package rollup filters the canonical table by window, dimension and source
// restriction, groups by campaign and derives the full metric catalogue from
// the aggregated sums. Ratios are never averaged from per-row values.
package rollup

import (
	"sort"
	"time"

	"github.com/allattain/opsdash/internal/attribution"
	"github.com/allattain/opsdash/internal/models"
	"github.com/allattain/opsdash/internal/utils"
)

type View string

const (
	// ViewTotal keeps both sources: ad-side fields come from Meta rows,
	// funnel conversions from Beyond rows.
	ViewTotal  View = "total"
	ViewMeta   View = "meta"
	ViewBeyond View = "beyond"
)

func ParseView(s string) (View, bool) {
	switch View(s) {
	case "", ViewTotal:
		return ViewTotal, true
	case ViewMeta:
		return ViewMeta, true
	case ViewBeyond:
		return ViewBeyond, true
	}
	return "", false
}

// Query selects a window, optional exact campaign/creative filters ("" or
// "All" match everything) and a source restriction.
type Query struct {
	Window   Window
	Campaign string
	Creative string
	View     View
}

type Result struct {
	From      time.Time
	To        time.Time
	View      View
	Campaigns []models.AggregateRow
	Total     models.AggregateRow
}

type Engine struct {
	model *attribution.Model
}

func NewEngine(model *attribution.Model) *Engine { return &Engine{model: model} }

// sums carries per-campaign base-field totals split by source, so each view
// can pick its cost/click/conversion basis without re-reading rows.
type sums struct {
	adCost       float64
	funnelCost   float64
	imps         float64
	adClicks     float64
	beyondClicks float64
	mcv          float64
	cv           float64
	pv           float64
	fv           float64
	sv           float64
	rowRevenue   float64
	rowProfit    float64
}

// Rollup is a pure read over the snapshot: repeated calls with the same rows
// are idempotent and safe to run concurrently.
func (e *Engine) Rollup(rows []models.Row, q Query, now time.Time) Result {
	from, to := q.Window.Bounds(now)
	groups := map[string]*sums{}

	for _, r := range rows {
		if r.Date.Before(from) || r.Date.After(to) {
			continue
		}
		if !matchAll(q.Campaign) && r.Campaign != q.Campaign {
			continue
		}
		if !matchAll(q.Creative) && r.Creative != q.Creative {
			continue
		}
		if q.View == ViewMeta && r.Source != models.SourceMeta {
			continue
		}
		if q.View == ViewBeyond && r.Source != models.SourceBeyond {
			continue
		}
		g := groups[r.Campaign]
		if g == nil {
			g = &sums{}
			groups[r.Campaign] = g
		}
		switch r.Source {
		case models.SourceMeta:
			g.adCost += r.Cost
			g.imps += r.Impressions
			g.adClicks += r.Clicks
			g.mcv += r.MCV
		case models.SourceBeyond:
			g.funnelCost += r.Cost
			g.beyondClicks += r.Clicks
			g.cv += r.CV
			g.pv += r.PV
			g.fv += r.FVExit
			g.sv += r.SVExit
		}
		g.rowRevenue += r.Revenue
		g.rowProfit += r.Profit
	}

	names := make([]string, 0, len(groups))
	for n := range groups {
		names = append(names, n)
	}
	sort.Strings(names)

	res := Result{From: from, To: to, View: q.View}
	var total sums
	for _, n := range names {
		g := groups[n]
		agg := e.aggregate(n, g, q.View)
		res.Campaigns = append(res.Campaigns, agg)

		total.adCost += g.adCost
		total.funnelCost += g.funnelCost
		total.imps += g.imps
		total.adClicks += g.adClicks
		total.beyondClicks += g.beyondClicks
		total.mcv += g.mcv
		total.cv += g.cv
		total.pv += g.pv
		total.fv += g.fv
		total.sv += g.sv
		// revenue dispatch is per campaign, so the grand total sums the
		// per-campaign results instead of re-dispatching on mixed modes
		total.rowRevenue += agg.Revenue
		total.rowProfit += agg.Profit
	}

	t := baseRow("Total", &total, q.View)
	t.Revenue = total.rowRevenue
	t.Profit = total.rowProfit
	derive(&t)
	res.Total = t
	return res
}

func (e *Engine) aggregate(campaign string, g *sums, view View) models.AggregateRow {
	a := baseRow(campaign, g, view)
	switch view {
	case ViewBeyond:
		a.Revenue = e.model.CampaignRevenue(campaign, g.cv, g.funnelCost)
		a.Profit = a.Revenue - a.Cost
	case ViewMeta:
		// ad-side rows keep their row-level semantics: no revenue for
		// performance campaigns, fee-as-margin for budget ones
		a.Revenue = g.rowRevenue
		a.Profit = g.rowProfit
	default:
		a.Revenue = e.model.CampaignRevenue(campaign, g.cv, g.adCost)
		a.Profit = a.Revenue - a.Cost
	}
	derive(&a)
	return a
}

// baseRow picks the cost/click/conversion basis for the requested view.
func baseRow(campaign string, g *sums, view View) models.AggregateRow {
	a := models.AggregateRow{
		Campaign:     campaign,
		MCV:          g.mcv,
		BeyondClicks: g.beyondClicks,
		Impressions:  g.imps,
		PV:           g.pv,
		FVExit:       g.fv,
		SVExit:       g.sv,
	}
	switch view {
	case ViewBeyond:
		a.Cost = g.funnelCost
		a.Clicks = g.beyondClicks
		a.CV = g.cv
	case ViewMeta:
		a.Cost = g.adCost
		a.Clicks = g.adClicks
		a.CV = g.mcv
	default:
		a.Cost = g.adCost
		a.Clicks = g.adClicks
		a.CV = g.cv
	}
	return a
}

func derive(a *models.AggregateRow) {
	a.CPA = utils.SafeDiv(a.Cost, a.CV)
	a.CPC = utils.SafeDiv(a.Cost, a.Clicks)
	a.CPM = utils.SafeDiv(a.Cost, a.Impressions) * 1000
	a.CTR = utils.SafeDiv(a.Clicks, a.Impressions) * 100
	a.MCVR = utils.SafeDiv(a.MCV, a.Clicks) * 100
	a.CVR = utils.SafeDiv(a.CV, a.BeyondClicks) * 100
	a.ROAS = utils.SafeDiv(a.Revenue, a.Cost) * 100
	a.FVExitRate = utils.SafeDiv(a.FVExit, a.PV) * 100
	a.SVExitRate = utils.SafeDiv(a.SVExit, a.PV-a.FVExit) * 100
	a.TotalExitRate = utils.SafeDiv(a.FVExit+a.SVExit, a.PV) * 100
}

func matchAll(s string) bool { return s == "" || s == "All" }
