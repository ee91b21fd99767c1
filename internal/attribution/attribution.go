// Package attribution applies the per-campaign revenue model. Cost is
// incurred on the ad side, conversions are credited on the funnel side; the
// rules here keep each source's rows self-consistent without counting the
// same economic event twice.
package attribution

import (
	"github.com/allattain/opsdash/internal/config"
	"github.com/allattain/opsdash/internal/models"
)

type Model struct {
	settings map[string]config.Setting
}

func NewModel(settings map[string]config.Setting) *Model {
	return &Model{settings: settings}
}

// Row computes revenue and profit for one canonical row. Campaigns without a
// setting yield 0/0.
//
// Performance mode: funnel conversions are the revenue event, so Meta rows
// carry no revenue (profit is the spend, negative) and Beyond rows carry
// cv × unit price. Budget mode: the fee on spend is revenue for both sources;
// on the Meta side the fee itself is the margin, on the Beyond side the
// funnel's own cost still subtracts.
func (m *Model) Row(campaign string, src models.Source, cost, cv float64) (revenue, profit float64) {
	set, ok := m.settings[campaign]
	if !ok {
		return 0, 0
	}
	switch set.Mode {
	case config.ModePerformance:
		if src == models.SourceMeta {
			return 0, -cost
		}
		revenue = cv * set.UnitPrice
		return revenue, revenue - cost
	case config.ModeBudget:
		revenue = cost * set.FeeRate
		if src == models.SourceMeta {
			return revenue, revenue
		}
		return revenue, revenue - cost
	default:
		return 0, 0
	}
}

// CampaignRevenue computes aggregate revenue for one campaign from summed
// funnel conversions and the cost basis of the requested view: performance
// campaigns earn cv × unit price, budget campaigns earn cost × fee rate.
func (m *Model) CampaignRevenue(campaign string, cv, cost float64) float64 {
	set, ok := m.settings[campaign]
	if !ok {
		return 0
	}
	if set.Mode == config.ModePerformance {
		return cv * set.UnitPrice
	}
	return cost * set.FeeRate
}

// Configured reports whether the campaign has an attribution setting.
func (m *Model) Configured(campaign string) bool {
	_, ok := m.settings[campaign]
	return ok
}
