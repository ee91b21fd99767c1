package normalize

import (
	"strings"
	"time"

	"github.com/allattain/opsdash/internal/attribution"
	"github.com/allattain/opsdash/internal/config"
	"github.com/allattain/opsdash/internal/models"
)

var metaRequired = []string{"Day", "Account Name"}

// MetaRows normalizes the ad-platform feed. History is authoritative for
// days strictly before today, live only for today itself, so a day present
// in both partitions is never counted twice. Account names resolve to
// campaigns by longest prefix match; unmatched accounts are out of scope and
// dropped.
func MetaRows(live, history models.Table, camp config.Campaigns, model *attribution.Model, today time.Time, sink *Sink) []models.Row {
	today = DayStart(today)
	var rows []models.Row

	parts := []struct {
		t     models.Table
		live  bool
		label string
	}{
		{history, false, "Meta_History"},
		{live, true, "Meta_Live"},
	}
	for _, p := range parts {
		t := checkColumns(p.t, metaRequired, models.SourceMeta, p.label, sink)
		dayIdx := t.Col("Day")
		accIdx := t.Col("Account Name")
		adIdx := t.Col("Ad Name")
		costIdx := t.Col("Amount Spent")
		impIdx := t.Col("Impressions")
		clkIdx := t.Col("Link Clicks")
		resIdx := t.Col("Results")

		for _, rec := range t.Records {
			d, ok := parseDay(t.Field(rec, dayIdx))
			if !ok {
				continue
			}
			if p.live && !d.Equal(today) {
				continue
			}
			if !p.live && !d.Before(today) {
				continue
			}
			campaign := resolvePrefix(camp.AccountPrefixes, strings.TrimSpace(t.Field(rec, accIdx)))
			if campaign == "" {
				continue
			}
			mcv := 0.0
			if resIdx >= 0 {
				mcv = num(t.Field(rec, resIdx))
			}
			row := models.Row{
				Date:        d,
				Source:      models.SourceMeta,
				Campaign:    campaign,
				Creative:    strings.TrimSpace(t.Field(rec, adIdx)),
				Cost:        num(t.Field(rec, costIdx)),
				Impressions: num(t.Field(rec, impIdx)),
				Clicks:      num(t.Field(rec, clkIdx)),
				MCV:         mcv,
				// the Meta-restricted view treats results as its CV
				CV: mcv,
			}
			row.Revenue, row.Profit = model.Row(campaign, models.SourceMeta, row.Cost, row.CV)
			rows = append(rows, row)
		}
	}
	return rows
}

// resolvePrefix picks the longest matching prefix. Two distinct prefixes of
// equal length cannot both match the same account, so the result does not
// depend on map iteration order.
func resolvePrefix(prefixes map[string]string, account string) string {
	var bestLen int
	var campaign string
	for prefix, c := range prefixes {
		if len(prefix) > bestLen && strings.HasPrefix(account, prefix) {
			bestLen = len(prefix)
			campaign = c
		}
	}
	return campaign
}
