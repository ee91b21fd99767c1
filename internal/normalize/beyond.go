package normalize

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/allattain/opsdash/internal/attribution"
	"github.com/allattain/opsdash/internal/config"
	"github.com/allattain/opsdash/internal/models"
)

var beyondRequired = []string{"date_jst", "folder_name", "parameter"}

// creativeGate is the mandatory content filter: only rows whose parameter
// identifies a creative are operationally meaningful.
const creativeGate = "utm_creative="

// BeyondRows normalizes the funnel-tracking feed: same live/history
// stitching as Meta, folder names normalized (full-width spaces, trim) and
// resolved by exact match, then the utm_creative gate. An audit pass reports
// row counts per (date, campaign) and flags dates missing an expected
// campaign; that output is diagnostic only.
func BeyondRows(live, history models.Table, camp config.Campaigns, model *attribution.Model, today time.Time, sink *Sink) []models.Row {
	today = DayStart(today)

	type brec struct {
		date     time.Time
		folder   string
		param    string
		cost     float64
		pv       float64
		clicks   float64
		cv       float64
		fv       float64
		sv       float64
		campaign string
	}
	var combined []brec

	parts := []struct {
		t     models.Table
		live  bool
		label string
	}{
		{history, false, "Beyond_History"},
		{live, true, "Beyond_Live"},
	}
	for _, p := range parts {
		t := checkColumns(p.t, beyondRequired, models.SourceBeyond, p.label, sink)
		dateIdx := t.Col("date_jst")
		folderIdx := t.Col("folder_name")
		paramIdx := t.Col("parameter")
		costIdx := t.Col("cost")
		pvIdx := t.Col("pv")
		clkIdx := t.Col("click")
		cvIdx := t.Col("cv")
		fvIdx := t.Col("fv_exit")
		svIdx := t.Col("sv_exit")

		for _, rec := range t.Records {
			d, ok := parseDay(t.Field(rec, dateIdx))
			if !ok {
				continue
			}
			if p.live && !d.Equal(today) {
				continue
			}
			if !p.live && !d.Before(today) {
				continue
			}
			combined = append(combined, brec{
				date:   d,
				folder: normalizeFolder(t.Field(rec, folderIdx)),
				param:  strings.TrimSpace(t.Field(rec, paramIdx)),
				cost:   num(t.Field(rec, costIdx)),
				pv:     num(t.Field(rec, pvIdx)),
				clicks: num(t.Field(rec, clkIdx)),
				cv:     num(t.Field(rec, cvIdx)),
				fv:     num(t.Field(rec, fvIdx)),
				sv:     num(t.Field(rec, svIdx)),
			})
		}
	}
	if len(combined) == 0 {
		return nil
	}

	// resolve folders; unmatched ones are out of scope
	mapped := combined[:0]
	for _, r := range combined {
		if campaign, ok := camp.FolderNames[r.folder]; ok {
			r.campaign = campaign
			mapped = append(mapped, r)
		}
	}
	if len(mapped) == 0 {
		sink.Add(models.Diagnostic{
			Kind:    models.DiagNoMappedFolders,
			Source:  models.SourceBeyond,
			Message: "no rows matched a mapped folder name",
		})
		return nil
	}

	kept := mapped[:0]
	for _, r := range mapped {
		if strings.HasPrefix(r.param, creativeGate) {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		sink.Add(models.Diagnostic{
			Kind:    models.DiagEmptyAfterFilter,
			Source:  models.SourceBeyond,
			Message: fmt.Sprintf("no rows with parameter starting %q", creativeGate),
		})
		return nil
	}

	// audit: intake counts per (date, campaign), plus missing-campaign flags
	counts := map[string]map[string]int{}
	for _, r := range kept {
		day := r.date.Format("2006-01-02")
		if counts[day] == nil {
			counts[day] = map[string]int{}
		}
		counts[day][r.campaign]++
	}
	expected := camp.Names()
	sort.Strings(expected)
	for _, day := range sortedKeys(counts) {
		for _, campaign := range sortedKeys(counts[day]) {
			sink.Add(models.Diagnostic{
				Kind:     models.DiagAuditCount,
				Source:   models.SourceBeyond,
				Date:     day,
				Campaign: campaign,
				Count:    counts[day][campaign],
			})
		}
		for _, campaign := range expected {
			if counts[day][campaign] == 0 {
				sink.Add(models.Diagnostic{
					Kind:     models.DiagMissingCampaign,
					Source:   models.SourceBeyond,
					Date:     day,
					Campaign: campaign,
					Message:  "no rows for expected campaign",
				})
			}
		}
	}

	rows := make([]models.Row, 0, len(kept))
	for _, r := range kept {
		row := models.Row{
			Date:     r.date,
			Source:   models.SourceBeyond,
			Campaign: r.campaign,
			Creative: r.param,
			Cost:     r.cost,
			PV:       r.pv,
			Clicks:   r.clicks,
			CV:       r.cv,
			FVExit:   r.fv,
			SVExit:   r.sv,
		}
		row.Revenue, row.Profit = model.Row(r.campaign, models.SourceBeyond, row.Cost, row.CV)
		rows = append(rows, row)
	}
	return rows
}

func normalizeFolder(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "　", " "))
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
