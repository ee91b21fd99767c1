package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/allattain/opsdash/internal/models"
)

// num coerces a feed cell to a number, defaulting to 0 on anything
// unparseable. Thousands separators show up in sheet exports. ParseFloat
// accepts NaN/Inf literals; those coerce to 0 too so non-finite values never
// enter the dataset.
func num(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

var dayLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

func parseDay(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, l := range dayLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return DayStart(t), true
		}
	}
	return time.Time{}, false
}

// DayStart truncates to a UTC calendar day; all stitching and window math
// compares days in UTC.
func DayStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// checkColumns degrades a non-empty partition missing required columns to an
// empty table and records a diagnostic. Empty partitions pass through.
func checkColumns(t models.Table, required []string, src models.Source, label string, sink *Sink) models.Table {
	if t.Empty() {
		return t
	}
	var missing []string
	for _, c := range required {
		if t.Col(c) < 0 {
			missing = append(missing, c)
		}
	}
	if len(missing) == 0 {
		return t
	}
	sink.Add(models.Diagnostic{
		Kind:    models.DiagMissingColumns,
		Source:  src,
		Message: fmt.Sprintf("%s: missing required columns %s", label, strings.Join(missing, ", ")),
	})
	return models.Table{}
}
