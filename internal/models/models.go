package models

import "time"

type Source string

const (
	SourceMeta   Source = "Meta"
	SourceBeyond Source = "Beyond"
)

// Table is a raw feed partition as fetched: a header plus string records.
type Table struct {
	Columns []string   `json:"columns"`
	Records [][]string `json:"records"`
}

func (t Table) Empty() bool { return len(t.Records) == 0 }

func (t Table) Col(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Field returns the cell at (record, column index), tolerating short records.
func (t Table) Field(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return rec[idx]
}

// Snapshot holds the four raw feed partitions of one fetch cycle.
type Snapshot struct {
	MetaLive      Table     `json:"meta_live"`
	MetaHistory   Table     `json:"meta_history"`
	BeyondLive    Table     `json:"beyond_live"`
	BeyondHistory Table     `json:"beyond_history"`
	FetchedAt     time.Time `json:"fetched_at"`
}

// Row is the canonical event record: one normalized feed row tagged with its
// source. Clicks means ad clicks on Meta rows and product-LP transitions on
// Beyond rows; the two are never summed across sources without caller intent.
// MCV is the ad-side result count (Meta), CV the funnel conversion count
// (Beyond). Meta rows mirror MCV into CV for the Meta-restricted view only.
type Row struct {
	Date        time.Time
	Source      Source
	Campaign    string
	Creative    string
	Cost        float64
	Impressions float64
	Clicks      float64
	MCV         float64
	CV          float64
	PV          float64
	FVExit      float64
	SVExit      float64
	Revenue     float64
	Profit      float64
}

// AggregateRow is one campaign's sums and derived metrics for a rollup
// window. Values are raw; display rounding happens at the edge.
type AggregateRow struct {
	Campaign string

	Revenue      float64
	Cost         float64
	Profit       float64
	CV           float64
	MCV          float64
	Clicks       float64
	BeyondClicks float64
	Impressions  float64
	PV           float64
	FVExit       float64
	SVExit       float64

	CPA           float64
	CPC           float64
	CPM           float64
	CTR           float64
	MCVR          float64
	CVR           float64
	ROAS          float64
	FVExitRate    float64
	SVExitRate    float64
	TotalExitRate float64
}

type DiagKind string

const (
	DiagMissingColumns   DiagKind = "missing_columns"
	DiagNoMappedFolders  DiagKind = "no_mapped_folders"
	DiagEmptyAfterFilter DiagKind = "empty_after_filter"
	DiagAuditCount       DiagKind = "audit_count"
	DiagMissingCampaign  DiagKind = "missing_campaign_data"
)

// Diagnostic is a typed, non-fatal normalization event. Adapters degrade to
// empty output and record one of these instead of failing.
type Diagnostic struct {
	Kind     DiagKind `json:"kind"`
	Source   Source   `json:"source"`
	Date     string   `json:"date,omitempty"`
	Campaign string   `json:"campaign,omitempty"`
	Count    int      `json:"count,omitempty"`
	Message  string   `json:"message,omitempty"`
}
