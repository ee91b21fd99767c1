package httpx

import (
	"github.com/allattain/opsdash/internal/models"
	"github.com/allattain/opsdash/internal/rollup"
	"github.com/allattain/opsdash/internal/utils"
)

// aggregateView is the display shape: monetary and count values truncate to
// integers, percent values round to one decimal. Rounding happens only here
// so tables and summary cards stay reconcilable.
type aggregateView struct {
	Campaign     string  `json:"campaign"`
	Revenue      int64   `json:"revenue"`
	Cost         int64   `json:"cost"`
	Profit       int64   `json:"profit"`
	CV           int64   `json:"cv"`
	MCV          int64   `json:"mcv"`
	Clicks       int64   `json:"clicks"`
	Impressions  int64   `json:"impressions"`
	PV           int64   `json:"pv"`
	CPA          int64   `json:"cpa"`
	CPC          int64   `json:"cpc"`
	CPM          int64   `json:"cpm"`
	CTRPct       float64 `json:"ctr_pct"`
	MCVRPct      float64 `json:"mcvr_pct"`
	CVRPct       float64 `json:"cvr_pct"`
	ROASPct      float64 `json:"roas_pct"`
	FVExitPct    float64 `json:"fv_exit_pct"`
	SVExitPct    float64 `json:"sv_exit_pct"`
	TotalExitPct float64 `json:"total_exit_pct"`
}

type rollupResponse struct {
	From      string          `json:"from"`
	To        string          `json:"to"`
	View      string          `json:"view"`
	Campaigns []aggregateView `json:"campaigns"`
	Total     aggregateView   `json:"total"`
}

func toResponse(res rollup.Result) rollupResponse {
	out := rollupResponse{
		From:      res.From.Format("2006-01-02"),
		To:        res.To.Format("2006-01-02"),
		View:      string(res.View),
		Campaigns: make([]aggregateView, 0, len(res.Campaigns)),
		Total:     toView(res.Total),
	}
	for _, a := range res.Campaigns {
		out.Campaigns = append(out.Campaigns, toView(a))
	}
	return out
}

func toView(a models.AggregateRow) aggregateView {
	return aggregateView{
		Campaign:     a.Campaign,
		Revenue:      utils.TruncInt(a.Revenue),
		Cost:         utils.TruncInt(a.Cost),
		Profit:       utils.TruncInt(a.Profit),
		CV:           utils.TruncInt(a.CV),
		MCV:          utils.TruncInt(a.MCV),
		Clicks:       utils.TruncInt(a.Clicks),
		Impressions:  utils.TruncInt(a.Impressions),
		PV:           utils.TruncInt(a.PV),
		CPA:          utils.TruncInt(a.CPA),
		CPC:          utils.TruncInt(a.CPC),
		CPM:          utils.TruncInt(a.CPM),
		CTRPct:       utils.Round1(a.CTR),
		MCVRPct:      utils.Round1(a.MCVR),
		CVRPct:       utils.Round1(a.CVR),
		ROASPct:      utils.Round1(a.ROAS),
		FVExitPct:    utils.Round1(a.FVExitRate),
		SVExitPct:    utils.Round1(a.SVExitRate),
		TotalExitPct: utils.Round1(a.TotalExitRate),
	}
}
