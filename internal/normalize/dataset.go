package normalize

import (
	"time"

	"github.com/allattain/opsdash/internal/attribution"
	"github.com/allattain/opsdash/internal/config"
	"github.com/allattain/opsdash/internal/models"
)

// BuildDataset normalizes both feeds and concatenates them into the
// canonical table, rows tagged by source. today anchors the live/historical
// stitching. An empty result means no data, not a fault.
func BuildDataset(snap models.Snapshot, camp config.Campaigns, today time.Time) ([]models.Row, []models.Diagnostic) {
	sink := &Sink{}
	model := attribution.NewModel(camp.Settings)

	rows := MetaRows(snap.MetaLive, snap.MetaHistory, camp, model, today, sink)
	rows = append(rows, BeyondRows(snap.BeyondLive, snap.BeyondHistory, camp, model, today, sink)...)

	return rows, sink.Events()
}
