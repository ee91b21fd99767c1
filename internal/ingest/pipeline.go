package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/allattain/opsdash/internal/config"
	"github.com/allattain/opsdash/internal/feed"
	"github.com/allattain/opsdash/internal/models"
	"github.com/allattain/opsdash/internal/normalize"
	"github.com/allattain/opsdash/internal/store"
)

var refreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "opsdash_refresh_total",
	Help: "Dataset refresh attempts by outcome.",
}, []string{"status"})

// Pipeline pulls the feed snapshot, rebuilds the canonical dataset and swaps
// it into the store. Everything downstream reads the store.
type Pipeline struct {
	loader *feed.Loader
	st     *store.SnapshotStore
	cfg    config.Config
	log    *slog.Logger
}

func NewPipeline(loader *feed.Loader, st *store.SnapshotStore, cfg config.Config, log *slog.Logger) *Pipeline {
	return &Pipeline{loader: loader, st: st, cfg: cfg, log: log}
}

// Refresh fetches all partitions and rebuilds the dataset. Normalization
// anomalies degrade to diagnostics; only a full fetch failure errors.
func (p *Pipeline) Refresh(ctx context.Context) (int, error) {
	snap, err := p.loader.Load(ctx)
	if err != nil {
		refreshTotal.WithLabelValues("error").Inc()
		return 0, err
	}
	rows, diags := normalize.BuildDataset(snap, p.cfg.Campaigns, time.Now())
	p.logDiags(diags)
	p.st.Replace(rows, diags, snap.FetchedAt)
	refreshTotal.WithLabelValues("ok").Inc()

	meta, beyond := 0, 0
	for _, r := range rows {
		if r.Source == models.SourceMeta {
			meta++
		} else {
			beyond++
		}
	}
	p.log.Info("dataset rebuilt",
		slog.Int("meta_rows", meta),
		slog.Int("beyond_rows", beyond),
		slog.Int("diagnostics", len(diags)))
	return len(rows), nil
}

// Run refreshes on an interval until the context ends; used to keep the
// snapshot inside the cache freshness window.
func (p *Pipeline) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.Refresh(ctx); err != nil {
				p.log.Error("refresh failed", slog.String("err", err.Error()))
			}
		}
	}
}

func (p *Pipeline) logDiags(diags []models.Diagnostic) {
	for _, d := range diags {
		attrs := []any{
			slog.String("kind", string(d.Kind)),
			slog.String("source", string(d.Source)),
		}
		if d.Date != "" {
			attrs = append(attrs, slog.String("date", d.Date))
		}
		if d.Campaign != "" {
			attrs = append(attrs, slog.String("campaign", d.Campaign))
		}
		if d.Message != "" {
			attrs = append(attrs, slog.String("msg", d.Message))
		}
		if d.Kind == models.DiagAuditCount {
			p.log.Debug("feed audit", append(attrs, slog.Int("rows", d.Count))...)
			continue
		}
		p.log.Warn("feed diagnostic", attrs...)
	}
}
