package feed

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/allattain/opsdash/internal/config"
	"github.com/allattain/opsdash/internal/models"
	"github.com/allattain/opsdash/internal/utils"
)

var (
	fetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "opsdash_feed_fetch_total",
		Help: "Feed sheet fetches by sheet name and outcome.",
	}, []string{"sheet", "status"})
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "opsdash_feed_cache_hits_total",
		Help: "Feed snapshots served from the cache.",
	})
)

// Loader pulls the four feed partitions as CSV and assembles one snapshot.
// A sheet that fails to fetch or parse degrades to an empty table; the load
// only errors when every sheet failed.
type Loader struct {
	c     HTTPClient
	cfg   config.Config
	cache *Cache
	log   *slog.Logger
}

func NewLoader(c HTTPClient, cfg config.Config, cache *Cache, log *slog.Logger) *Loader {
	return &Loader{c: c, cfg: cfg, cache: cache, log: log}
}

// Load returns the cached snapshot when fresh, otherwise fetches all sheets
// and caches the result.
func (l *Loader) Load(ctx context.Context) (models.Snapshot, error) {
	if l.cache != nil {
		if snap, ok := l.cache.Get(ctx, snapshotKey); ok {
			cacheHits.Inc()
			return snap, nil
		}
	}
	snap, err := l.fetchAll(ctx)
	if err != nil {
		return snap, err
	}
	if l.cache != nil {
		l.cache.Set(ctx, snapshotKey, snap)
	}
	return snap, nil
}

func (l *Loader) fetchAll(ctx context.Context) (models.Snapshot, error) {
	snap := models.Snapshot{FetchedAt: time.Now()}
	failed := 0
	for _, s := range []struct {
		name string
		dst  *models.Table
	}{
		{l.cfg.Sheets.MetaLive, &snap.MetaLive},
		{l.cfg.Sheets.MetaHistory, &snap.MetaHistory},
		{l.cfg.Sheets.BeyondLive, &snap.BeyondLive},
		{l.cfg.Sheets.BeyondHistory, &snap.BeyondHistory},
	} {
		t, err := l.fetchSheet(ctx, s.name)
		if err != nil {
			failed++
			fetchTotal.WithLabelValues(s.name, "error").Inc()
			l.log.Warn("sheet fetch failed", slog.String("sheet", s.name), slog.String("err", err.Error()))
			continue
		}
		fetchTotal.WithLabelValues(s.name, "ok").Inc()
		*s.dst = t
	}
	if failed == 4 {
		return snap, fmt.Errorf("all feed sheets failed")
	}
	return snap, nil
}

func (l *Loader) fetchSheet(ctx context.Context, name string) (models.Table, error) {
	var t models.Table
	err := utils.NewBackoff(100*time.Millisecond, 2).Do(ctx, func(i int) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.sheetURL(name), nil)
		if err != nil {
			return err
		}
		resp, err := l.c.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("sheet %s: non-2xx %d body=%s", name, resp.StatusCode, string(b))
		}
		t, err = parseCSV(resp.Body)
		return err
	})
	return t, err
}

func (l *Loader) sheetURL(name string) string {
	if l.cfg.SheetBaseURL != "" {
		return fmt.Sprintf("%s?sheet=%s", l.cfg.SheetBaseURL, url.QueryEscape(name))
	}
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/gviz/tq?tqx=out:csv&sheet=%s",
		l.cfg.SheetID, url.QueryEscape(name))
}

func parseCSV(r io.Reader) (models.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	recs, err := cr.ReadAll()
	if err != nil {
		return models.Table{}, err
	}
	if len(recs) == 0 {
		return models.Table{}, nil
	}
	cols := make([]string, len(recs[0]))
	for i, c := range recs[0] {
		cols[i] = strings.TrimSpace(c)
	}
	return models.Table{Columns: cols, Records: recs[1:]}, nil
}
