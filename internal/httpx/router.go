package httpx

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/allattain/opsdash/internal/ingest"
	"github.com/allattain/opsdash/internal/models"
	"github.com/allattain/opsdash/internal/rollup"
	"github.com/allattain/opsdash/internal/store"
	"github.com/allattain/opsdash/internal/utils"
)

var rollupRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "opsdash_rollup_requests_total",
	Help: "Rollup queries by window and view.",
}, []string{"window", "view"})

func NewRouter(log *slog.Logger, pipe *ingest.Pipeline, st *store.SnapshotStore, eng *rollup.Engine) http.Handler {
	mux := chi.NewRouter()
	mux.Use(utils.RequestID)
	mux.Use(utils.Logger(log))

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
	mux.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if !st.Ready() {
			http.Error(w, "no snapshot yet", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
		w.Write([]byte("ready"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	mux.Post("/refresh", func(w http.ResponseWriter, r *http.Request) {
		n, err := pipe.Refresh(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, map[string]any{"rows": n})
	})

	mux.Get("/api/rollup", func(w http.ResponseWriter, r *http.Request) {
		qs := r.URL.Query()
		win, err := rollup.ParseWindow(qs.Get("window"), qs.Get("from"), qs.Get("to"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		view, ok := rollup.ParseView(qs.Get("view"))
		if !ok {
			http.Error(w, "unknown view", http.StatusBadRequest)
			return
		}
		q := rollup.Query{
			Window:   win,
			Campaign: qs.Get("campaign"),
			Creative: qs.Get("creative"),
			View:     view,
		}
		rollupRequests.WithLabelValues(string(win.Kind), string(view)).Inc()
		res := eng.Rollup(st.Rows(), q, time.Now())
		writeJSON(w, toResponse(res))
	})

	mux.Get("/api/dataset", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, datasetSummary(st))
	})

	return mux
}

type datasetView struct {
	MetaRows    int                 `json:"meta_rows"`
	BeyondRows  int                 `json:"beyond_rows"`
	FirstDate   string              `json:"first_date,omitempty"`
	LastDate    string              `json:"last_date,omitempty"`
	FetchedAt   time.Time           `json:"fetched_at"`
	BuiltAt     time.Time           `json:"built_at"`
	Diagnostics []models.Diagnostic `json:"diagnostics"`
}

func datasetSummary(st *store.SnapshotStore) datasetView {
	rows := st.Rows()
	fetchedAt, builtAt := st.Info()
	v := datasetView{FetchedAt: fetchedAt, BuiltAt: builtAt, Diagnostics: st.Diagnostics()}
	if v.Diagnostics == nil {
		v.Diagnostics = []models.Diagnostic{}
	}
	var first, last time.Time
	for _, r := range rows {
		if r.Source == models.SourceMeta {
			v.MetaRows++
		} else {
			v.BeyondRows++
		}
		if first.IsZero() || r.Date.Before(first) {
			first = r.Date
		}
		if r.Date.After(last) {
			last = r.Date
		}
	}
	if !first.IsZero() {
		v.FirstDate = first.Format("2006-01-02")
		v.LastDate = last.Format("2006-01-02")
	}
	return v
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	enc.Encode(v)
}
