// Package depot exposes evaluation results over HTTP.
package depot

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/kilianp07/busdepot/core/history"
	"github.com/kilianp07/busdepot/core/model"
	"github.com/kilianp07/busdepot/pkg/export"
)

// LatestSource returns the most recent evaluation, if any.
type LatestSource interface {
	Latest() (model.Evaluation, bool)
}

// NewMux registers the depot endpoints. Requests must include an
// Authorization header with "Bearer <token>" when token is non-empty.
func NewMux(src LatestSource, store history.Store, token string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/api/depot/evaluation", NewEvaluationHandler(src, token))
	mux.Handle("/api/depot/history", NewHistoryHandler(store, token))
	mux.Handle("/api/depot/export", NewExportHandler(src, token))
	return mux
}

// NewEvaluationHandler serves the latest evaluation via GET /api/depot/evaluation.
func NewEvaluationHandler(src LatestSource, token string) http.Handler {
	return guard(token, func(w http.ResponseWriter, r *http.Request) {
		ev, ok := src.Latest()
		if !ok {
			http.Error(w, "no evaluation yet", http.StatusNotFound)
			return
		}
		writeJSON(w, ev)
	})
}

// NewHistoryHandler serves stored evaluations via
// GET /api/depot/history?start=&end=&bus_id=&limit=. Times are RFC3339.
func NewHistoryHandler(store history.Store, token string) http.Handler {
	return guard(token, func(w http.ResponseWriter, r *http.Request) {
		q, err := parseQuery(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		evs, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if evs == nil {
			evs = []model.Evaluation{}
		}
		writeJSON(w, evs)
	})
}

// NewExportHandler renders the latest evaluation via
// GET /api/depot/export?format=csv|json|xlsx|pdf.
func NewExportHandler(src LatestSource, token string) http.Handler {
	return guard(token, func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("format")
		if name == "" {
			name = string(export.FormatJSON)
		}
		f, err := export.ParseFormat(name)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		ev, ok := src.Latest()
		if !ok {
			http.Error(w, "no evaluation yet", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", f.ContentType())
		if f != export.FormatJSON && f != export.FormatTable {
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=evaluation-%s.%s", ev.ID, f))
		}
		if err := export.Write(w, f, ev); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

func guard(token string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		h(w, r)
	})
}

func parseQuery(r *http.Request) (history.Query, error) {
	v := r.URL.Query()
	q := history.Query{BusID: v.Get("bus_id")}
	if s := v.Get("start"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return q, fmt.Errorf("invalid start: %w", err)
		}
		q.Start = t
	}
	if s := v.Get("end"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return q, fmt.Errorf("invalid end: %w", err)
		}
		q.End = t
	}
	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return q, fmt.Errorf("invalid limit %q", s)
		}
		q.Limit = n
	}
	return q, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
