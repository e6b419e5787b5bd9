// Package history persists evaluation results and answers range queries
// over them.
package history

import (
	"context"
	"sort"
	"time"

	"github.com/kilianp07/busdepot/core/factory"
	"github.com/kilianp07/busdepot/core/model"
)

// Query defines filters for retrieving evaluations. Zero values disable the
// corresponding filter.
type Query struct {
	Start time.Time
	End   time.Time
	BusID string
	// Limit keeps the most recent evaluations when positive.
	Limit int
}

// Match reports whether ev satisfies the time and bus filters of q.
func (q Query) Match(ev model.Evaluation) bool {
	if !q.Start.IsZero() && ev.Time.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && ev.Time.After(q.End) {
		return false
	}
	if q.BusID != "" && !ev.HasBus(q.BusID) {
		return false
	}
	return true
}

// Apply filters evs, orders them by time and enforces the limit.
func (q Query) Apply(evs []model.Evaluation) []model.Evaluation {
	out := make([]model.Evaluation, 0, len(evs))
	for _, ev := range evs {
		if q.Match(ev) {
			out = append(out, ev)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[len(out)-q.Limit:]
	}
	return out
}

// Store persists evaluations and supports querying.
type Store interface {
	Append(ctx context.Context, ev model.Evaluation) error
	Query(ctx context.Context, q Query) ([]model.Evaluation, error)
	Close() error
}

// NopStore discards every evaluation.
type NopStore struct{}

func (NopStore) Append(context.Context, model.Evaluation) error { return nil }
func (NopStore) Query(context.Context, Query) ([]model.Evaluation, error) {
	return nil, nil
}
func (NopStore) Close() error { return nil }

var storeRegistry = factory.NewRegistry[Store]()

// RegisterStore adds a backend factory identified by name.
func RegisterStore(name string, f factory.Factory[Store]) error {
	return storeRegistry.Register(name, f)
}

// NewStore creates the Store described by cfg. An empty type yields a
// NopStore.
func NewStore(cfg factory.ModuleConfig) (Store, error) {
	if cfg.Type == "" || cfg.Type == "none" {
		return NopStore{}, nil
	}
	return storeRegistry.Create(cfg)
}
