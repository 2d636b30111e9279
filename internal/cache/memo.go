package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/shigemiyagi/marriage-astrology-app/internal/scan"
)

// ComputeFunc runs the scan on a miss.
type ComputeFunc func(ctx context.Context) (*scan.DatedEventSet, error)

// Observer is told whether each lookup hit.
type Observer func(hit bool)

// Memo deduplicates concurrent scans for one key and publishes each result
// once it is complete.
type Memo struct {
	store    Store
	group    singleflight.Group
	observer Observer
}

// NewMemo returns a Memo backed by store.
func NewMemo(store Store) *Memo {
	return &Memo{store: store}
}

// WithObserver returns a Memo over the same store that reports hits and
// misses to o. The copy deduplicates in-flight scans on its own.
func (m *Memo) WithObserver(o Observer) *Memo {
	return &Memo{store: m.store, observer: o}
}

// Do returns the cached result for key or computes, publishes and returns
// it. The bool reports a cache hit. Store read failures degrade to a
// recompute; store write failures are logged and the fresh result is
// still returned.
func (m *Memo) Do(ctx context.Context, key Key, compute ComputeFunc) (*scan.DatedEventSet, bool, error) {
	k := key.String()
	if set, ok := m.lookup(ctx, k); ok {
		m.observe(true)
		return set, true, nil
	}
	m.observe(false)

	v, err, _ := m.group.Do(k, func() (interface{}, error) {
		// Another caller may have published while we waited.
		if set, ok := m.lookup(ctx, k); ok {
			return set, nil
		}
		set, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(set)
		if err != nil {
			return nil, fmt.Errorf("encode scan result: %w", err)
		}
		if err := m.store.Set(ctx, k, data); err != nil {
			log.Warn().Err(err).Str("key", k).Msg("Failed to publish scan result")
		}
		return set, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*scan.DatedEventSet), false, nil
}

func (m *Memo) lookup(ctx context.Context, k string) (*scan.DatedEventSet, bool) {
	data, ok, err := m.store.Get(ctx, k)
	if err != nil {
		log.Warn().Err(err).Str("key", k).Msg("Scan cache read failed")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	set := scan.NewDatedEventSet()
	if err := json.Unmarshal(data, set); err != nil {
		log.Warn().Err(err).Str("key", k).Msg("Discarding undecodable scan cache entry")
		return nil, false
	}
	return set, true
}

func (m *Memo) observe(hit bool) {
	if m.observer != nil {
		m.observer(hit)
	}
}
