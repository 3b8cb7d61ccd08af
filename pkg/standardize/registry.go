package standardize

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hazyhaar/placestd/pkg/metrics"
)

// ErrNotLoaded is returned by Registry.Current before the first Load.
var ErrNotLoaded = errors.New("standardize: no gazetteer loaded")

// Info describes the gazetteer behind the current Standardizer.
type Info struct {
	DatasetID string    `json:"dataset_id"`
	Version   string    `json:"version"`
	Backend   string    `json:"backend"`
	Words     int       `json:"words"`
	Places    int       `json:"places"`
	LoadedAt  time.Time `json:"loaded_at"`
}

// Loader builds a fresh Standardizer, typically from a dataset directory.
type Loader func(ctx context.Context) (*Standardizer, Info, error)

// Registry holds the current Standardizer and swaps it on reload. Callers
// take one snapshot per request with Current, so a reload never changes the
// gazetteer under a running resolution.
type Registry struct {
	mu   sync.RWMutex
	std  *Standardizer
	info Info
	load Loader
}

// NewRegistry creates an empty registry backed by load.
func NewRegistry(load Loader) *Registry {
	return &Registry{load: load}
}

// Load builds a new Standardizer and makes it current. On failure the
// previous one stays in place.
func (r *Registry) Load(ctx context.Context) error {
	std, info, err := r.load(ctx)
	if err != nil {
		metrics.ReloadsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("load gazetteer: %w", err)
	}
	if info.LoadedAt.IsZero() {
		info.LoadedAt = time.Now()
	}

	r.mu.Lock()
	r.std = std
	r.info = info
	r.mu.Unlock()
	metrics.ReloadsTotal.WithLabelValues("ok").Inc()
	return nil
}

// Reload reloads the gazetteer (hot reload).
func (r *Registry) Reload(ctx context.Context) error {
	return r.Load(ctx)
}

// Current returns the current Standardizer.
func (r *Registry) Current() (*Standardizer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.std == nil {
		return nil, ErrNotLoaded
	}
	return r.std, nil
}

// Info returns the metadata of the current gazetteer.
func (r *Registry) Info() Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.info
}
