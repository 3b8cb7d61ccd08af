// Package importer downloads public gazetteer dumps and converts them into
// dataset directories (manifest.yaml + data.gob) that gazetteer.LoadDataset
// reads.
package importer

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Adapter converts one public source into a gazetteer dataset.
type Adapter interface {
	// ID returns the unique identifier of this adapter (e.g. "geonames").
	ID() string
	// DatasetID returns the target dataset ID (e.g. "geonames-all").
	DatasetID() string
	// Description returns a human-readable description.
	Description() string
	// DefaultURL returns the source URL used when seeding the source database.
	DefaultURL() string
	// License returns the license identifier of the source (e.g. "CC-BY-4.0").
	License() string
	// Import downloads the source from sourceURL and writes data.gob and
	// manifest.yaml into outputDir/DatasetID().
	Import(ctx context.Context, sourceURL, outputDir string) error
}

var (
	registryMu sync.RWMutex
	adapters   = make(map[string]Adapter)
)

// Register adds an adapter to the global registry.
func Register(a Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	adapters[a.ID()] = a
}

// Get returns a registered adapter by ID.
func Get(id string) (Adapter, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	a, ok := adapters[id]
	if !ok {
		return nil, fmt.Errorf("unknown import source: %q", id)
	}
	return a, nil
}

// All returns all registered adapters sorted by ID.
func All() []Adapter {
	registryMu.RLock()
	defer registryMu.RUnlock()
	result := make([]Adapter, 0, len(adapters))
	for _, a := range adapters {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID() < result[j].ID() })
	return result
}
