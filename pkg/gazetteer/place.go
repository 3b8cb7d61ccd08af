package gazetteer

import (
	"context"
	"strings"
)

// Place is a node of the gazetteer hierarchy.
type Place struct {
	ID               int      `json:"id"`
	Name             string   `json:"name"`
	AltNames         []string `json:"alt_names,omitempty"`
	Types            []string `json:"types,omitempty"`
	LocatedInID      int      `json:"located_in_id,omitempty"`
	AlsoLocatedInIDs []int    `json:"also_located_in_ids,omitempty"`
	Level            int      `json:"level"`
	Country          int      `json:"country"`
	Latitude         float64  `json:"latitude,omitempty"`
	Longitude        float64  `json:"longitude,omitempty"`
}

// Parents returns the primary parent followed by the secondary parents.
// Zero ids are skipped.
func (p *Place) Parents() []int {
	out := make([]int, 0, 1+len(p.AlsoLocatedInIDs))
	if p.LocatedInID > 0 {
		out = append(out, p.LocatedInID)
	}
	for _, id := range p.AlsoLocatedInIDs {
		if id > 0 {
			out = append(out, id)
		}
	}
	return out
}

// FullName renders "Name, Parent, Grandparent, ..." following the primary
// parent chain. A place that is not persisted (ID 0) still renders its own
// name and its parents.
func FullName(ctx context.Context, idx Index, p *Place) (string, error) {
	var b strings.Builder
	b.WriteString(p.Name)

	seen := map[int]bool{p.ID: true}
	for id := p.LocatedInID; id > 0 && !seen[id]; {
		seen[id] = true
		parent, err := idx.Place(ctx, id)
		if err != nil {
			return "", err
		}
		b.WriteString(", ")
		b.WriteString(parent.Name)
		id = parent.LocatedInID
	}
	return b.String(), nil
}
