package standardize

import (
	"context"
	"errors"

	"github.com/hazyhaar/placestd/pkg/gazetteer"
	"github.com/hazyhaar/placestd/pkg/normalize"
)

// Sentinel errors for conditions callers may need to handle differently.
var (
	// ErrDataIntegrity indicates a referenced place id is missing from the
	// place index. It always wraps gazetteer.ErrPlaceNotFound.
	ErrDataIntegrity = errors.New("standardize: data integrity")

	// ErrInvalidConfig indicates an inconsistent configuration.
	ErrInvalidConfig = errors.New("standardize: invalid config")

	// ErrNoIndex indicates New was called without an index.
	ErrNoIndex = errors.New("standardize: nil index")
)

// ErrorHandler receives the diagnostics of a resolution. Callbacks are
// observational and cannot change the result. Levels is the level structure
// at the time of the event, including any level inserted by word skipping;
// callers own the slice they receive.
//
// A handler shared by concurrent resolutions must be safe for concurrent use.
type ErrorHandler interface {
	// TokenNotFound: no index entry for a level, or none of its candidates is
	// contained in the matched parents.
	TokenNotFound(ctx context.Context, text string, levels normalize.Levels, level int, matchedParentIDs []int)
	// SkippingParentLevel: a level was attached to its grandparent, or the
	// parent context was discarded.
	SkippingParentLevel(ctx context.Context, text string, levels normalize.Levels, level int, matchedPlaceIDs []int)
	// TypeNotFound: no candidate carries the level's type word.
	TypeNotFound(ctx context.Context, text string, levels normalize.Levels, level int, matchedPlaceIDs []int)
	// Ambiguous: several candidates remain after filtering; top is the winner.
	Ambiguous(ctx context.Context, text string, levels normalize.Levels, matchedPlaceIDs []int, top *gazetteer.Place)
	// PlaceNotFound: nothing matched although the text had a non-noise word.
	PlaceNotFound(ctx context.Context, text string, levels normalize.Levels)
}

// Kind names a diagnostic.
type Kind string

const (
	KindTokenNotFound       Kind = "token_not_found"
	KindSkippingParentLevel Kind = "skipping_parent_level"
	KindTypeNotFound        Kind = "type_not_found"
	KindAmbiguous           Kind = "ambiguous"
	KindPlaceNotFound       Kind = "place_not_found"
)

// Event is one diagnostic, as collected by Recorder.
type Event struct {
	Kind   Kind             `json:"kind"`
	Text   string           `json:"text"`
	Levels normalize.Levels `json:"levels"`
	// Level is -1 for Ambiguous and PlaceNotFound.
	Level int   `json:"level"`
	IDs   []int `json:"ids,omitempty"`
	// Top is set for Ambiguous.
	Top *gazetteer.Place `json:"top,omitempty"`
}

func dispatch(ctx context.Context, h ErrorHandler, ev Event) {
	switch ev.Kind {
	case KindTokenNotFound:
		h.TokenNotFound(ctx, ev.Text, ev.Levels, ev.Level, ev.IDs)
	case KindSkippingParentLevel:
		h.SkippingParentLevel(ctx, ev.Text, ev.Levels, ev.Level, ev.IDs)
	case KindTypeNotFound:
		h.TypeNotFound(ctx, ev.Text, ev.Levels, ev.Level, ev.IDs)
	case KindAmbiguous:
		h.Ambiguous(ctx, ev.Text, ev.Levels, ev.IDs, ev.Top)
	case KindPlaceNotFound:
		h.PlaceNotFound(ctx, ev.Text, ev.Levels)
	}
}
