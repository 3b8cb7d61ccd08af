package standardize

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/hazyhaar/placestd/pkg/gazetteer"
	"github.com/hazyhaar/placestd/pkg/metrics"
	"github.com/hazyhaar/placestd/pkg/normalize"
)

// levelList is the work list of levels for one call. The cursor walks it
// from the end; a level inserted at the cursor is visited next.
type levelList struct {
	levels normalize.Levels
}

func (l *levelList) Len() int { return len(l.levels) }

func (l *levelList) At(i int) []string { return l.levels[i] }

func (l *levelList) Insert(i int, words []string) {
	l.levels = slices.Insert(l.levels, i, words)
}

// resolution carries the per-call state of Resolve.
type resolution struct {
	s       *Standardizer
	ctx     context.Context
	text    string
	levels  *levelList
	handler ErrorHandler
	logged  bool
	places  map[int]*gazetteer.Place
}

// Resolve runs one resolution. The only errors are index failures, among
// them ErrDataIntegrity; unmatched text yields an empty result.
func (s *Standardizer) Resolve(ctx context.Context, req Request) ([]PlaceScore, error) {
	start := time.Now()
	res, err := s.resolve(ctx, req)
	metrics.ResolutionDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000)

	outcome := "matched"
	switch {
	case err != nil:
		outcome = "error"
		s.logger.Error("resolution failed", "text", req.Text, "error", err)
	case len(res) == 0:
		outcome = "empty"
	}
	metrics.ResolutionsTotal.WithLabelValues(req.Mode.String(), outcome).Inc()
	return res, err
}

func (s *Standardizer) resolve(ctx context.Context, req Request) ([]PlaceScore, error) {
	r := &resolution{
		s:       s,
		ctx:     ctx,
		text:    req.Text,
		levels:  &levelList{levels: s.norm.Tokenize(req.Text).Levels.Clone()},
		handler: req.Handler,
		places:  make(map[int]*gazetteer.Place),
	}
	if r.handler == nil {
		r.handler = s.handler
	}

	var (
		currentIDs  []int
		previousIDs []int
		nameToken   string
		lastFound   = -1
	)

	for level := r.levels.Len() - 1; level >= 0; level-- {
		words := r.levels.At(level)

		ids, name, typ, skipped, err := r.lookupLevel(words)
		if err != nil {
			return nil, err
		}
		// Words skipped to get a match become a level of their own, left of
		// this one, for writers who don't use commas.
		if len(ids) > 0 && skipped > 0 {
			if promoted := s.promotable(words[:skipped]); len(promoted) > 0 {
				r.levels.Insert(level, promoted)
				level++
			}
		}

		if len(ids) == 0 {
			if s.hasNonNoise(words) {
				if err := r.raiseIDs(KindTokenNotFound, level, currentIDs); err != nil {
					return nil, err
				}
			}
			continue
		}

		matched := true
		if len(currentIDs) > 0 {
			matching, err := r.filterSubplaces(ids, currentIDs)
			if err != nil {
				return nil, err
			}

			if len(matching) == 0 {
				// Attach to the grandparent level if the parent may be skipped.
				if len(previousIDs) > 0 {
					skippable, err := r.isSkippable(currentIDs)
					if err != nil {
						return nil, err
					}
					if skippable {
						if matching, err = r.filterSubplaces(ids, previousIDs); err != nil {
							return nil, err
						}
						if len(matching) > 0 {
							currentIDs = previousIDs
							if err := r.raiseIDs(KindSkippingParentLevel, level, matching); err != nil {
								return nil, err
							}
						}
					}
				} else {
					// No grandparent: a country or reference-country state
					// outranks the parent context, which is discarded.
					skippable, err := r.isSkippable(ids)
					if err != nil {
						return nil, err
					}
					if !skippable {
						currentIDs = nil
						matching = ids
						if err := r.raiseIDs(KindSkippingParentLevel, level, ids); err != nil {
							return nil, err
						}
					}
				}
			}

			if len(matching) == 0 {
				matched = false
				if s.hasNonNoise(words) {
					if err := r.raiseIDs(KindTokenNotFound, level, currentIDs); err != nil {
						return nil, err
					}
				}
				ids = currentIDs
				currentIDs = previousIDs
			} else {
				ids = matching
			}
		}

		if matched {
			lastFound = level
			nameToken = name
			// Type words only break ties; a type nobody carries is ignored.
			if len(ids) > 1 && typ != "" {
				typed, err := r.filterType(typ, ids)
				if err != nil {
					return nil, err
				}
				if len(typed) == 0 {
					if err := r.raiseIDs(KindTypeNotFound, level, ids); err != nil {
						return nil, err
					}
				} else {
					ids = typed
				}
			}
		}

		previousIDs = currentIDs
		currentIDs = ids
	}

	if len(currentIDs) == 0 {
		if s.hasNonNoiseLevel(r.levels.levels) {
			r.emit(Event{Kind: KindPlaceNotFound, Level: -1})
		}
		return nil, nil
	}

	// DefaultCountry is intentionally not applied.

	if len(currentIDs) > 1 {
		var err error
		if currentIDs, err = r.mostSpecific(currentIDs); err != nil {
			return nil, err
		}
	}
	ranked, err := r.rank(currentIDs, nameToken)
	if err != nil {
		return nil, err
	}
	if len(ranked) > 1 {
		ids := make([]int, len(ranked))
		for i, ps := range ranked {
			ids[i] = ps.Place.ID
		}
		r.raise(Event{Kind: KindAmbiguous, Level: -1, IDs: ids, Top: ranked[0].Place})
	}
	if req.MaxResults > 0 && len(ranked) > req.MaxResults {
		ranked = ranked[:req.MaxResults]
	}

	switch req.Mode {
	case ModeRequired:
		if lastFound != 0 {
			return nil, nil
		}
	case ModeNew:
		if lastFound > 0 {
			best := ranked[0]
			return []PlaceScore{{
				Place: &gazetteer.Place{
					Name:        s.GeneratePlaceName(r.levels.At(lastFound - 1)),
					LocatedInID: best.Place.ID,
					Level:       best.Place.Level + 1,
					Country:     best.Place.Country,
				},
				Score: best.Score,
			}}, nil
		}
	}
	return ranked, nil
}

// lookupLevel drops words from the left of the level until the remaining
// name token is indexed. skipped is the number of dropped words.
func (r *resolution) lookupLevel(words []string) (ids []int, name, typ string, skipped int, err error) {
	for skip := 0; skip < len(words); skip++ {
		name, typ = r.s.nameTypeToken(words, skip)
		if name == "" {
			continue
		}
		ids, err = r.s.idx.LookupWord(r.ctx, name)
		if err != nil {
			return nil, "", "", 0, fmt.Errorf("lookup %q: %w", name, err)
		}
		if len(ids) > 0 {
			return ids, name, typ, skip, nil
		}
	}
	return nil, name, typ, len(words), nil
}

// raise reports ev unless an earlier cause was already reported.
func (r *resolution) raise(ev Event) {
	if r.logged {
		return
	}
	r.logged = true
	r.emit(ev)
}

// raiseIDs is raise with ids reduced to their most specific members.
func (r *resolution) raiseIDs(kind Kind, level int, ids []int) error {
	if r.logged {
		return nil
	}
	ids, err := r.mostSpecific(ids)
	if err != nil {
		return err
	}
	r.raise(Event{Kind: kind, Level: level, IDs: ids})
	return nil
}

func (r *resolution) emit(ev Event) {
	metrics.DiagnosticsTotal.WithLabelValues(string(ev.Kind)).Inc()
	if r.handler == nil {
		return
	}
	ev.Text = r.text
	ev.Levels = r.levels.levels.Clone()
	dispatch(r.ctx, r.handler, ev)
}

func (r *resolution) place(id int) (*gazetteer.Place, error) {
	if p, ok := r.places[id]; ok {
		return p, nil
	}
	p, err := r.s.idx.Place(r.ctx, id)
	if err != nil {
		if errors.Is(err, gazetteer.ErrPlaceNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrDataIntegrity, err)
		}
		return nil, err
	}
	r.places[id] = p
	return p, nil
}

// rank scores ids and sorts them by descending score, then ascending id.
func (r *resolution) rank(ids []int, nameToken string) ([]PlaceScore, error) {
	ranked := make([]PlaceScore, 0, len(ids))
	for _, id := range ids {
		p, err := r.place(id)
		if err != nil {
			return nil, err
		}
		ranked = append(ranked, PlaceScore{Place: p, Score: r.s.score(nameToken, p)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Place.ID < ranked[j].Place.ID
	})
	return ranked, nil
}
