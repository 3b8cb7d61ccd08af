package standardize

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hazyhaar/placestd/pkg/gazetteer"
	"github.com/hazyhaar/placestd/pkg/normalize"
)

// Recorder collects events in memory. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Events returns a copy of the recorded events in arrival order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Count returns the number of recorded events of kind k.
func (r *Recorder) Count(k Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Kind == k {
			n++
		}
	}
	return n
}

// Reset drops all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

func (r *Recorder) add(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *Recorder) TokenNotFound(_ context.Context, text string, levels normalize.Levels, level int, ids []int) {
	r.add(Event{Kind: KindTokenNotFound, Text: text, Levels: levels, Level: level, IDs: ids})
}

func (r *Recorder) SkippingParentLevel(_ context.Context, text string, levels normalize.Levels, level int, ids []int) {
	r.add(Event{Kind: KindSkippingParentLevel, Text: text, Levels: levels, Level: level, IDs: ids})
}

func (r *Recorder) TypeNotFound(_ context.Context, text string, levels normalize.Levels, level int, ids []int) {
	r.add(Event{Kind: KindTypeNotFound, Text: text, Levels: levels, Level: level, IDs: ids})
}

func (r *Recorder) Ambiguous(_ context.Context, text string, levels normalize.Levels, ids []int, top *gazetteer.Place) {
	r.add(Event{Kind: KindAmbiguous, Text: text, Levels: levels, Level: -1, IDs: ids, Top: top})
}

func (r *Recorder) PlaceNotFound(_ context.Context, text string, levels normalize.Levels) {
	r.add(Event{Kind: KindPlaceNotFound, Text: text, Levels: levels, Level: -1})
}

// LogHandler writes each event as a structured log line at Info level
// (Warn for PlaceNotFound).
type LogHandler struct {
	Logger *slog.Logger
}

func (h LogHandler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

func (h LogHandler) TokenNotFound(ctx context.Context, text string, levels normalize.Levels, level int, ids []int) {
	h.logger().InfoContext(ctx, "token not found", "text", text, "level", level, "phrase", phrase(levels, level), "parents", ids)
}

func (h LogHandler) SkippingParentLevel(ctx context.Context, text string, levels normalize.Levels, level int, ids []int) {
	h.logger().InfoContext(ctx, "skipping parent level", "text", text, "level", level, "phrase", phrase(levels, level), "ids", ids)
}

func (h LogHandler) TypeNotFound(ctx context.Context, text string, levels normalize.Levels, level int, ids []int) {
	h.logger().InfoContext(ctx, "type not found", "text", text, "level", level, "phrase", phrase(levels, level), "ids", ids)
}

func (h LogHandler) Ambiguous(ctx context.Context, text string, _ normalize.Levels, ids []int, top *gazetteer.Place) {
	h.logger().InfoContext(ctx, "ambiguous", "text", text, "ids", ids, "top", top.ID)
}

func (h LogHandler) PlaceNotFound(ctx context.Context, text string, _ normalize.Levels) {
	h.logger().WarnContext(ctx, "place not found", "text", text)
}

func phrase(levels normalize.Levels, level int) string {
	if level < 0 || level >= len(levels) {
		return ""
	}
	return normalize.Render(levels[level : level+1])
}

// MultiHandler fans every event out to each handler in order.
type MultiHandler []ErrorHandler

func (m MultiHandler) TokenNotFound(ctx context.Context, text string, levels normalize.Levels, level int, ids []int) {
	for _, h := range m {
		h.TokenNotFound(ctx, text, levels, level, ids)
	}
}

func (m MultiHandler) SkippingParentLevel(ctx context.Context, text string, levels normalize.Levels, level int, ids []int) {
	for _, h := range m {
		h.SkippingParentLevel(ctx, text, levels, level, ids)
	}
}

func (m MultiHandler) TypeNotFound(ctx context.Context, text string, levels normalize.Levels, level int, ids []int) {
	for _, h := range m {
		h.TypeNotFound(ctx, text, levels, level, ids)
	}
}

func (m MultiHandler) Ambiguous(ctx context.Context, text string, levels normalize.Levels, ids []int, top *gazetteer.Place) {
	for _, h := range m {
		h.Ambiguous(ctx, text, levels, ids, top)
	}
}

func (m MultiHandler) PlaceNotFound(ctx context.Context, text string, levels normalize.Levels) {
	for _, h := range m {
		h.PlaceNotFound(ctx, text, levels)
	}
}
