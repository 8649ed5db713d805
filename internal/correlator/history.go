package correlator

import (
	"time"

	"github.com/obsbridge/correlator/pkg/models"
)

// history is the bounded, indexed correlation history. It is not safe for
// concurrent use: the engine guards it with its own lock.
//
// Two invariants hold after every insert and every eviction:
//   - every event reachable from either index is present in the events slice;
//   - no index key maps to an empty bucket.
type history struct {
	maxSize   int
	events    []*models.CorrelationEvent
	byTraceID map[string][]*models.CorrelationEvent
	byService map[string][]*models.CorrelationEvent
}

// newHistory creates an empty history bounded to maxSize entries.
func newHistory(maxSize int) *history {
	return &history{
		maxSize:   maxSize,
		events:    make([]*models.CorrelationEvent, 0, maxSize),
		byTraceID: make(map[string][]*models.CorrelationEvent),
		byService: make(map[string][]*models.CorrelationEvent),
	}
}

// add appends the event, indexes it, then evicts from the front until the
// bound holds. Eviction removes the evicted event from every index bucket
// that references it and deletes buckets drained to empty.
func (h *history) add(event *models.CorrelationEvent) {
	h.events = append(h.events, event)
	h.byTraceID[event.TraceID] = append(h.byTraceID[event.TraceID], event)
	if event.Service != "" {
		h.byService[event.Service] = append(h.byService[event.Service], event)
	}

	for len(h.events) > h.maxSize {
		evicted := h.events[0]
		h.events = h.events[1:]
		h.removeFromIndex(h.byTraceID, evicted.TraceID, evicted)
		if evicted.Service != "" {
			h.removeFromIndex(h.byService, evicted.Service, evicted)
		}
	}
}

// removeFromIndex drops one event from a bucket and deletes the bucket when
// it drains to empty. Duplicate keys are handled: only the one evicted event
// is removed, by identity.
func (h *history) removeFromIndex(index map[string][]*models.CorrelationEvent, key string, event *models.CorrelationEvent) {
	bucket := index[key]
	for i, e := range bucket {
		if e == event {
			bucket = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	if len(bucket) == 0 {
		delete(index, key)
	} else {
		index[key] = bucket
	}
}

// Query contains the filters for a correlation history read. All provided
// filters apply conjunctively; zero values mean "no filter".
type Query struct {
	TraceID string    // Exact trace ID match.
	Service string    // Exact service match.
	Start   time.Time // Inclusive lower bound on event timestamp.
	End     time.Time // Inclusive upper bound on event timestamp.
	Limit   int       // Maximum results (engine applies its default when 0).
}

// query returns matching events in reverse-chronological order, at most
// q.Limit of them. When a trace ID or service filter is present the matching
// index bucket is scanned instead of the full history, keeping the cost
// proportional to the matches.
func (h *history) query(q Query) []models.CorrelationEvent {
	var candidates []*models.CorrelationEvent
	switch {
	case q.TraceID != "":
		candidates = h.byTraceID[q.TraceID]
	case q.Service != "":
		candidates = h.byService[q.Service]
	default:
		candidates = h.events
	}

	results := make([]models.CorrelationEvent, 0, q.Limit)
	for i := len(candidates) - 1; i >= 0 && len(results) < q.Limit; i-- {
		e := candidates[i]
		if q.TraceID != "" && e.TraceID != q.TraceID {
			continue
		}
		if q.Service != "" && e.Service != q.Service {
			continue
		}
		if !q.Start.IsZero() && e.Timestamp.Before(q.Start) {
			continue
		}
		if !q.End.IsZero() && e.Timestamp.After(q.End) {
			continue
		}
		results = append(results, *e)
	}
	return results
}

// size returns the number of stored events.
func (h *history) size() int {
	return len(h.events)
}
