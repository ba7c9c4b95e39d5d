package domain

import (
	"fmt"
	"sort"
)

// ProcessedSet tracks the event ids that have already been displayed or resolved.
type ProcessedSet map[int64]struct{}

// Add marks the given event ids as processed.
func (p ProcessedSet) Add(ids ...int64) {
	for _, id := range ids {
		p[id] = struct{}{}
	}
}

// Has reports whether id was processed.
func (p ProcessedSet) Has(id int64) bool {
	_, ok := p[id]
	return ok
}

// Len returns the number of processed events.
func (p ProcessedSet) Len() int {
	return len(p)
}

// SortTimeline orders events by minute, then by event id.
func SortTimeline(events []TimelineEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Minute != events[j].Minute {
			return events[i].Minute < events[j].Minute
		}
		return events[i].EventID < events[j].EventID
	})
}

// MergeTimeline returns a new slice holding every event of existing plus the
// incoming events whose id was not seen yet, sorted by (minute, eventId).
// An event already present is never replaced: the first copy received wins.
func MergeTimeline(existing, incoming []TimelineEvent) []TimelineEvent {
	seen := make(map[int64]struct{}, len(existing)+len(incoming))
	merged := make([]TimelineEvent, 0, len(existing)+len(incoming))
	for _, e := range existing {
		if _, ok := seen[e.EventID]; ok {
			continue
		}
		seen[e.EventID] = struct{}{}
		merged = append(merged, e)
	}
	for _, e := range incoming {
		if _, ok := seen[e.EventID]; ok {
			continue
		}
		seen[e.EventID] = struct{}{}
		merged = append(merged, e)
	}
	SortTimeline(merged)
	return merged
}

// DueEvents returns the unprocessed events scheduled for minute, in event id order.
// events must already be sorted.
func DueEvents(events []TimelineEvent, minute int, processed ProcessedSet) []TimelineEvent {
	start := sort.Search(len(events), func(i int) bool { return events[i].Minute >= minute })
	var due []TimelineEvent
	for i := start; i < len(events) && events[i].Minute == minute; i++ {
		if processed.Has(events[i].EventID) {
			continue
		}
		due = append(due, events[i])
	}
	return due
}

// EventsAt returns every event scheduled for minute regardless of processing state.
func EventsAt(events []TimelineEvent, minute int) []TimelineEvent {
	return DueEvents(events, minute, nil)
}

// OrderingAnomalyError reports a sorted timeline whose event ids do not grow
// with the minute, meaning the backend emitted ids out of causal order.
type OrderingAnomalyError struct {
	Previous TimelineEvent
	Current  TimelineEvent
}

func (e *OrderingAnomalyError) Error() string {
	return fmt.Sprintf("ordering anomaly: event %d at minute %d follows event %d at minute %d",
		e.Current.EventID, e.Current.Minute, e.Previous.EventID, e.Previous.Minute)
}

// CheckOrdering verifies that a sorted timeline has non-decreasing minutes and
// strictly increasing event ids. It reports every violation found.
func CheckOrdering(events []TimelineEvent) []*OrderingAnomalyError {
	var anomalies []*OrderingAnomalyError
	for i := 1; i < len(events); i++ {
		prev, cur := events[i-1], events[i]
		if cur.Minute < prev.Minute || cur.EventID <= prev.EventID {
			anomalies = append(anomalies, &OrderingAnomalyError{Previous: prev, Current: cur})
		}
	}
	return anomalies
}
