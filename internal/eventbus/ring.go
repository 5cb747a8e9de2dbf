package eventbus

import (
	"time"

	"dispatch/internal/domain"
)

// ring is a bounded-by-count, bounded-by-age event buffer for one room,
// used to answer replay requests. Not safe for concurrent use; callers
// hold the owning room's mutex.
type ring struct {
	events    []domain.Event
	maxEvents int
	maxAge    time.Duration
}

func newRing(maxEvents int, maxAge time.Duration) *ring {
	return &ring{maxEvents: maxEvents, maxAge: maxAge}
}

func (r *ring) append(e domain.Event) {
	r.events = append(r.events, e)
	r.prune(time.Now())
}

func (r *ring) prune(now time.Time) {
	cutoff := now.Add(-r.maxAge)
	start := 0
	for start < len(r.events) && r.events[start].OccurredAt.Before(cutoff) {
		start++
	}
	if start > 0 {
		r.events = append([]domain.Event(nil), r.events[start:]...)
	}
	if len(r.events) > r.maxEvents {
		excess := len(r.events) - r.maxEvents
		r.events = append([]domain.Event(nil), r.events[excess:]...)
	}
}

// since returns every buffered event with Seq > afterSeq, and whether the
// buffer still holds a contiguous history back to afterSeq (false means
// events were evicted in between and the caller must signal a replay gap).
func (r *ring) since(afterSeq uint64) ([]domain.Event, bool) {
	if len(r.events) == 0 {
		return nil, afterSeq == 0
	}
	oldest := r.events[0].Seq
	if afterSeq > 0 && afterSeq < oldest-1 {
		return nil, false
	}
	var out []domain.Event
	for _, e := range r.events {
		if e.Seq > afterSeq {
			out = append(out, e)
		}
	}
	return out, true
}
