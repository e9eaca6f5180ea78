package nostr

import (
	"github.com/puzpuzpuz/xsync/v3"
)

// seenEvents is a high-fanout, concurrent-safe "have we already
// ingested this event ID" guard. Subscribing to the same filter
// across many relays routinely returns the same event from several of
// them; this lets ingestEvents skip the duplicates before they reach
// the graph's write lock. Unlike the graph's own store, this has no
// whole-map snapshot-consistency requirement — each key is checked
// independently — which is exactly xsync.MapOf's sweet spot.
type seenEvents struct {
	seen *xsync.MapOf[string, struct{}]
}

func newSeenEvents() *seenEvents {
	return &seenEvents{seen: xsync.NewMapOf[string, struct{}]()}
}

// markSeen reports whether id was already marked, and marks it if not.
func (s *seenEvents) markSeen(id string) (alreadySeen bool) {
	_, loaded := s.seen.LoadOrStore(id, struct{}{})
	return loaded
}
