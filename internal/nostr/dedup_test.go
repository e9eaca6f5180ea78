package nostr

import "testing"

func TestSeenEventsMarksFirstOccurrenceNew(t *testing.T) {
	s := newSeenEvents()
	if s.markSeen("abc") {
		t.Error("first markSeen of an id should report not-already-seen")
	}
	if !s.markSeen("abc") {
		t.Error("second markSeen of the same id should report already-seen")
	}
}

func TestSeenEventsTracksIndependently(t *testing.T) {
	s := newSeenEvents()
	s.markSeen("a")
	if s.markSeen("b") {
		t.Error("a distinct id must not be reported as already-seen")
	}
}
