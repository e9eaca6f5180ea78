package gossip

// RelayList pairs a collection with the logical and wall-clock
// versioning spec.md requires: EventCreatedAt is the timestamp on the
// signed record that produced it (used for monotonicity), LastUpdate
// is when the graph last refreshed this entry.
type RelayList[C any] struct {
	Collection     C
	EventCreatedAt Timestamp
	LastUpdate     Timestamp
}

// OutboxMap is the NIP-65-style RelayList collection: relay URL to an
// optional read/write annotation.
type OutboxMap = map[RelayUrl]RelayMetadata

// DirectInboxSet is the NIP-17-style ("InboxRelays") RelayList
// collection: an unannotated set of relay URLs.
type DirectInboxSet = map[RelayUrl]struct{}

// RelayLists bundles both relay-list specializations for one public
// key, plus the wall-clock time of the last staleness check.
type RelayLists struct {
	Outbox      RelayList[OutboxMap]
	DirectInbox RelayList[DirectInboxSet]
	LastCheck   Timestamp
}

func newEmptyRelayLists() *RelayLists {
	return &RelayLists{
		Outbox:      RelayList[OutboxMap]{Collection: OutboxMap{}},
		DirectInbox: RelayList[DirectInboxSet]{Collection: DirectInboxSet{}},
	}
}

// empty reports whether either specialization has no entries, used by
// check_outdated's "either list is empty" test.
func (l *RelayLists) empty() bool {
	return len(l.Outbox.Collection) == 0 || len(l.DirectInbox.Collection) == 0
}
