package gossip

import "sort"

// Snapshot is a borrowed, point-in-time read view of the graph. It is
// the primitive a multi-step read query (like the filter decomposer)
// uses to acquire the lock exactly once and derive every set it needs
// from one consistent view, per spec §5's "a single logical operation
// acquires the lock once" discipline. Callers MUST call Release when
// done; a Snapshot held forever starves writers.
type Snapshot struct {
	g *Graph
}

// Snapshot takes the read lock and returns a borrowed view. Release
// it exactly once.
func (g *Graph) Snapshot() *Snapshot {
	g.mu.RLock()
	return &Snapshot{g: g}
}

// Release drops the read lock. Safe to call exactly once per Snapshot.
func (s *Snapshot) Release() {
	s.g.mu.RUnlock()
}

// GetOutbox returns the union of write-or-unspecified relays for the
// given keys.
func (g *Graph) GetOutbox(keys []PublicKey) map[RelayUrl]struct{} {
	s := g.Snapshot()
	defer s.Release()
	return s.GetOutbox(keys)
}

// GetInbox returns the union of read-or-unspecified relays.
func (g *Graph) GetInbox(keys []PublicKey) map[RelayUrl]struct{} {
	s := g.Snapshot()
	defer s.Release()
	return s.GetInbox(keys)
}

// GetOutboxAny returns every NIP-65 relay regardless of annotation
// (spec's "metadata=None" query).
func (g *Graph) GetOutboxAny(keys []PublicKey) map[RelayUrl]struct{} {
	s := g.Snapshot()
	defer s.Release()
	return s.GetOutboxAny(keys)
}

// GetDirectInbox returns the union of direct-inbox relays.
func (g *Graph) GetDirectInbox(keys []PublicKey) map[RelayUrl]struct{} {
	s := g.Snapshot()
	defer s.Release()
	return s.GetDirectInbox(keys)
}

// MapOutbox returns, per relay, the sorted set of input keys whose
// outbox list contains it.
func (g *Graph) MapOutbox(keys []PublicKey) map[RelayUrl][]PublicKey {
	s := g.Snapshot()
	defer s.Release()
	return s.MapOutbox(keys)
}

// MapInbox returns, per relay, the sorted set of input keys whose
// inbox list contains it.
func (g *Graph) MapInbox(keys []PublicKey) map[RelayUrl][]PublicKey {
	s := g.Snapshot()
	defer s.Release()
	return s.MapInbox(keys)
}

// MapDirectInbox returns, per relay, the sorted set of input keys
// whose direct-inbox list contains it.
func (g *Graph) MapDirectInbox(keys []PublicKey) map[RelayUrl][]PublicKey {
	s := g.Snapshot()
	defer s.Release()
	return s.MapDirectInbox(keys)
}

// --- Snapshot-scoped variants: no locking, borrow the held RLock ---

func (s *Snapshot) GetOutbox(keys []PublicKey) map[RelayUrl]struct{} {
	want := MetadataWrite
	return s.g.filterOutbox(keys, &want)
}

func (s *Snapshot) GetInbox(keys []PublicKey) map[RelayUrl]struct{} {
	want := MetadataRead
	return s.g.filterOutbox(keys, &want)
}

func (s *Snapshot) GetOutboxAny(keys []PublicKey) map[RelayUrl]struct{} {
	return s.g.filterOutbox(keys, nil)
}

func (s *Snapshot) GetDirectInbox(keys []PublicKey) map[RelayUrl]struct{} {
	urls := make(map[RelayUrl]struct{})
	for _, pk := range keys {
		lists, ok := s.g.data[pk]
		if !ok {
			continue
		}
		for url := range lists.DirectInbox.Collection {
			urls[url] = struct{}{}
		}
	}
	return urls
}

func (s *Snapshot) MapOutbox(keys []PublicKey) map[RelayUrl][]PublicKey {
	want := MetadataWrite
	return s.g.mapOutbox(keys, &want)
}

func (s *Snapshot) MapInbox(keys []PublicKey) map[RelayUrl][]PublicKey {
	want := MetadataRead
	return s.g.mapOutbox(keys, &want)
}

func (s *Snapshot) MapDirectInbox(keys []PublicKey) map[RelayUrl][]PublicKey {
	acc := make(map[RelayUrl]map[PublicKey]struct{})
	for _, pk := range keys {
		lists, ok := s.g.data[pk]
		if !ok {
			continue
		}
		for url := range lists.DirectInbox.Collection {
			addToRelaySet(acc, url, pk)
		}
	}
	return sortedRelaySets(acc)
}

// filterOutbox keeps an entry when its metadata is unspecified
// (always kept), or when want is nil (metadata=None: every entry
// kept regardless of annotation), or when the entry's metadata
// equals *want.
func (g *Graph) filterOutbox(keys []PublicKey, want *RelayMetadata) map[RelayUrl]struct{} {
	urls := make(map[RelayUrl]struct{})
	for _, pk := range keys {
		lists, ok := g.data[pk]
		if !ok {
			continue
		}
		for url, meta := range lists.Outbox.Collection {
			if keepEntry(meta, want) {
				urls[url] = struct{}{}
			}
		}
	}
	return urls
}

func (g *Graph) mapOutbox(keys []PublicKey, want *RelayMetadata) map[RelayUrl][]PublicKey {
	acc := make(map[RelayUrl]map[PublicKey]struct{})
	for _, pk := range keys {
		lists, ok := g.data[pk]
		if !ok {
			continue
		}
		for url, meta := range lists.Outbox.Collection {
			if keepEntry(meta, want) {
				addToRelaySet(acc, url, pk)
			}
		}
	}
	return sortedRelaySets(acc)
}

func keepEntry(meta RelayMetadata, want *RelayMetadata) bool {
	if meta == MetadataUnspecified {
		return true
	}
	if want == nil {
		return true
	}
	return meta == *want
}

func addToRelaySet(acc map[RelayUrl]map[PublicKey]struct{}, url RelayUrl, pk PublicKey) {
	set, ok := acc[url]
	if !ok {
		set = make(map[PublicKey]struct{})
		acc[url] = set
	}
	set[pk] = struct{}{}
}

func sortedRelaySets(acc map[RelayUrl]map[PublicKey]struct{}) map[RelayUrl][]PublicKey {
	out := make(map[RelayUrl][]PublicKey, len(acc))
	for url, set := range acc {
		keys := make([]PublicKey, 0, len(set))
		for pk := range set {
			keys = append(keys, pk)
		}
		sort.Slice(keys, func(i, j int) bool {
			return keys[i].Hex() < keys[j].Hex()
		})
		out[url] = keys
	}
	return out
}
