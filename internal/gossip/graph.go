package gossip

import (
	"log/slog"
	"sync"
	"time"
)

// EventKind distinguishes the two relay-list record kinds the graph
// understands. Any other kind is ignored during ingestion.
type EventKind int

const (
	KindOther EventKind = iota
	// KindRelayList is the NIP-65 outbox/inbox annotated list.
	KindRelayList
	// KindInboxRelays is the NIP-17 direct-inbox unannotated set.
	KindInboxRelays
)

// OutboxEntry is one (relay, annotation) pair extracted from a
// RelayList-kind event by the external collaborator that decodes the
// wire format.
type OutboxEntry struct {
	URL      RelayUrl
	Metadata RelayMetadata
}

// IngestEvent is the graph's input shape: already-decoded relay-list
// data plus the version/authorship fields ingestion needs. Decoding
// the actual event tags into this shape is the external collaborator's
// job (internal/nostr.ParseRelayLists in this repo).
type IngestEvent struct {
	PubKey    PublicKey
	CreatedAt Timestamp
	Kind      EventKind

	// Populated when Kind == KindRelayList.
	OutboxEntries []OutboxEntry
	// Populated when Kind == KindInboxRelays.
	DirectInboxEntries []RelayUrl
}

// GraphConfig tunes the constants spec §6 calls implementation-defined.
type GraphConfig struct {
	MaxRelaysList               int
	PubkeyMetadataOutdatedAfter time.Duration
	CheckOutdatedInterval       time.Duration
	Logger                      *slog.Logger
}

func (c GraphConfig) withDefaults() GraphConfig {
	if c.MaxRelaysList <= 0 {
		c.MaxRelaysList = DefaultMaxRelaysList
	}
	if c.PubkeyMetadataOutdatedAfter <= 0 {
		c.PubkeyMetadataOutdatedAfter = DefaultPubkeyMetadataOutdatedAfter
	}
	if c.CheckOutdatedInterval <= 0 {
		c.CheckOutdatedInterval = DefaultCheckOutdatedInterval
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Graph is the concurrent store keyed by public key: the single
// owned piece of mutable state this core holds. All operations
// suspend only on lock acquisition; none perform I/O.
type Graph struct {
	mu   sync.RWMutex
	data map[PublicKey]*RelayLists

	cfg GraphConfig
}

// NewGraph returns an empty graph using the design-level default
// constants.
func NewGraph() *Graph {
	return NewGraphWithConfig(GraphConfig{})
}

// NewGraphWithConfig returns an empty graph using the given tunables;
// zero-valued fields fall back to the documented defaults.
func NewGraphWithConfig(cfg GraphConfig) *Graph {
	return &Graph{
		data: make(map[PublicKey]*RelayLists),
		cfg:  cfg.withDefaults(),
	}
}

// Ingest applies a batch of already-decoded relay-list events under a
// single write-lock acquisition. Within the batch, a record's final
// state is independent of iteration order for distinct created_at
// values; ties go to whichever record was iterated last.
func (g *Graph) Ingest(events []IngestEvent) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := Now()
	for _, ev := range events {
		switch ev.Kind {
		case KindRelayList:
			g.ingestOutboxLocked(ev, now)
		case KindInboxRelays:
			g.ingestDirectInboxLocked(ev, now)
		default:
			// Non-relevant event kind: silently skipped.
		}
	}
}

func (g *Graph) recordLocked(pk PublicKey) *RelayLists {
	lists, ok := g.data[pk]
	if !ok {
		lists = newEmptyRelayLists()
		g.data[pk] = lists
	}
	return lists
}

func (g *Graph) ingestOutboxLocked(ev IngestEvent, now Timestamp) {
	lists := g.recordLocked(ev.PubKey)

	// Monotonicity: a newer-or-equal record wins; an older one is
	// silently skipped. A brand-new record's EventCreatedAt is the Go
	// zero value (epoch), so the very first list for a key always
	// wins this test.
	if ev.CreatedAt < lists.Outbox.EventCreatedAt {
		g.cfg.Logger.Debug("ingest: stale RelayList skipped",
			"pubkey", ev.PubKey.Hex(), "created_at", ev.CreatedAt, "have", lists.Outbox.EventCreatedAt)
		return
	}

	max := g.cfg.MaxRelaysList
	collection := make(OutboxMap, min(len(ev.OutboxEntries), max))
	for i, entry := range ev.OutboxEntries {
		if i >= max {
			break
		}
		collection[entry.URL] = entry.Metadata
	}

	lists.Outbox = RelayList[OutboxMap]{
		Collection:     collection,
		EventCreatedAt: ev.CreatedAt,
		LastUpdate:     now,
	}
	g.cfg.Logger.Debug("ingest: RelayList accepted",
		"pubkey", ev.PubKey.Hex(), "created_at", ev.CreatedAt, "relays", len(collection))
}

func (g *Graph) ingestDirectInboxLocked(ev IngestEvent, now Timestamp) {
	lists := g.recordLocked(ev.PubKey)

	if ev.CreatedAt < lists.DirectInbox.EventCreatedAt {
		g.cfg.Logger.Debug("ingest: stale InboxRelays skipped",
			"pubkey", ev.PubKey.Hex(), "created_at", ev.CreatedAt, "have", lists.DirectInbox.EventCreatedAt)
		return
	}

	max := g.cfg.MaxRelaysList
	collection := make(DirectInboxSet, min(len(ev.DirectInboxEntries), max))
	for i, url := range ev.DirectInboxEntries {
		if i >= max {
			break
		}
		collection[url] = struct{}{}
	}

	lists.DirectInbox = RelayList[DirectInboxSet]{
		Collection:     collection,
		EventCreatedAt: ev.CreatedAt,
		LastUpdate:     now,
	}
	g.cfg.Logger.Debug("ingest: InboxRelays accepted",
		"pubkey", ev.PubKey.Hex(), "created_at", ev.CreatedAt, "relays", len(collection))
}

// CheckOutdated reports which of the given keys need a fresh relay-
// list fetch: absent keys, keys whose lists are empty, or keys whose
// lists haven't been refreshed within PubkeyMetadataOutdatedAfter.
// Keys checked within the last CheckOutdatedInterval are skipped.
func (g *Graph) CheckOutdated(keys []PublicKey) map[PublicKey]struct{} {
	g.mu.RLock()
	defer g.mu.RUnlock()

	now := Now()
	outdated := make(map[PublicKey]struct{})

	for _, pk := range keys {
		lists, ok := g.data[pk]
		if !ok {
			outdated[pk] = struct{}{}
			continue
		}
		if lists.LastCheck.Add(g.cfg.CheckOutdatedInterval) > now {
			continue
		}

		expired := lists.Outbox.LastUpdate.Add(g.cfg.PubkeyMetadataOutdatedAfter) < now ||
			lists.DirectInbox.LastUpdate.Add(g.cfg.PubkeyMetadataOutdatedAfter) < now

		if lists.empty() || expired {
			outdated[pk] = struct{}{}
		}
	}

	return outdated
}

// UpdateLastCheck stamps last_check = now for each key, creating an
// empty record for any key not yet seen.
func (g *Graph) UpdateLastCheck(keys []PublicKey) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := Now()
	for _, pk := range keys {
		g.recordLocked(pk).LastCheck = now
	}
}

// Size reports the number of public keys the graph currently tracks.
func (g *Graph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.data)
}

// KeyAge is a snapshot of one tracked key's list freshness, used for
// diagnostics reporting.
type KeyAge struct {
	PubKey         PublicKey
	OutboxAge      time.Duration
	DirectInboxAge time.Duration
	LastCheckAge   time.Duration
}

// KeyAges returns a freshness snapshot for every tracked key. It
// acquires the read lock once for the whole pass, per the "one
// logical operation, one lock acquisition" rule the rest of the graph
// follows.
func (g *Graph) KeyAges() []KeyAge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	now := Now()
	ages := make([]KeyAge, 0, len(g.data))
	for pk, lists := range g.data {
		ages = append(ages, KeyAge{
			PubKey:         pk,
			OutboxAge:      time.Duration(now-lists.Outbox.LastUpdate) * time.Second,
			DirectInboxAge: time.Duration(now-lists.DirectInbox.LastUpdate) * time.Second,
			LastCheckAge:   time.Duration(now-lists.LastCheck) * time.Second,
		})
	}
	return ages
}
