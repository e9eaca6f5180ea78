package nostr

import (
	"context"
	"fmt"
	"time"

	"github.com/nbd-wtf/go-nostr"

	"github.com/sandwichfarm/outbox/internal/gossip"
)

// Discovery bootstraps a gossip.Graph from seed relays: it fetches
// kind 10002/10050 relay-list events and ingests them, so the graph
// can answer outbox/inbox queries for keys it has not yet seen
// through normal subscription traffic.
type Discovery struct {
	client *Client
	graph  *gossip.Graph
	seen   *seenEvents
}

// NewDiscovery creates a relay discovery instance bound to a client
// and the graph it populates.
func NewDiscovery(client *Client, graph *gossip.Graph) *Discovery {
	return &Discovery{client: client, graph: graph, seen: newSeenEvents()}
}

// relayListFilter matches both NIP-65 relay lists and NIP-17 direct
// inbox lists for the given authors.
func relayListFilter(authors []string) nostr.Filter {
	return nostr.Filter{
		Kinds:   []int{RelayListKind, InboxRelaysKind},
		Authors: authors,
	}
}

// BootstrapFromSeeds fetches the operator's relay lists from the
// configured seed relays and ingests them into the graph.
func (d *Discovery) BootstrapFromSeeds(ctx context.Context, operatorPubkey string) error {
	seedRelays := d.client.GetSeedRelays()
	if len(seedRelays) == 0 {
		return fmt.Errorf("no seed relays configured")
	}

	timeout := d.client.GetDefaultTimeout()
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	events, err := d.client.FetchEvents(fetchCtx, seedRelays, relayListFilter([]string{operatorPubkey}))
	if err != nil {
		return fmt.Errorf("failed to fetch relay lists from seeds: %w", err)
	}
	if len(events) == 0 {
		return fmt.Errorf("no relay lists found for operator pubkey %s", operatorPubkey)
	}

	d.ingestEvents(events)
	return nil
}

// DiscoverRelayListsForPubkey fetches a single pubkey's relay lists
// using a caller-provided set of search relays (typically that
// pubkey's already-known outbox relays, or a trusted bootstrap set).
func (d *Discovery) DiscoverRelayListsForPubkey(ctx context.Context, targetPubkey string, searchRelays []string) error {
	if len(searchRelays) == 0 {
		return fmt.Errorf("no relays provided for discovery")
	}

	timeout := d.client.GetDefaultTimeout()
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	events, err := d.client.FetchEvents(fetchCtx, searchRelays, relayListFilter([]string{targetPubkey}))
	if err != nil {
		return fmt.Errorf("failed to fetch relay lists: %w", err)
	}
	if len(events) == 0 {
		// The pubkey may simply not publish relay lists; not an error.
		return nil
	}

	d.ingestEvents(events)
	return nil
}

// DiscoverRelayListsForPubkeys discovers relay lists for a batch of
// pubkeys in one subscription.
func (d *Discovery) DiscoverRelayListsForPubkeys(ctx context.Context, pubkeys []string, searchRelays []string) error {
	if len(searchRelays) == 0 {
		return fmt.Errorf("no relays provided for discovery")
	}
	if len(pubkeys) == 0 {
		return nil
	}

	timeout := d.client.GetDefaultTimeout()
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	events, err := d.client.FetchEvents(fetchCtx, searchRelays, relayListFilter(pubkeys))
	if err != nil {
		return fmt.Errorf("failed to fetch relay lists: %w", err)
	}

	d.ingestEvents(events)
	return nil
}

// ingestEvents decodes each event into a gossip.IngestEvent and
// applies the whole batch under a single write-lock acquisition,
// silently skipping events that fail to parse.
func (d *Discovery) ingestEvents(events []*nostr.Event) {
	batch := make([]gossip.IngestEvent, 0, len(events))
	for _, event := range events {
		if d.seen.markSeen(event.ID) {
			continue
		}
		ev, err := ParseRelayLists(event)
		if err != nil {
			continue
		}
		batch = append(batch, ev)
	}
	d.graph.Ingest(batch)
}

// RefreshOutdated re-discovers relay lists for keys the graph reports
// as outdated, using searchRelays as the relay set to query.
func (d *Discovery) RefreshOutdated(ctx context.Context, keys []gossip.PublicKey, searchRelays []string) error {
	outdated := d.graph.CheckOutdated(keys)
	if len(outdated) == 0 {
		return nil
	}

	hexes := make([]string, 0, len(outdated))
	for pk := range outdated {
		hexes = append(hexes, pk.Hex())
	}

	if err := d.DiscoverRelayListsForPubkeys(ctx, hexes, searchRelays); err != nil {
		return err
	}

	d.graph.UpdateLastCheck(keys)
	return nil
}

// RelayStatus contains relay status information.
type RelayStatus struct {
	URL         string
	Connected   bool
	LastConnect *time.Time
	LastError   error
}

// GetRelays returns status information for the client's configured
// seed relays.
func (d *Discovery) GetRelays() []RelayStatus {
	seedRelays := d.client.GetSeedRelays()
	relays := make([]RelayStatus, 0, len(seedRelays))
	for _, url := range seedRelays {
		relays = append(relays, RelayStatus{URL: url})
	}
	return relays
}
