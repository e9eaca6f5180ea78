package nostr

import (
	"testing"

	"github.com/nbd-wtf/go-nostr"

	"github.com/sandwichfarm/outbox/internal/gossip"
)

const testPubkeyHex = "aa4fc8665f5696e33db7e1a572e3b0f5b3d615837b0f362dcb1c8068b098c7b4"

func TestParseRelayListsDecodesOutboxEntries(t *testing.T) {
	event := &nostr.Event{
		PubKey:    testPubkeyHex,
		Kind:      RelayListKind,
		CreatedAt: 1000,
		Tags: nostr.Tags{
			{"r", "wss://relay.damus.io"},
			{"r", "wss://nos.lol", "write"},
			{"r", "wss://nostr.mom", "read"},
			{"r", "not a valid url"},
		},
	}

	ev, err := ParseRelayLists(event)
	if err != nil {
		t.Fatalf("ParseRelayLists: %v", err)
	}
	if ev.Kind != gossip.KindRelayList {
		t.Fatalf("expected KindRelayList, got %v", ev.Kind)
	}
	if len(ev.OutboxEntries) != 3 {
		t.Fatalf("expected 3 valid entries (malformed URL dropped), got %d: %v", len(ev.OutboxEntries), ev.OutboxEntries)
	}

	byURL := make(map[gossip.RelayUrl]gossip.RelayMetadata)
	for _, e := range ev.OutboxEntries {
		byURL[e.URL] = e.Metadata
	}
	if byURL["wss://relay.damus.io"] != gossip.MetadataUnspecified {
		t.Errorf("expected unspecified metadata for damus, got %v", byURL["wss://relay.damus.io"])
	}
	if byURL["wss://nos.lol"] != gossip.MetadataWrite {
		t.Errorf("expected write metadata for nos.lol, got %v", byURL["wss://nos.lol"])
	}
	if byURL["wss://nostr.mom"] != gossip.MetadataRead {
		t.Errorf("expected read metadata for nostr.mom, got %v", byURL["wss://nostr.mom"])
	}
}

func TestParseRelayListsDecodesDirectInboxEntries(t *testing.T) {
	event := &nostr.Event{
		PubKey:    testPubkeyHex,
		Kind:      InboxRelaysKind,
		CreatedAt: 500,
		Tags: nostr.Tags{
			{"relay", "wss://inbox.example"},
			{"relay", "wss://inbox2.example"},
		},
	}

	ev, err := ParseRelayLists(event)
	if err != nil {
		t.Fatalf("ParseRelayLists: %v", err)
	}
	if ev.Kind != gossip.KindInboxRelays {
		t.Fatalf("expected KindInboxRelays, got %v", ev.Kind)
	}
	if len(ev.DirectInboxEntries) != 2 {
		t.Fatalf("expected 2 inbox entries, got %d", len(ev.DirectInboxEntries))
	}
}

func TestParseRelayListsRejectsUnsupportedKind(t *testing.T) {
	event := &nostr.Event{PubKey: testPubkeyHex, Kind: 1, CreatedAt: 100}
	if _, err := ParseRelayLists(event); err == nil {
		t.Error("expected an error for an unsupported event kind")
	}
}

func TestParseRelayListsRejectsMalformedPubkey(t *testing.T) {
	event := &nostr.Event{PubKey: "not-hex", Kind: RelayListKind}
	if _, err := ParseRelayLists(event); err == nil {
		t.Error("expected an error for a malformed pubkey")
	}
}

func TestBuildRelayListEventRoundTrips(t *testing.T) {
	url, err := gossip.NormalizeRelayUrl("wss://relay.damus.io")
	if err != nil {
		t.Fatalf("NormalizeRelayUrl: %v", err)
	}
	entries := []gossip.OutboxEntry{{URL: url, Metadata: gossip.MetadataWrite}}

	event := BuildRelayListEvent(testPubkeyHex, entries)
	ev, err := ParseRelayLists(event)
	if err != nil {
		t.Fatalf("ParseRelayLists(BuildRelayListEvent(...)): %v", err)
	}
	if len(ev.OutboxEntries) != 1 || ev.OutboxEntries[0].URL != url || ev.OutboxEntries[0].Metadata != gossip.MetadataWrite {
		t.Errorf("round trip mismatch: %v", ev.OutboxEntries)
	}
}
