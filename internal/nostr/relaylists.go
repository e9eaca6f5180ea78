package nostr

import (
	"fmt"
	"strings"

	"github.com/nbd-wtf/go-nostr"

	"github.com/sandwichfarm/outbox/internal/gossip"
)

// RelayListKind is the NIP-65 annotated relay-list event kind.
const RelayListKind = 10002

// InboxRelaysKind is the NIP-17-style direct-inbox relay-list event
// kind.
const InboxRelaysKind = 10050

// ParseRelayLists decodes a kind 10002 or kind 10050 event into the
// gossip graph's ingest shape. Any other kind is rejected; the caller
// filters its subscription to these kinds before calling this.
func ParseRelayLists(event *nostr.Event) (gossip.IngestEvent, error) {
	pk, err := gossip.ParsePublicKeyHex(event.PubKey)
	if err != nil {
		return gossip.IngestEvent{}, fmt.Errorf("relay list event %s: %w", event.ID, err)
	}

	ev := gossip.IngestEvent{
		PubKey:    pk,
		CreatedAt: gossip.Timestamp(event.CreatedAt),
	}

	switch event.Kind {
	case RelayListKind:
		ev.Kind = gossip.KindRelayList
		ev.OutboxEntries = parseOutboxTags(event.Tags)
	case InboxRelaysKind:
		ev.Kind = gossip.KindInboxRelays
		ev.DirectInboxEntries = parseInboxTags(event.Tags)
	default:
		return gossip.IngestEvent{}, fmt.Errorf("event %s has unsupported relay-list kind %d", event.ID, event.Kind)
	}

	return ev, nil
}

// parseOutboxTags extracts ("r", url[, "read"|"write"]) tags per
// NIP-65, silently dropping malformed relay URLs.
func parseOutboxTags(tags nostr.Tags) []gossip.OutboxEntry {
	entries := make([]gossip.OutboxEntry, 0, len(tags))
	for _, tag := range tags {
		if len(tag) < 2 || tag[0] != "r" {
			continue
		}

		url, err := gossip.NormalizeRelayUrl(tag[1])
		if err != nil {
			continue
		}

		meta := gossip.MetadataUnspecified
		if len(tag) >= 3 {
			switch strings.ToLower(tag[2]) {
			case "read":
				meta = gossip.MetadataRead
			case "write":
				meta = gossip.MetadataWrite
			}
		}

		entries = append(entries, gossip.OutboxEntry{URL: url, Metadata: meta})
	}
	return entries
}

// parseInboxTags extracts ("relay", url) tags, silently dropping
// malformed relay URLs.
func parseInboxTags(tags nostr.Tags) []gossip.RelayUrl {
	urls := make([]gossip.RelayUrl, 0, len(tags))
	for _, tag := range tags {
		if len(tag) < 2 || tag[0] != "relay" {
			continue
		}
		url, err := gossip.NormalizeRelayUrl(tag[1])
		if err != nil {
			continue
		}
		urls = append(urls, url)
	}
	return urls
}

// BuildRelayListEvent constructs an unsigned kind 10002 event from a
// graph's current outbox entries, for publishing one's own relay list.
func BuildRelayListEvent(pubkeyHex string, entries []gossip.OutboxEntry) *nostr.Event {
	event := &nostr.Event{
		PubKey:    pubkeyHex,
		Kind:      RelayListKind,
		CreatedAt: nostr.Now(),
		Tags:      make(nostr.Tags, 0, len(entries)),
	}

	for _, entry := range entries {
		tag := nostr.Tag{"r", string(entry.URL)}
		switch entry.Metadata {
		case gossip.MetadataRead:
			tag = append(tag, "read")
		case gossip.MetadataWrite:
			tag = append(tag, "write")
		}
		event.Tags = append(event.Tags, tag)
	}

	return event
}

// BuildInboxRelaysEvent constructs an unsigned kind 10050 event from a
// set of direct-inbox relay URLs.
func BuildInboxRelaysEvent(pubkeyHex string, urls []gossip.RelayUrl) *nostr.Event {
	event := &nostr.Event{
		PubKey:    pubkeyHex,
		Kind:      InboxRelaysKind,
		CreatedAt: nostr.Now(),
		Tags:      make(nostr.Tags, 0, len(urls)),
	}
	for _, url := range urls {
		event.Tags = append(event.Tags, nostr.Tag{"relay", string(url)})
	}
	return event
}

// ValidateRelayURL performs basic validation on a relay URL.
func ValidateRelayURL(url string) bool {
	return nostr.IsValidRelayURL(url)
}
