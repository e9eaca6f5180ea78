// Package gossipfilter breaks a batch of Nostr filters down into the
// set of per-relay filters that will actually reach the data those
// filters ask for, using a gossip.Graph snapshot to resolve each
// filter's authors/p-tags to outbox and inbox relays.
package gossipfilter

import (
	"log/slog"
	"reflect"
	"sort"

	"github.com/nbd-wtf/go-nostr"

	"github.com/sandwichfarm/outbox/internal/gossip"
)

// pTagKey is the single-letter tag nostr.Filter.Tags is keyed by for
// "mentions this pubkey" queries.
const pTagKey = "p"

// BrokenDownFilters is the result of decomposing a filter batch
// against a relay graph snapshot.
type BrokenDownFilters struct {
	// Filters holds, per relay, the filters that should be sent there.
	// A relay's slice may contain several distinct derived filters
	// when more than one input filter routes to it.
	Filters map[gossip.RelayUrl][]nostr.Filter

	// Orphans holds filters whose authors/p-tags resolved to no known
	// relay at all.
	Orphans []nostr.Filter

	// Others holds filters with neither authors nor p-tags: generic
	// queries unrelated to any pubkey, which the caller routes by its
	// own policy (e.g. to a fixed set of read relays).
	Others []nostr.Filter

	// Urls is the union of every relay that appears in Filters.
	Urls map[gossip.RelayUrl]struct{}
}

// Decompose resolves each filter in filters against snap, grouping the
// derived, per-relay filters it produces. It takes a single Snapshot so
// the whole batch observes one consistent view of the graph, per the
// "acquire the lock once per logical operation" rule.
func Decompose(filters []nostr.Filter, snap *gossip.Snapshot, logger *slog.Logger) *BrokenDownFilters {
	if logger == nil {
		logger = slog.Default()
	}

	out := &BrokenDownFilters{
		Filters: make(map[gossip.RelayUrl][]nostr.Filter),
		Urls:    make(map[gossip.RelayUrl]struct{}),
	}

	for _, filter := range filters {
		authors := parseKeys(filter.Authors)
		pTags, hasPTag := parsePTag(filter.Tags)

		switch {
		case len(filter.Authors) > 0 && !hasPTag:
			decomposeAuthorsOnly(filter, authors, snap, out)

		case len(filter.Authors) == 0 && hasPTag:
			decomposePTagsOnly(filter, pTags, snap, out)

		case len(filter.Authors) > 0 && hasPTag:
			decomposeAuthorsAndPTags(filter, authors, pTags, snap, out)

		default:
			out.Others = append(out.Others, filter)
		}
	}

	logger.Debug("filters decomposed",
		"relays", len(out.Filters), "orphans", len(out.Orphans), "others", len(out.Others))

	return out
}

// decomposeAuthorsOnly handles (authors=Some, p_tag=None): route by
// each author's outbox relays (their own posts reach write relays),
// extended with their NIP-17 direct-inbox relays.
func decomposeAuthorsOnly(filter nostr.Filter, authors []gossip.PublicKey, snap *gossip.Snapshot, out *BrokenDownFilters) {
	byRelay := mergeKeySets(snap.MapOutbox(authors), snap.MapDirectInbox(authors))
	if len(byRelay) == 0 {
		out.Orphans = append(out.Orphans, filter)
		return
	}

	for relay, keys := range byRelay {
		out.Urls[relay] = struct{}{}
		derived := cloneFilter(filter)
		derived.Authors = keysToHex(keys)
		appendFilter(out.Filters, relay, derived)
	}
}

// decomposePTagsOnly handles (authors=None, p_tag=Some): route by each
// mentioned key's inbox relays, extended with direct-inbox relays.
func decomposePTagsOnly(filter nostr.Filter, pTags []gossip.PublicKey, snap *gossip.Snapshot, out *BrokenDownFilters) {
	byRelay := mergeKeySets(snap.MapInbox(pTags), snap.MapDirectInbox(pTags))
	if len(byRelay) == 0 {
		out.Orphans = append(out.Orphans, filter)
		return
	}

	for relay, keys := range byRelay {
		out.Urls[relay] = struct{}{}
		derived := cloneFilter(filter)
		derived.Tags = cloneTagMap(filter.Tags)
		derived.Tags[pTagKey] = keysToHex(keys)
		appendFilter(out.Filters, relay, derived)
	}
}

// decomposeAuthorsAndPTags handles (authors=Some, p_tag=Some): the
// filter already pins both sides, so it is routed unmodified to every
// relay reachable from either side (any relay role, not just write or
// read), without rewriting authors or p-tags.
func decomposeAuthorsAndPTags(filter nostr.Filter, authors, pTags []gossip.PublicKey, snap *gossip.Snapshot, out *BrokenDownFilters) {
	union := unionKeys(authors, pTags)

	relays := snap.GetOutboxAny(union)
	for relay := range snap.GetDirectInbox(union) {
		relays[relay] = struct{}{}
	}

	if len(relays) == 0 {
		out.Orphans = append(out.Orphans, filter)
		return
	}

	for relay := range relays {
		out.Urls[relay] = struct{}{}
		appendFilter(out.Filters, relay, cloneFilter(filter))
	}
}

// parseKeys decodes a filter's Authors hex strings, silently dropping
// any that fail to parse.
func parseKeys(hexes []string) []gossip.PublicKey {
	keys := make([]gossip.PublicKey, 0, len(hexes))
	for _, h := range hexes {
		pk, err := gossip.ParsePublicKeyHex(h)
		if err != nil {
			continue
		}
		keys = append(keys, pk)
	}
	return keys
}

// parsePTag extracts and decodes the filter's "p" tag values. It
// reports hasPTag = true whenever the tag key is present at all, even
// if every value fails to parse as hex — an all-invalid p-tag list
// still counts as "p tags present" for the purpose of routing, it
// simply resolves to zero keys and therefore an empty relay set.
func parsePTag(tags nostr.TagMap) (keys []gossip.PublicKey, hasPTag bool) {
	if tags == nil {
		return nil, false
	}
	values, ok := tags[pTagKey]
	if !ok {
		return nil, false
	}
	return parseKeys(values), true
}

// mergeKeySets unions two relay->keys maps, deduplicating keys per
// relay.
func mergeKeySets(a, b map[gossip.RelayUrl][]gossip.PublicKey) map[gossip.RelayUrl][]gossip.PublicKey {
	out := make(map[gossip.RelayUrl]map[gossip.PublicKey]struct{})
	add := func(src map[gossip.RelayUrl][]gossip.PublicKey) {
		for relay, keys := range src {
			set, ok := out[relay]
			if !ok {
				set = make(map[gossip.PublicKey]struct{}, len(keys))
				out[relay] = set
			}
			for _, k := range keys {
				set[k] = struct{}{}
			}
		}
	}
	add(a)
	add(b)

	result := make(map[gossip.RelayUrl][]gossip.PublicKey, len(out))
	for relay, set := range out {
		keys := make([]gossip.PublicKey, 0, len(set))
		for k := range set {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i].Hex() < keys[j].Hex() })
		result[relay] = keys
	}
	return result
}

func unionKeys(a, b []gossip.PublicKey) []gossip.PublicKey {
	seen := make(map[gossip.PublicKey]struct{}, len(a)+len(b))
	for _, k := range a {
		seen[k] = struct{}{}
	}
	for _, k := range b {
		seen[k] = struct{}{}
	}
	out := make([]gossip.PublicKey, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	return out
}

func keysToHex(keys []gossip.PublicKey) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.Hex()
	}
	return out
}

// appendFilter adds f to relay's slice unless an identical filter is
// already there.
func appendFilter(m map[gossip.RelayUrl][]nostr.Filter, relay gossip.RelayUrl, f nostr.Filter) {
	for _, existing := range m[relay] {
		if reflect.DeepEqual(existing, f) {
			return
		}
	}
	m[relay] = append(m[relay], f)
}

// cloneFilter copies every facet of f except Authors/Tags, which the
// caller overwrites; Authors/Tags are copied here too so an untouched
// clone is still independent of the original's backing arrays.
func cloneFilter(f nostr.Filter) nostr.Filter {
	clone := f
	clone.Authors = append([]string(nil), f.Authors...)
	clone.Kinds = append([]int(nil), f.Kinds...)
	clone.IDs = append([]string(nil), f.IDs...)
	clone.Tags = cloneTagMap(f.Tags)
	return clone
}

func cloneTagMap(tags nostr.TagMap) nostr.TagMap {
	if tags == nil {
		return nil
	}
	out := make(nostr.TagMap, len(tags))
	for k, v := range tags {
		out[k] = append([]string(nil), v...)
	}
	return out
}
