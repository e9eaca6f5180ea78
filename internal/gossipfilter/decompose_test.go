package gossipfilter

import (
	"sort"
	"strings"
	"testing"

	"github.com/nbd-wtf/go-nostr"

	"github.com/sandwichfarm/outbox/internal/gossip"
)

// Pinned test vectors, matching the original implementation's fixture
// keys and relay lists exactly.
const (
	keyAHex = "aa4fc8665f5696e33db7e1a572e3b0f5b3d615837b0f362dcb1c8068b098c7b4"
	keyBHex = "79dff8f82963424e0bb02708a22e44b4980893e3a4be0fa3cb60a43b946764e3"
)

func setupDecomposeGraph(t *testing.T) *gossip.Graph {
	t.Helper()
	g := gossip.NewGraph()

	a := mustPK(t, keyAHex)
	b := mustPK(t, keyBHex)

	damus := mustRelay(t, "wss://relay.damus.io")
	nostrBg := mustRelay(t, "wss://relay.nostr.bg")
	nosLol := mustRelay(t, "wss://nos.lol")
	nostrMom := mustRelay(t, "wss://nostr.mom")
	nostrInfo := mustRelay(t, "wss://relay.nostr.info")
	relayRip := mustRelay(t, "wss://relay.rip")
	snort := mustRelay(t, "wss://relay.snort.social")

	g.Ingest([]gossip.IngestEvent{
		{
			PubKey: a, CreatedAt: 100, Kind: gossip.KindRelayList,
			OutboxEntries: []gossip.OutboxEntry{
				{URL: damus, Metadata: gossip.MetadataUnspecified},
				{URL: nostrBg, Metadata: gossip.MetadataUnspecified},
				{URL: nosLol, Metadata: gossip.MetadataWrite},
				{URL: nostrMom, Metadata: gossip.MetadataRead},
			},
		},
		{
			PubKey: b, CreatedAt: 100, Kind: gossip.KindRelayList,
			OutboxEntries: []gossip.OutboxEntry{
				{URL: damus, Metadata: gossip.MetadataWrite},
				{URL: nostrInfo, Metadata: gossip.MetadataUnspecified},
				{URL: relayRip, Metadata: gossip.MetadataWrite},
				{URL: snort, Metadata: gossip.MetadataRead},
			},
		},
	})

	return g
}

func mustPK(t *testing.T, h string) gossip.PublicKey {
	t.Helper()
	pk, err := gossip.ParsePublicKeyHex(h)
	if err != nil {
		t.Fatalf("ParsePublicKeyHex: %v", err)
	}
	return pk
}

func mustRelay(t *testing.T, raw string) gossip.RelayUrl {
	t.Helper()
	u, err := gossip.NormalizeRelayUrl(raw)
	if err != nil {
		t.Fatalf("NormalizeRelayUrl: %v", err)
	}
	return u
}

func sortedAuthors(f nostr.Filter) []string {
	out := append([]string(nil), f.Authors...)
	sort.Strings(out)
	return out
}

func TestDecomposeSingleAuthorFilter(t *testing.T) {
	g := setupDecomposeGraph(t)
	snap := g.Snapshot()
	defer snap.Release()

	filter := nostr.Filter{Authors: []string{keyAHex}}
	result := Decompose([]nostr.Filter{filter}, snap, nil)

	for _, relay := range []string{"wss://relay.damus.io", "wss://relay.nostr.bg", "wss://nos.lol"} {
		fs, ok := result.Filters[gossip.RelayUrl(relay)]
		if !ok || len(fs) != 1 {
			t.Fatalf("expected exactly one derived filter at %s, got %v", relay, fs)
		}
		if got := sortedAuthors(fs[0]); len(got) != 1 || got[0] != keyAHex {
			t.Errorf("expected author %s at %s, got %v", keyAHex, relay, got)
		}
	}
	if _, ok := result.Filters[gossip.RelayUrl("wss://nostr.mom")]; ok {
		t.Errorf("read-only relay nostr.mom must not receive an authors-only outbox filter")
	}
	if len(result.Orphans) != 0 {
		t.Errorf("expected no orphans, got %v", result.Orphans)
	}
	if len(result.Others) != 0 {
		t.Errorf("expected no others, got %v", result.Others)
	}
}

func TestDecomposeMultipleAuthorsAndGenericFilter(t *testing.T) {
	g := setupDecomposeGraph(t)
	snap := g.Snapshot()
	defer snap.Release()

	authorsFilter := nostr.Filter{Authors: []string{keyAHex, keyBHex}}
	searchFilter := nostr.Filter{Search: "Test", Limit: 10}
	result := Decompose([]nostr.Filter{authorsFilter, searchFilter}, snap, nil)

	damus := result.Filters[gossip.RelayUrl("wss://relay.damus.io")]
	if len(damus) != 1 || len(sortedAuthors(damus[0])) != 2 {
		t.Fatalf("expected damus to receive the combined two-author filter, got %v", damus)
	}

	nostrBg := result.Filters[gossip.RelayUrl("wss://relay.nostr.bg")]
	if len(nostrBg) != 1 || sortedAuthors(nostrBg[0])[0] != keyAHex || len(nostrBg[0].Authors) != 1 {
		t.Fatalf("expected nostr.bg to receive only author A, got %v", nostrBg)
	}

	if _, ok := result.Filters[gossip.RelayUrl("wss://nostr.mom")]; ok {
		t.Errorf("nostr.mom is read-only for A; must not receive an outbox filter")
	}
	if _, ok := result.Filters[gossip.RelayUrl("wss://relay.snort.social")]; ok {
		t.Errorf("snort.social is read-only for B; must not receive an outbox filter")
	}

	nostrInfo := result.Filters[gossip.RelayUrl("wss://relay.nostr.info")]
	if len(nostrInfo) != 1 || sortedAuthors(nostrInfo[0])[0] != keyBHex {
		t.Fatalf("expected nostr.info to receive only author B, got %v", nostrInfo)
	}

	if len(result.Orphans) != 0 {
		t.Errorf("expected no orphans, got %v", result.Orphans)
	}
	if len(result.Others) != 1 {
		t.Fatalf("expected the generic search filter routed to others, got %v", result.Others)
	}
}

func TestDecomposeAuthorsAndPTagsCombinedFilter(t *testing.T) {
	g := setupDecomposeGraph(t)
	snap := g.Snapshot()
	defer snap.Release()

	filter := nostr.Filter{
		Authors: []string{keyAHex},
		Tags:    nostr.TagMap{"p": []string{keyBHex}},
	}
	result := Decompose([]nostr.Filter{filter}, snap, nil)

	// Authors=A and p=B should route to every relay reachable from
	// either key, unmodified, including nostr.mom (read relay for A)
	// and snort.social (read relay for B) since the combined-filter
	// case is not restricted to write/outbox roles.
	for _, relay := range []string{
		"wss://relay.damus.io", "wss://relay.nostr.bg", "wss://nos.lol", "wss://nostr.mom",
		"wss://relay.nostr.info", "wss://relay.rip", "wss://relay.snort.social",
	} {
		fs, ok := result.Filters[gossip.RelayUrl(relay)]
		if !ok || len(fs) != 1 {
			t.Fatalf("expected unmodified combined filter routed to %s, got %v", relay, fs)
		}
		if len(fs[0].Authors) != 1 || fs[0].Authors[0] != keyAHex {
			t.Errorf("combined-filter case must not rewrite authors, got %v", fs[0].Authors)
		}
		if len(fs[0].Tags["p"]) != 1 || fs[0].Tags["p"][0] != keyBHex {
			t.Errorf("combined-filter case must not rewrite p-tags, got %v", fs[0].Tags)
		}
	}
}

func TestDecomposeOrphanFilterForUnknownAuthor(t *testing.T) {
	g := setupDecomposeGraph(t)
	snap := g.Snapshot()
	defer snap.Release()

	unknown := strings.Repeat("11", 32)
	filter := nostr.Filter{Authors: []string{unknown}}
	result := Decompose([]nostr.Filter{filter}, snap, nil)

	if len(result.Filters) != 0 {
		t.Errorf("expected no routed filters for an unknown author, got %v", result.Filters)
	}
	if len(result.Orphans) != 1 {
		t.Fatalf("expected the filter to be orphaned, got %v", result.Orphans)
	}
	if len(result.Others) != 0 {
		t.Errorf("expected no others, got %v", result.Others)
	}
}

// TestAllInvalidPTagHexStillTriggersCase3 pins the edge case where a
// filter carries both authors and a "p" tag key, but every p-tag
// value fails hex parsing: the filter is still routed through the
// combined authors+p-tags case (not the authors-only case), which can
// produce an orphan if the author side alone has no usable relays.
func TestAllInvalidPTagHexStillTriggersCase3(t *testing.T) {
	g := gossip.NewGraph()
	unknownAuthor := strings.Repeat("22", 32)

	snap := g.Snapshot()
	defer snap.Release()

	filter := nostr.Filter{
		Authors: []string{unknownAuthor},
		Tags:    nostr.TagMap{"p": []string{"not-valid-hex", "also-not-hex"}},
	}
	result := Decompose([]nostr.Filter{filter}, snap, nil)

	if len(result.Others) != 0 {
		t.Errorf("a present-but-all-invalid p-tag must not fall through to the others case, got %v", result.Others)
	}
	if len(result.Orphans) != 1 {
		t.Fatalf("expected orphan when both authors and p-tags resolve to no relays, got filters=%v orphans=%v", result.Filters, result.Orphans)
	}
}

func TestDecomposePTagOnlyFilter(t *testing.T) {
	g := setupDecomposeGraph(t)
	snap := g.Snapshot()
	defer snap.Release()

	filter := nostr.Filter{Tags: nostr.TagMap{"p": []string{keyAHex}}}
	result := Decompose([]nostr.Filter{filter}, snap, nil)

	// p-tag routing uses inbox (read-or-unspecified) relays: nostr.mom
	// (read for A) must receive it, nos.lol (write-only for A) must not.
	if _, ok := result.Filters[gossip.RelayUrl("wss://nostr.mom")]; !ok {
		t.Errorf("expected read relay nostr.mom to receive the p-tag filter")
	}
	if _, ok := result.Filters[gossip.RelayUrl("wss://nos.lol")]; ok {
		t.Errorf("write-only relay nos.lol must not receive a p-tag inbox filter")
	}
	damus := result.Filters[gossip.RelayUrl("wss://relay.damus.io")]
	if len(damus) != 1 || len(damus[0].Tags["p"]) != 1 || damus[0].Tags["p"][0] != keyAHex {
		t.Fatalf("expected damus filter with rewritten p-tag, got %v", damus)
	}
}
