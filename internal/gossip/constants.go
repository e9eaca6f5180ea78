package gossip

import "time"

// Design-level defaults (spec §6). A Graph may be constructed with
// different values via NewGraphWithConfig.
const (
	// DefaultMaxRelaysList caps how many relay entries are kept per
	// record. This is a per-record truncation, not a global cap.
	DefaultMaxRelaysList = 8

	// DefaultPubkeyMetadataOutdatedAfter is the staleness horizon
	// past which a key's lists are considered outdated even if
	// present.
	DefaultPubkeyMetadataOutdatedAfter = time.Hour

	// DefaultCheckOutdatedInterval is the minimum gap between
	// outdated-checks for the same key.
	DefaultCheckOutdatedInterval = time.Hour
)
