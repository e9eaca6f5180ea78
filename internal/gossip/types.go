package gossip

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// PublicKey is a 32-byte Nostr public key.
type PublicKey [32]byte

// ParsePublicKeyHex decodes a 64-character lowercase hex string into
// a PublicKey. Returns an error on malformed hex or wrong length —
// callers that must silently drop bad input (e.g. the filter
// decomposer's p-tag parsing) check the error themselves rather than
// propagating it.
func ParsePublicKeyHex(s string) (PublicKey, error) {
	var pk PublicKey
	b, err := hex.DecodeString(s)
	if err != nil {
		return pk, fmt.Errorf("invalid public key hex %q: %w", s, err)
	}
	if len(b) != len(pk) {
		return pk, fmt.Errorf("invalid public key length %q: got %d bytes, want %d", s, len(b), len(pk))
	}
	copy(pk[:], b)
	return pk, nil
}

// Hex returns the lowercase hex encoding of the key.
func (pk PublicKey) Hex() string {
	return hex.EncodeToString(pk[:])
}

func (pk PublicKey) String() string { return pk.Hex() }

// RelayUrl is a canonicalized relay endpoint identifier.
type RelayUrl string

// NormalizeRelayUrl canonicalizes a raw relay URL: trims whitespace,
// lowercases the scheme and host, and drops a trailing slash from a
// root path. Equality and hashing of RelayUrl are by this canonical
// form.
func NormalizeRelayUrl(raw string) (RelayUrl, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("empty relay url")
	}

	schemeSep := strings.Index(s, "://")
	if schemeSep < 0 {
		return "", fmt.Errorf("relay url %q missing scheme", raw)
	}
	scheme := strings.ToLower(s[:schemeSep])
	if scheme != "ws" && scheme != "wss" {
		return "", fmt.Errorf("relay url %q has unsupported scheme %q", raw, scheme)
	}
	rest := s[schemeSep+3:]

	pathSep := strings.IndexAny(rest, "/?#")
	host := rest
	path := ""
	if pathSep >= 0 {
		host = rest[:pathSep]
		path = rest[pathSep:]
	}
	if host == "" {
		return "", fmt.Errorf("relay url %q missing host", raw)
	}
	host = strings.ToLower(host)

	if path == "/" {
		path = ""
	}

	return RelayUrl(scheme + "://" + host + path), nil
}

// RelayMetadata annotates a NIP-65 relay-list entry.
type RelayMetadata int

const (
	// MetadataUnspecified means both read and write.
	MetadataUnspecified RelayMetadata = iota
	MetadataRead
	MetadataWrite
)

// Timestamp is Unix seconds.
type Timestamp int64

// Now returns the current wall-clock time as a Timestamp.
func Now() Timestamp { return Timestamp(time.Now().Unix()) }

func (t Timestamp) Add(d time.Duration) Timestamp {
	return t + Timestamp(d/time.Second)
}

func (t Timestamp) Before(other Timestamp) bool { return t < other }
func (t Timestamp) After(other Timestamp) bool  { return t > other }
