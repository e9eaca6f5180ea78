// Package relayopts is the immutable, builder-shaped vocabulary of
// options that govern how a relay connection pool, subscription, and
// set-reconciliation session behave. It has no I/O and no hidden
// state: every "with"-style method returns a new value.
package relayopts

import "time"

// Minimum and default reconnect backoff. Values outside [MinRetryInterval, ∞)
// are silently rejected by RelayOptions.WithRetryInterval.
const (
	MinRetryInterval     = 5 * time.Second
	DefaultRetryInterval = 10 * time.Second
)

// ConnectionMode selects how the pool reaches a relay.
type ConnectionMode int

const (
	ConnectionModeDirect ConnectionMode = iota
	ConnectionModeProxy
	ConnectionModeTunnel
)

// RelayServiceFlags is a bitset of capabilities a relay connection is
// used for.
type RelayServiceFlags uint8

const (
	FlagRead RelayServiceFlags = 1 << iota
	FlagWrite
	FlagPing
)

func (f RelayServiceFlags) Has(flag RelayServiceFlags) bool {
	return f&flag != 0
}

func (f RelayServiceFlags) Add(flag RelayServiceFlags) RelayServiceFlags {
	return f | flag
}

func (f RelayServiceFlags) Remove(flag RelayServiceFlags) RelayServiceFlags {
	return f &^ flag
}

// defaultServiceFlags is READ ∧ WRITE ∧ PING.
const defaultServiceFlags = FlagRead | FlagWrite | FlagPing

// RelayFilteringMode selects how locally-configured event filtering
// rules are interpreted.
type RelayFilteringMode int

const (
	FilteringModeBlocklist RelayFilteringMode = iota
	FilteringModeAllowlist
)

// RelayLimits are per-connection resource caps.
type RelayLimits struct {
	MaxMessageSize int
	MaxTags        int
	MaxSubscribers int
}

// DefaultRelayLimits mirrors the pool's own implementation-defined
// defaults; callers override with RelayOptions.WithLimits.
func DefaultRelayLimits() RelayLimits {
	return RelayLimits{
		MaxMessageSize: 128 * 1024,
		MaxTags:        2000,
		MaxSubscribers: 20,
	}
}

// RelayOptions is an immutable descriptor of how a single relay
// connection should behave. Construct with NewRelayOptions and chain
// With* calls; each returns a new value, never mutates the receiver
// in place.
type RelayOptions struct {
	connectionMode      ConnectionMode
	flags               RelayServiceFlags
	reconnect           bool
	retryInterval       time.Duration
	adjustRetryInterval bool
	limits              RelayLimits
	maxAvgLatency       *time.Duration
	filteringMode       RelayFilteringMode
}

// NewRelayOptions returns the documented defaults: direct connection,
// READ∧WRITE∧PING, auto-reconnect with adaptive 10s backoff, blocklist
// filtering, no latency cap.
func NewRelayOptions() RelayOptions {
	return RelayOptions{
		connectionMode:      ConnectionModeDirect,
		flags:               defaultServiceFlags,
		reconnect:           true,
		retryInterval:       DefaultRetryInterval,
		adjustRetryInterval: true,
		limits:              DefaultRelayLimits(),
		filteringMode:       FilteringModeBlocklist,
	}
}

func (o RelayOptions) WithConnectionMode(mode ConnectionMode) RelayOptions {
	o.connectionMode = mode
	return o
}

func (o RelayOptions) WithFlags(flags RelayServiceFlags) RelayOptions {
	o.flags = flags
	return o
}

func (o RelayOptions) WithRead(read bool) RelayOptions {
	if read {
		o.flags = o.flags.Add(FlagRead)
	} else {
		o.flags = o.flags.Remove(FlagRead)
	}
	return o
}

func (o RelayOptions) WithWrite(write bool) RelayOptions {
	if write {
		o.flags = o.flags.Add(FlagWrite)
	} else {
		o.flags = o.flags.Remove(FlagWrite)
	}
	return o
}

func (o RelayOptions) WithPing(ping bool) RelayOptions {
	if ping {
		o.flags = o.flags.Add(FlagPing)
	} else {
		o.flags = o.flags.Remove(FlagPing)
	}
	return o
}

func (o RelayOptions) WithReconnect(reconnect bool) RelayOptions {
	o.reconnect = reconnect
	return o
}

// WithRetryInterval sets the reconnect backoff. Values below
// MinRetryInterval are silently rejected: the prior value is
// retained so builder chains never need error handling.
func (o RelayOptions) WithRetryInterval(interval time.Duration) RelayOptions {
	if interval >= MinRetryInterval {
		o.retryInterval = interval
	}
	return o
}

func (o RelayOptions) WithAdjustRetryInterval(adjust bool) RelayOptions {
	o.adjustRetryInterval = adjust
	return o
}

func (o RelayOptions) WithLimits(limits RelayLimits) RelayOptions {
	o.limits = limits
	return o
}

// WithMaxAvgLatency sets the latency ceiling above which the relay is
// skipped by the pool. Pass nil to clear it.
func (o RelayOptions) WithMaxAvgLatency(max *time.Duration) RelayOptions {
	o.maxAvgLatency = max
	return o
}

func (o RelayOptions) WithFilteringMode(mode RelayFilteringMode) RelayOptions {
	o.filteringMode = mode
	return o
}

func (o RelayOptions) ConnectionMode() ConnectionMode       { return o.connectionMode }
func (o RelayOptions) Flags() RelayServiceFlags             { return o.flags }
func (o RelayOptions) Reconnect() bool                      { return o.reconnect }
func (o RelayOptions) RetryInterval() time.Duration         { return o.retryInterval }
func (o RelayOptions) AdjustRetryInterval() bool            { return o.adjustRetryInterval }
func (o RelayOptions) Limits() RelayLimits                  { return o.limits }
func (o RelayOptions) MaxAvgLatency() *time.Duration        { return o.maxAvgLatency }
func (o RelayOptions) FilteringMode() RelayFilteringMode    { return o.filteringMode }
