package relayopts

import "time"

// SyncDirection selects which way a negentropy set-reconciliation
// session transfers events.
type SyncDirection int

const (
	// SyncUp sends local events the remote is missing.
	SyncUp SyncDirection = iota
	// SyncDown fetches remote events the local side is missing.
	SyncDown
	// SyncBoth reconciles in both directions.
	SyncBoth
)

const defaultInitialTimeout = 10 * time.Second

// SyncOptions configures a negentropy set-reconciliation session.
// Construction and every With* call are infallible.
type SyncOptions struct {
	initialTimeout time.Duration
	direction      SyncDirection
	dryRun         bool
	progress       *ProgressSender
}

// NewSyncOptions returns the defaults: 10s handshake timeout,
// download-only direction, not a dry run, no progress reporting.
func NewSyncOptions() SyncOptions {
	return SyncOptions{
		initialTimeout: defaultInitialTimeout,
		direction:      SyncDown,
	}
}

// WithInitialTimeout sets the deadline to confirm the remote supports
// reconciliation (default 10s).
func (o SyncOptions) WithInitialTimeout(d time.Duration) SyncOptions {
	o.initialTimeout = d
	return o
}

func (o SyncOptions) WithDirection(dir SyncDirection) SyncOptions {
	o.direction = dir
	return o
}

// WithDryRun marks the session as delta-only: exchange diffs, never
// transfer full events.
func (o SyncOptions) WithDryRun() SyncOptions {
	o.dryRun = true
	return o
}

// WithProgress attaches a progress sender created by NewSyncProgress.
func (o SyncOptions) WithProgress(sender *ProgressSender) SyncOptions {
	o.progress = sender
	return o
}

func (o SyncOptions) InitialTimeout() time.Duration { return o.initialTimeout }
func (o SyncOptions) Direction() SyncDirection       { return o.direction }
func (o SyncOptions) DryRun() bool                   { return o.dryRun }
func (o SyncOptions) Progress() *ProgressSender       { return o.progress }

// DoUp reports whether this session should push local events to the
// remote: not a dry run, and direction is Up or Both.
func (o SyncOptions) DoUp() bool {
	return !o.dryRun && (o.direction == SyncUp || o.direction == SyncBoth)
}

// DoDown reports whether this session should pull remote events:
// not a dry run, and direction is Down or Both.
func (o SyncOptions) DoDown() bool {
	return !o.dryRun && (o.direction == SyncDown || o.direction == SyncBoth)
}
