package ops

import (
	"fmt"
	"runtime"
	"time"

	"github.com/sandwichfarm/outbox/internal/gossip"
)

// SystemStats contains overall process-level statistics.
type SystemStats struct {
	Version   string
	Commit    string
	Uptime    time.Duration
	StartTime time.Time

	GoVersion       string
	NumGoroutines   int
	MemAllocMB      float64
	MemTotalAllocMB float64
	MemSysMB        float64
	NumGC           uint32
}

// GraphStats contains relay-list graph statistics.
type GraphStats struct {
	TrackedKeys  int
	OutdatedKeys int
	OldestOutbox time.Duration
	StaleKeys    []gossip.PublicKey
}

// DiagnosticsCollector collects system and graph diagnostics.
type DiagnosticsCollector struct {
	version   string
	commit    string
	startTime time.Time
	graph     *gossip.Graph
}

// NewDiagnosticsCollector creates a diagnostics collector bound to a
// graph instance.
func NewDiagnosticsCollector(version, commit string, graph *gossip.Graph) *DiagnosticsCollector {
	return &DiagnosticsCollector{
		version:   version,
		commit:    commit,
		startTime: time.Now(),
		graph:     graph,
	}
}

// CollectSystemStats collects process-level statistics.
func (d *DiagnosticsCollector) CollectSystemStats() *SystemStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return &SystemStats{
		Version:   d.version,
		Commit:    d.commit,
		Uptime:    time.Since(d.startTime),
		StartTime: d.startTime,

		GoVersion:       runtime.Version(),
		NumGoroutines:   runtime.NumGoroutine(),
		MemAllocMB:      float64(m.Alloc) / 1024 / 1024,
		MemTotalAllocMB: float64(m.TotalAlloc) / 1024 / 1024,
		MemSysMB:        float64(m.Sys) / 1024 / 1024,
		NumGC:           m.NumGC,
	}
}

// CollectGraphStats collects relay-list graph statistics: how many
// keys the graph tracks, which of watchKeys the graph currently
// considers outdated, and the staleness of the oldest outbox entry
// among the keys the graph tracks.
func (d *DiagnosticsCollector) CollectGraphStats(watchKeys []gossip.PublicKey) *GraphStats {
	stats := &GraphStats{
		TrackedKeys: d.graph.Size(),
	}

	outdated := d.graph.CheckOutdated(watchKeys)
	stats.OutdatedKeys = len(outdated)
	for pk := range outdated {
		stats.StaleKeys = append(stats.StaleKeys, pk)
	}

	for _, age := range d.graph.KeyAges() {
		if age.OutboxAge > stats.OldestOutbox {
			stats.OldestOutbox = age.OutboxAge
		}
	}

	return stats
}

// Diagnostics bundles a single diagnostics snapshot.
type Diagnostics struct {
	CollectedAt time.Time
	System      *SystemStats
	Graph       *GraphStats
}

// CollectAll collects every diagnostic dimension at once.
func (d *DiagnosticsCollector) CollectAll(watchKeys []gossip.PublicKey) *Diagnostics {
	return &Diagnostics{
		CollectedAt: time.Now(),
		System:      d.CollectSystemStats(),
		Graph:       d.CollectGraphStats(watchKeys),
	}
}

// FormatAsText formats diagnostics as plain text for CLI output.
func (d *Diagnostics) FormatAsText() string {
	var out string

	out += "=== outbox Diagnostics ===\n"
	out += fmt.Sprintf("Collected: %s\n\n", d.CollectedAt.Format(time.RFC3339))

	out += "--- System ---\n"
	out += fmt.Sprintf("Version: %s (%s)\n", d.System.Version, d.System.Commit)
	out += fmt.Sprintf("Uptime: %s\n", d.System.Uptime.Round(time.Second))
	out += fmt.Sprintf("Go Version: %s\n", d.System.GoVersion)
	out += fmt.Sprintf("Goroutines: %d\n", d.System.NumGoroutines)
	out += fmt.Sprintf("Memory: %.2f MB allocated, %.2f MB system\n", d.System.MemAllocMB, d.System.MemSysMB)
	out += fmt.Sprintf("GC Runs: %d\n\n", d.System.NumGC)

	out += "--- Graph ---\n"
	out += fmt.Sprintf("Tracked Keys: %d\n", d.Graph.TrackedKeys)
	out += fmt.Sprintf("Outdated Keys: %d\n", d.Graph.OutdatedKeys)
	out += fmt.Sprintf("Oldest Outbox Entry: %s\n", d.Graph.OldestOutbox.Round(time.Second))

	return out
}
