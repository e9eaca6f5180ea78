package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"

	"github.com/sandwichfarm/outbox/internal/config"
	"github.com/sandwichfarm/outbox/internal/gossip"
	"github.com/sandwichfarm/outbox/internal/gossipfilter"
	outboxnostr "github.com/sandwichfarm/outbox/internal/nostr"
	"github.com/sandwichfarm/outbox/internal/ops"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
	builtBy = "manual"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "init" {
		handleInit()
		return
	}
	if len(os.Args) > 1 && os.Args[1] == "route" {
		handleRoute(os.Args[2:])
		return
	}

	var showVersion = flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("outbox %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
		fmt.Printf("  by:     %s\n", builtBy)
		return
	}

	fmt.Println("outbox - Nostr gossip routing core")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  outbox init                        Generate example configuration")
	fmt.Println("  outbox route --config <path> ...    Discover relay lists and decompose filters")
	fmt.Println("  outbox --version                    Show version information")
	os.Exit(1)
}

func handleInit() {
	exampleConfig, err := config.GetExampleConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading example config: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(string(exampleConfig))
}

// pubkeyList is a flag.Value collecting repeated --pubkey flags.
type pubkeyList []string

func (p *pubkeyList) String() string { return strings.Join(*p, ",") }
func (p *pubkeyList) Set(v string) error {
	*p = append(*p, v)
	return nil
}

func handleRoute(args []string) {
	fs := flag.NewFlagSet("route", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	var pubkeys pubkeyList
	fs.Var(&pubkeys, "pubkey", "hex pubkey to route for (repeatable); defaults to the configured identity")
	fs.Parse(args)

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "route: --config is required")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger := ops.NewLogger(&cfg.Logging)

	if len(pubkeys) == 0 {
		_, hex, err := nip19.Decode(cfg.Identity.Npub)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error decoding identity.npub: %v\n", err)
			os.Exit(1)
		}
		pubkeys = append(pubkeys, hex.(string))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutdown requested")
		cancel()
	}()

	client := outboxnostr.New(ctx, &cfg.Relays)
	defer client.Close()

	graph := gossip.NewGraphWithConfig(gossip.GraphConfig{
		MaxRelaysList:               cfg.Gossip.MaxRelaysList,
		PubkeyMetadataOutdatedAfter: time.Duration(cfg.Gossip.PubkeyMetadataOutdatedAfterMs) * time.Millisecond,
		CheckOutdatedInterval:       time.Duration(cfg.Gossip.CheckOutdatedIntervalMs) * time.Millisecond,
		Logger:                      logger.Logger,
	})

	discovery := outboxnostr.NewDiscovery(client, graph)

	err = discovery.DiscoverRelayListsForPubkeys(ctx, pubkeys, cfg.Relays.Seeds)
	logger.LogDiscovery(len(pubkeys), len(cfg.Relays.Seeds), err)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error discovering relay lists: %v\n", err)
		os.Exit(1)
	}

	demoFilter := nostr.Filter{Authors: pubkeys, Kinds: []int{1}, Limit: 20}
	snap := graph.Snapshot()
	broken := gossipfilter.Decompose([]nostr.Filter{demoFilter}, snap, logger.Logger)
	snap.Release()

	logger.LogDecompose(len(broken.Filters), len(broken.Orphans), len(broken.Others))

	fmt.Println("Routing table:")
	for relay, filters := range broken.Filters {
		fmt.Printf("  %s: %d filter(s)\n", relay, len(filters))
	}
	if len(broken.Orphans) > 0 {
		fmt.Printf("  (orphaned: %d filter(s) with no resolvable relay)\n", len(broken.Orphans))
	}
	if len(broken.Others) > 0 {
		fmt.Printf("  (others: %d filter(s) with neither authors nor p-tags)\n", len(broken.Others))
	}

	keys := make([]gossip.PublicKey, 0, len(pubkeys))
	for _, hex := range pubkeys {
		if pk, err := gossip.ParsePublicKeyHex(hex); err == nil {
			keys = append(keys, pk)
		}
	}
	collector := ops.NewDiagnosticsCollector(version, commit, graph)
	fmt.Println()
	fmt.Print(collector.CollectAll(keys).FormatAsText())
}
