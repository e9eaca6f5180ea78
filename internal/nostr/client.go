package nostr

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nbd-wtf/go-nostr"

	"github.com/sandwichfarm/outbox/internal/config"
)

// Client provides a high-level interface for interacting with Nostr relays
type Client struct {
	pool        *nostr.SimplePool
	relayConfig *config.Relays
	ctx         context.Context
	logger      *slog.Logger
}

// New creates a new Nostr client with the given configuration
func New(ctx context.Context, relayConfig *config.Relays) *Client {
	pool := nostr.NewSimplePool(ctx)
	return &Client{
		pool:        pool,
		relayConfig: relayConfig,
		ctx:         ctx,
		logger:      slog.Default(),
	}
}

// Pool returns the underlying SimplePool for advanced operations
func (c *Client) Pool() *nostr.SimplePool {
	return c.pool
}

// FetchEvents fetches events from the given relays matching the filter
func (c *Client) FetchEvents(ctx context.Context, relays []string, filter nostr.Filter) ([]*nostr.Event, error) {
	events := make([]*nostr.Event, 0)

	// Use SubManyEose to get events and wait for EOSE
	for relayEvent := range c.pool.SubManyEose(ctx, relays, nostr.Filters{filter}) {
		if relayEvent.Event != nil {
			events = append(events, relayEvent.Event)
		}
	}

	return events, nil
}

// FetchEvent fetches a single event by ID from the given relays
func (c *Client) FetchEvent(ctx context.Context, relays []string, eventID string) (*nostr.Event, error) {
	filter := nostr.Filter{
		IDs: []string{eventID},
	}

	result := c.pool.QuerySingle(ctx, relays, filter)
	if result == nil || result.Event == nil {
		return nil, fmt.Errorf("event not found: %s", eventID)
	}

	return result.Event, nil
}

// PublishEvent publishes an event to the given relays
func (c *Client) PublishEvent(ctx context.Context, relays []string, event *nostr.Event) error {
	results := c.pool.PublishMany(ctx, relays, *event)

	var lastErr error
	successCount := 0

	for result := range results {
		if result.Error != nil {
			lastErr = result.Error
		} else {
			successCount++
		}
	}

	if successCount == 0 && lastErr != nil {
		return fmt.Errorf("failed to publish to any relay: %w", lastErr)
	}

	return nil
}

// SubscribeEvents subscribes to events matching the filter on the given relays
// Returns a channel of events that will be closed when the context is cancelled
func (c *Client) SubscribeEvents(ctx context.Context, relays []string, filters nostr.Filters) <-chan *nostr.Event {
	eventChan := make(chan *nostr.Event, 100)

	go func() {
		defer close(eventChan)

		c.logger.Debug("subscribing", "relays", len(relays), "filters", len(filters))

		eventCount := 0
		for relayEvent := range c.pool.SubMany(ctx, relays, filters) {
			if relayEvent.Event != nil {
				eventCount++
				select {
				case eventChan <- relayEvent.Event:
				case <-ctx.Done():
					c.logger.Debug("subscription cancelled", "events_received", eventCount)
					return
				}
			}
		}

		c.logger.Debug("subscription channel closed", "events_received", eventCount)
	}()

	return eventChan
}

// Close closes all relay connections
func (c *Client) Close() {
	c.pool.Close("client shutting down")
}

// GetSeedRelays returns the configured seed relays
func (c *Client) GetSeedRelays() []string {
	if c.relayConfig == nil {
		return []string{}
	}
	return c.relayConfig.Seeds
}

// GetDefaultTimeout returns the configured timeout duration
func (c *Client) GetDefaultTimeout() time.Duration {
	if c.relayConfig == nil || c.relayConfig.Policy.ConnectTimeoutMs == 0 {
		return 30 * time.Second
	}
	return time.Duration(c.relayConfig.Policy.ConnectTimeoutMs) * time.Millisecond
}
