// Package logbus is the Log Bus: an append-only, TTL'd event stream per
// deployment, backed by a Redis list. Producers (the Deployment Executor)
// never block on readers; consumers poll an offset-based window until a
// terminal "done" event arrives.
package logbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// EventType is one of the five recognized Log Bus event kinds.
type EventType string

const (
	EventInfo    EventType = "info"
	EventLog     EventType = "log"
	EventSuccess EventType = "success"
	EventError   EventType = "error"
	EventDone    EventType = "done"
)

// DoneResult carries the resolved deployment facts a terminal success event
// reports, per spec.md §4.4.
type DoneResult struct {
	ContainerID string `json:"container_id,omitempty"`
	Port        int    `json:"port,omitempty"`
	DirectURL   string `json:"direct_url,omitempty"`
}

// Event is one JSON record appended to a deployment's log stream.
type Event struct {
	Type    EventType  `json:"type"`
	Message string     `json:"message,omitempty"`
	Success *bool      `json:"success,omitempty"`
	Result  *DoneResult `json:"result,omitempty"`
}

const ttl = time.Hour

// Bus wraps a Redis client with the Log Bus's key layout and TTL policy.
type Bus struct {
	rdb *redis.Client
}

// New wraps an existing Redis client. The Job Queue shares the same Redis
// instance, so the caller constructs one client and hands it to both.
func New(rdb *redis.Client) *Bus {
	return &Bus{rdb: rdb}
}

func key(deploymentID string) string {
	return "logs:" + deploymentID
}

// Publish appends an event to a deployment's stream and resets the key's
// TTL to one hour, so a quiet deployment's log history is eventually
// reclaimed without the bus having to run a separate sweep.
func (b *Bus) Publish(ctx context.Context, deploymentID string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal log event: %w", err)
	}

	k := key(deploymentID)
	pipe := b.rdb.TxPipeline()
	pipe.RPush(ctx, k, payload)
	pipe.Expire(ctx, k, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish log event for %q: %w", deploymentID, err)
	}
	return nil
}

// Info, Log, and Error are convenience wrappers around Publish for
// the non-terminal event kinds.
func (b *Bus) Info(ctx context.Context, deploymentID, message string) error {
	return b.Publish(ctx, deploymentID, Event{Type: EventInfo, Message: message})
}

func (b *Bus) Log(ctx context.Context, deploymentID, message string) error {
	return b.Publish(ctx, deploymentID, Event{Type: EventLog, Message: message})
}

func (b *Bus) Error(ctx context.Context, deploymentID, message string) error {
	return b.Publish(ctx, deploymentID, Event{Type: EventError, Message: message})
}

// Done publishes the terminal event. result is nil on failure.
func (b *Bus) Done(ctx context.Context, deploymentID string, success bool, result *DoneResult) error {
	return b.Publish(ctx, deploymentID, Event{Type: EventDone, Success: &success, Result: result})
}

// Read returns the events in [offset, end) along with the new offset the
// caller should pass on its next call.
func (b *Bus) Read(ctx context.Context, deploymentID string, offset int64) ([]Event, int64, error) {
	raw, err := b.rdb.LRange(ctx, key(deploymentID), offset, -1).Result()
	if err != nil {
		return nil, offset, fmt.Errorf("failed to read log events for %q: %w", deploymentID, err)
	}

	events := make([]Event, 0, len(raw))
	for _, r := range raw {
		var event Event
		if err := json.Unmarshal([]byte(r), &event); err != nil {
			continue
		}
		events = append(events, event)
	}
	return events, offset + int64(len(raw)), nil
}

// ReadAllMessages concatenates every message field recorded so far, used by
// the "still building" branch of GET /deployments/{id}/logs.
func (b *Bus) ReadAllMessages(ctx context.Context, deploymentID string) (string, error) {
	events, _, err := b.Read(ctx, deploymentID, 0)
	if err != nil {
		return "", err
	}

	var out []byte
	for _, e := range events {
		out = append(out, e.Message...)
		out = append(out, '\n')
	}
	return string(out), nil
}
