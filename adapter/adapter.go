// Package adapter defines the notification boundary for generated corpora.
//
// Adapters announce newly generated corpus files to downstream systems
// (fuzzing schedulers, corpus minimizers). Users provide configuration only.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/justapithecus/corpusgen/types"
)

// EventTypeCorpusGenerated is the event_type of every CorpusGeneratedEvent.
const EventTypeCorpusGenerated = "corpus_generated"

// CorpusGeneratedEvent is the payload published after a corpus file is written.
type CorpusGeneratedEvent struct {
	ContractVersion string `json:"contract_version"`
	EventType       string `json:"event_type"` // always "corpus_generated"
	Output          string `json:"output"`
	Scenario        string `json:"scenario,omitempty"`
	Set             string `json:"set,omitempty"`
	StoragePath     string `json:"storage_path,omitempty"`
	Status          string `json:"status"`
	Records         int64  `json:"records"`
	Bytes           int64  `json:"bytes"`
	Timestamp       string `json:"timestamp"` // RFC 3339
	DurationMs      int64  `json:"duration_ms"`
}

// NewCorpusGeneratedEvent fills the contract fields of an event.
func NewCorpusGeneratedEvent(output string, status types.Status, at time.Time) *CorpusGeneratedEvent {
	return &CorpusGeneratedEvent{
		ContractVersion: types.EventContractVersion,
		EventType:       EventTypeCorpusGenerated,
		Output:          output,
		Status:          status.String(),
		Timestamp:       at.UTC().Format(time.RFC3339),
	}
}

// Adapter publishes corpus events to a downstream system.
type Adapter interface {
	// Publish sends an event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *CorpusGeneratedEvent) error

	// Close releases adapter resources.
	Close() error
}

// DefaultBackoff is the delay before the first retry; it doubles per retry.
const DefaultBackoff = 500 * time.Millisecond

// ErrPermanent marks an error that must not be retried.
var ErrPermanent = errors.New("non-retriable")

// Retry calls fn up to 1+retries times, sleeping backoff, 2*backoff, ...
// between attempts. It stops early when fn succeeds, when fn returns an
// error wrapping ErrPermanent, or when ctx is done.
func Retry(ctx context.Context, retries int, backoff time.Duration, fn func(context.Context) error) error {
	var lastErr error
	attempts := 1 + retries

	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context canceled: %w", err)
		}

		if i > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("context canceled during backoff: %w", ctx.Err())
			case <-time.After(time.Duration(1<<uint(i-1)) * backoff):
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, ErrPermanent) {
			return lastErr
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}
