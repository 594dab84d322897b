// Package metrics provides per-invocation counters for corpus generation.
//
// The Collector accumulates counters during a single CLI invocation (one
// generate call or one whole batch). It is a leaf package with no internal
// dependencies; field types are keyed by name.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Files
	FilesWritten int64 `json:"files_written" yaml:"files_written"`
	FilesFailed  int64 `json:"files_failed" yaml:"files_failed"`
	FilesCrashed int64 `json:"files_crashed" yaml:"files_crashed"`

	// Records
	RecordsWritten int64            `json:"records_written" yaml:"records_written"`
	PayloadBytes   int64            `json:"payload_bytes" yaml:"payload_bytes"`
	RecordsByType  map[string]int64 `json:"records_by_type" yaml:"records_by_type"`

	// Collaborators
	FixtureLookups int64 `json:"fixture_lookups" yaml:"fixture_lookups"`
	PublishSuccess int64 `json:"publish_success" yaml:"publish_success"`
	PublishFailure int64 `json:"publish_failure" yaml:"publish_failure"`
	NotifySuccess  int64 `json:"notify_success" yaml:"notify_success"`
	NotifyFailure  int64 `json:"notify_failure" yaml:"notify_failure"`

	// Command is the CLI command that produced the counters.
	Command string `json:"command" yaml:"command"`
}

// Collector accumulates counters during a single invocation.
// Thread-safe via sync.Mutex. All methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	filesWritten int64
	filesFailed  int64
	filesCrashed int64

	recordsWritten int64
	payloadBytes   int64
	recordsByType  map[string]int64

	fixtureLookups int64
	publishSuccess int64
	publishFailure int64
	notifySuccess  int64
	notifyFailure  int64

	command string
}

// NewCollector creates a Collector labelled with the invoking command.
func NewCollector(command string) *Collector {
	return &Collector{
		recordsByType: make(map[string]int64),
		command:       command,
	}
}

// --- Records ---

// RecordField records one committed record of the named field type.
func (c *Collector) RecordField(name string, payloadLen int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.recordsWritten++
	c.payloadBytes += int64(payloadLen)
	c.recordsByType[name]++
	c.mu.Unlock()
}

// --- Files ---

// IncFileWritten records a corpus file written completely.
func (c *Collector) IncFileWritten() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.filesWritten++
	c.mu.Unlock()
}

// IncFileFailed records a corpus file that ended in an ordinary failure.
func (c *Collector) IncFileFailed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.filesFailed++
	c.mu.Unlock()
}

// IncFileCrashed records a corpus file whose generation hit a runtime fault.
func (c *Collector) IncFileCrashed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.filesCrashed++
	c.mu.Unlock()
}

// --- Collaborators ---

// IncFixtureLookup records a fixture fetched from the fixture repository.
func (c *Collector) IncFixtureLookup() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.fixtureLookups++
	c.mu.Unlock()
}

// IncPublishSuccess records a corpus file published to storage.
func (c *Collector) IncPublishSuccess() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.publishSuccess++
	c.mu.Unlock()
}

// IncPublishFailure records a failed publish.
func (c *Collector) IncPublishFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.publishFailure++
	c.mu.Unlock()
}

// IncNotifySuccess records a delivered corpus_generated notification.
func (c *Collector) IncNotifySuccess() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.notifySuccess++
	c.mu.Unlock()
}

// IncNotifyFailure records a notification that could not be delivered.
func (c *Collector) IncNotifyFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.notifyFailure++
	c.mu.Unlock()
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all counters.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	byType := make(map[string]int64, len(c.recordsByType))
	for k, v := range c.recordsByType {
		byType[k] = v
	}

	return Snapshot{
		FilesWritten: c.filesWritten,
		FilesFailed:  c.filesFailed,
		FilesCrashed: c.filesCrashed,

		RecordsWritten: c.recordsWritten,
		PayloadBytes:   c.payloadBytes,
		RecordsByType:  byType,

		FixtureLookups: c.fixtureLookups,
		PublishSuccess: c.publishSuccess,
		PublishFailure: c.publishFailure,
		NotifySuccess:  c.notifySuccess,
		NotifyFailure:  c.notifyFailure,

		Command: c.command,
	}
}
