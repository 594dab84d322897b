// Package tlv implements the corpus record encoding consumed by the fuzz harness.
//
// Each record is a 6-byte header followed by the raw payload:
//
//	offset 0..1  type   (uint16, big-endian)
//	offset 2..5  length (uint32, big-endian)
//	offset 6..   payload (length bytes)
//
// There is no file header, record count or terminator; EOF ends the stream.
package tlv

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/justapithecus/corpusgen/log"
	"github.com/justapithecus/corpusgen/metrics"
)

// HeaderLen is the fixed size of a record header.
const HeaderLen = 6

// ErrPayloadTooLarge is returned when a payload cannot be described by a uint32 length.
var ErrPayloadTooLarge = errors.New("tlv: payload exceeds uint32 length")

// Encoder appends framed records to a sink in call order.
// It does no buffering of its own and never retries a failed write.
type Encoder struct {
	w         io.Writer
	logger    *log.Logger
	collector *metrics.Collector
	header    [HeaderLen]byte
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithLogger traces every record at debug level before it is written.
func WithLogger(l *log.Logger) Option {
	return func(e *Encoder) { e.logger = l }
}

// WithCollector counts records and payload bytes per field type.
func WithCollector(c *metrics.Collector) Option {
	return func(e *Encoder) { e.collector = c }
}

// NewEncoder creates an encoder writing to w.
func NewEncoder(w io.Writer, opts ...Option) *Encoder {
	e := &Encoder{w: w}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WriteString writes text as a record carrying its UTF-8 bytes.
func (e *Encoder) WriteString(t FieldType, text string) error {
	return e.WriteBytes(t, []byte(text))
}

// WriteBytes writes one record. An empty data slice is a valid record
// consisting of the header alone.
//
// Errors from the sink are returned unmodified; the sink may hold a
// partially written record afterwards.
func (e *Encoder) WriteBytes(t FieldType, data []byte) error {
	if uint64(len(data)) > math.MaxUint32 {
		return fmt.Errorf("%w: type %s, %d bytes", ErrPayloadTooLarge, t, len(data))
	}

	if e.logger != nil && e.logger.DebugEnabled() {
		e.logger.Debug("writing tlv", map[string]any{
			"type":   uint16(t),
			"name":   t.String(),
			"length": len(data),
			"data":   fmt.Sprintf("%q", data),
		})
	}

	binary.BigEndian.PutUint16(e.header[0:2], uint16(t))
	binary.BigEndian.PutUint32(e.header[2:6], uint32(len(data)))
	if _, err := e.w.Write(e.header[:]); err != nil {
		return err
	}
	if len(data) > 0 {
		if _, err := e.w.Write(data); err != nil {
			return err
		}
	}

	e.collector.RecordField(t.String(), len(data))
	return nil
}

// MaybeWriteString writes text when it is non-nil and does nothing otherwise.
// A non-nil empty string still produces a zero-length record.
func (e *Encoder) MaybeWriteString(t FieldType, text *string) error {
	if text == nil {
		return nil
	}
	return e.WriteString(t, *text)
}
