// Package tlvtest parses corpus files back into records for test assertions.
package tlvtest

import (
	"encoding/binary"
	"errors"
	"os"
	"testing"

	"github.com/justapithecus/corpusgen/tlv"
)

var (
	ErrShortHeader  = errors.New("tlvtest: short record header")
	ErrShortPayload = errors.New("tlvtest: short record payload")
)

// Record is one parsed record.
type Record struct {
	Type    tlv.FieldType
	Length  uint32
	Payload []byte
}

// Parse splits b into records, failing on any truncation.
func Parse(b []byte) ([]Record, error) {
	records := make([]Record, 0)
	i := 0
	for i < len(b) {
		if len(b)-i < tlv.HeaderLen {
			return nil, ErrShortHeader
		}
		t := binary.BigEndian.Uint16(b[i : i+2])
		l := binary.BigEndian.Uint32(b[i+2 : i+6])
		i += tlv.HeaderLen
		if uint64(len(b)-i) < uint64(l) {
			return nil, ErrShortPayload
		}
		payload := make([]byte, l)
		copy(payload, b[i:i+int(l)])
		i += int(l)
		records = append(records, Record{Type: tlv.FieldType(t), Length: l, Payload: payload})
	}
	return records, nil
}

// MustParse parses b and fails the test on error.
func MustParse(t testing.TB, b []byte) []Record {
	t.Helper()
	records, err := Parse(b)
	if err != nil {
		t.Fatalf("parse records: %v", err)
	}
	return records
}

// MustParseFile reads and parses the corpus file at path.
func MustParseFile(t testing.TB, path string) []Record {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read corpus file: %v", err)
	}
	return MustParse(t, b)
}

// Types returns the field types of records in order.
func Types(records []Record) []tlv.FieldType {
	out := make([]tlv.FieldType, len(records))
	for i, r := range records {
		out[i] = r.Type
	}
	return out
}
