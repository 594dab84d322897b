package corpus

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/justapithecus/corpusgen/fixture"
	"github.com/justapithecus/corpusgen/log"
	"github.com/justapithecus/corpusgen/metrics"
	"github.com/justapithecus/corpusgen/tlv"
	"github.com/justapithecus/corpusgen/tlv/tlvtest"
	"github.com/justapithecus/corpusgen/types"
)

func ptr[T any](v T) *T { return &v }

func newTestGenerator(fixtures fixture.Source) (*Generator, *metrics.Collector) {
	c := metrics.NewCollector("test")
	return NewGenerator(fixtures, log.NewNop(), c), c
}

func TestRun_ExampleScenario(t *testing.T) {
	out := filepath.Join(t.TempDir(), "example.bin")
	g, c := newTestGenerator(nil)

	res := g.Run(t.Context(), &Options{
		Output: out,
		URL:    "http://example.com",
		Rsp1:   ptr("hello"),
	})
	if res.Status != types.StatusSuccess || res.Err != nil {
		t.Fatalf("Run = %+v", res)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	// (6 + 18) + (6 + 5)
	if len(data) != 35 || res.Bytes != 35 {
		t.Fatalf("file size = %d (reported %d), want 35", len(data), res.Bytes)
	}

	records := tlvtest.MustParse(t, data)
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Type != tlv.TypeURL || records[0].Length != 18 || string(records[0].Payload) != "http://example.com" {
		t.Errorf("record 0 = %+v", records[0])
	}
	if records[1].Type != tlv.TypeRSP1 || records[1].Length != 5 || string(records[1].Payload) != "hello" {
		t.Errorf("record 1 = %+v", records[1])
	}

	if snap := c.Snapshot(); snap.FilesWritten != 1 || snap.RecordsWritten != 2 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestRun_HeadersAppendedInOrder(t *testing.T) {
	out := filepath.Join(t.TempDir(), "headers.bin")
	g, _ := newTestGenerator(nil)

	res := g.Run(t.Context(), &Options{
		Output:  out,
		URL:     "http://example.com",
		Rsp1:    ptr("hello"),
		Headers: []string{"A: 1", "B: 2"},
	})
	if res.Status != types.StatusSuccess {
		t.Fatalf("Run = %+v", res)
	}

	records := tlvtest.MustParseFile(t, out)
	if len(records) != 4 {
		t.Fatalf("got %d records, want 4", len(records))
	}
	for i, want := range []string{"A: 1", "B: 2"} {
		r := records[2+i]
		if r.Type != tlv.TypeHeader || r.Length != 4 || string(r.Payload) != want {
			t.Errorf("header record %d = %+v", i, r)
		}
	}
}

func TestEncode_FullFieldOrder(t *testing.T) {
	g, _ := newTestGenerator(nil)
	var buf bytes.Buffer

	opts := &Options{
		URL:            "smtp://mail.example.com",
		Rsp1:           ptr("220 ok"),
		Username:       ptr("user"),
		Password:       ptr("secret"),
		PostFields:     ptr("a=1"),
		Cookie:         ptr("c=2"),
		Range:          ptr("0-9"),
		CustomRequest:  ptr("VRFY"),
		MailFrom:       ptr("from@example.com"),
		Upload1:        ptr("Subject: hi\r\n\r\nbody"),
		Headers:        []string{"X-A: 1", "X-B: 2"},
		MailRecipients: []string{"a@example.com", "b@example.com"},
	}
	if err := g.Encode(t.Context(), opts, &buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got := tlvtest.Types(tlvtest.MustParse(t, buf.Bytes()))
	want := []tlv.FieldType{
		tlv.TypeURL, tlv.TypeRSP1,
		tlv.TypeUsername, tlv.TypePassword, tlv.TypePostFields, tlv.TypeCookie,
		tlv.TypeRange, tlv.TypeCustomRequest, tlv.TypeMailFrom,
		tlv.TypeUpload1,
		tlv.TypeHeader, tlv.TypeHeader,
		tlv.TypeMailRecipient, tlv.TypeMailRecipient,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("types = %v\nwant    %v", got, want)
	}
}

func TestEncode_AbsentVersusEmpty(t *testing.T) {
	g, _ := newTestGenerator(nil)
	var buf bytes.Buffer

	opts := &Options{
		URL:      "http://x",
		Rsp1:     ptr(""),
		Username: ptr(""),
		Upload1:  ptr(""),
	}
	if err := g.Encode(t.Context(), opts, &buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	records := tlvtest.MustParse(t, buf.Bytes())
	want := []tlv.FieldType{tlv.TypeURL, tlv.TypeRSP1, tlv.TypeUsername, tlv.TypeUpload1}
	if got := tlvtest.Types(records); !reflect.DeepEqual(got, want) {
		t.Fatalf("types = %v, want %v", got, want)
	}
	for _, r := range records[1:] {
		if r.Length != 0 {
			t.Errorf("%v length = %d, want 0", r.Type, r.Length)
		}
	}
	if buf.Len() != (6+8)+3*6 {
		t.Errorf("total = %d bytes", buf.Len())
	}
}

func TestEncode_FileSources(t *testing.T) {
	dir := t.TempDir()
	rspPath := filepath.Join(dir, "rsp.bin")
	uploadPath := filepath.Join(dir, "upload.bin")
	emptyPath := filepath.Join(dir, "empty.bin")

	rsp := []byte("HTTP/1.1 200 OK\r\n\r\n\x00\xff binary")
	if err := os.WriteFile(rspPath, rsp, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(uploadPath, []byte("upload"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(emptyPath, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	g, _ := newTestGenerator(nil)

	t.Run("raw response bytes preserved", func(t *testing.T) {
		var buf bytes.Buffer
		err := g.Encode(t.Context(), &Options{URL: "u", Rsp1File: &rspPath, Upload1File: &uploadPath}, &buf)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		records := tlvtest.MustParse(t, buf.Bytes())
		if !bytes.Equal(records[1].Payload, rsp) {
			t.Errorf("rsp1 payload = %q", records[1].Payload)
		}
		if records[2].Type != tlv.TypeUpload1 || string(records[2].Payload) != "upload" {
			t.Errorf("upload record = %+v", records[2])
		}
	})

	t.Run("empty response file is a zero-length record", func(t *testing.T) {
		var buf bytes.Buffer
		if err := g.Encode(t.Context(), &Options{URL: "u", Rsp1File: &emptyPath}, &buf); err != nil {
			t.Fatalf("Encode: %v", err)
		}
		records := tlvtest.MustParse(t, buf.Bytes())
		if len(records) != 2 || records[1].Type != tlv.TypeRSP1 || records[1].Length != 0 {
			t.Errorf("records = %+v", records)
		}
	})

	t.Run("missing file propagates", func(t *testing.T) {
		missing := filepath.Join(dir, "missing")
		var buf bytes.Buffer
		err := g.Encode(t.Context(), &Options{URL: "u", Rsp1File: &missing}, &buf)
		if !errors.Is(err, fs.ErrNotExist) {
			t.Fatalf("err = %v, want fs.ErrNotExist", err)
		}
		// The URL record was already committed.
		if buf.Len() != tlv.HeaderLen+1 {
			t.Errorf("sink holds %d bytes", buf.Len())
		}
	})
}

func TestEncode_Fixture(t *testing.T) {
	g, c := newTestGenerator(fixture.MapSource{1: "HTTP/1.1 200 OK\n\n-foo-\n"})
	var buf bytes.Buffer

	if err := g.Encode(t.Context(), &Options{URL: "http://x/1", Rsp1Test: ptr(1)}, &buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	records := tlvtest.MustParse(t, buf.Bytes())
	if string(records[1].Payload) != "HTTP/1.1 200 OK\n\n-foo-\n" {
		t.Errorf("rsp1 = %q", records[1].Payload)
	}
	if c.Snapshot().FixtureLookups != 1 {
		t.Error("fixture lookup not counted")
	}

	err := g.Encode(t.Context(), &Options{URL: "http://x/2", Rsp1Test: ptr(2)}, &bytes.Buffer{})
	if !errors.Is(err, fixture.ErrFixtureNotFound) {
		t.Errorf("err = %v, want ErrFixtureNotFound", err)
	}

	noFixtures, _ := newTestGenerator(nil)
	err = noFixtures.Encode(t.Context(), &Options{URL: "u", Rsp1Test: ptr(1)}, &bytes.Buffer{})
	if !errors.Is(err, ErrNoFixtureSource) {
		t.Errorf("err = %v, want ErrNoFixtureSource", err)
	}
}

func TestRun_InvalidOptionsWritesNothing(t *testing.T) {
	out := filepath.Join(t.TempDir(), "never.bin")
	g, c := newTestGenerator(nil)

	res := g.Run(t.Context(), &Options{Output: out, URL: "http://x"})
	if res.Status != types.StatusFailure || !errors.Is(res.Err, ErrInvalidOptions) {
		t.Fatalf("Run = %+v", res)
	}
	if _, err := os.Stat(out); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("output should not exist, stat err = %v", err)
	}
	if c.Snapshot().FilesFailed != 1 {
		t.Error("failure not counted")
	}
}

func TestRun_OpenErrorIsFailure(t *testing.T) {
	out := filepath.Join(t.TempDir(), "missing-dir", "x.bin")
	g, _ := newTestGenerator(nil)

	res := g.Run(t.Context(), &Options{Output: out, URL: "u", Rsp1: ptr("r")})
	if res.Status != types.StatusFailure {
		t.Fatalf("status = %v, want failure", res.Status)
	}
	var pathErr *fs.PathError
	if !errors.As(res.Err, &pathErr) || !errors.Is(res.Err, fs.ErrNotExist) {
		t.Errorf("err = %v, want unmodified *fs.PathError", res.Err)
	}
}

func TestRun_NilOptionsIsFailure(t *testing.T) {
	var logs bytes.Buffer
	logger := log.NewLogger(nil).WithOutput(&logs)
	c := metrics.NewCollector("test")
	g := NewGenerator(panickingSource{}, logger, c)

	res := g.Run(t.Context(), nil)
	if res.Status != types.StatusFailure {
		t.Fatalf("status = %v, want failure", res.Status)
	}
	if !errors.Is(res.Err, ErrInvalidOptions) || errors.Is(res.Err, ErrPanic) {
		t.Errorf("err = %v, want ErrInvalidOptions", res.Err)
	}
	if res.Output != "" {
		t.Errorf("output = %q, want empty", res.Output)
	}
	if snap := c.Snapshot(); snap.FilesFailed != 1 || snap.FilesCrashed != 0 {
		t.Errorf("failed=%d crashed=%d, want 1/0", snap.FilesFailed, snap.FilesCrashed)
	}
	if !strings.Contains(logs.String(), "corpus generation finished") {
		t.Errorf("missing finish entry: %s", logs.String())
	}
}

type panickingSource struct{}

func (panickingSource) Lookup(context.Context, int) (string, error) {
	panic("fixture index corrupted")
}

func TestRun_PanicIsException(t *testing.T) {
	out := filepath.Join(t.TempDir(), "crash.bin")
	var logs bytes.Buffer
	logger := log.NewLogger(&types.CorpusMeta{Output: out}).WithOutput(&logs)
	c := metrics.NewCollector("test")
	g := NewGenerator(panickingSource{}, logger, c)

	res := g.Run(t.Context(), &Options{Output: out, URL: "u", Rsp1Test: ptr(5)})
	if res.Status != types.StatusException {
		t.Fatalf("status = %v, want exception", res.Status)
	}
	if !errors.Is(res.Err, ErrPanic) || !strings.Contains(res.Err.Error(), "fixture index corrupted") {
		t.Errorf("err = %v", res.Err)
	}
	if res.Output != out {
		t.Errorf("output = %q", res.Output)
	}
	if c.Snapshot().FilesCrashed != 1 {
		t.Error("crash not counted")
	}

	text := logs.String()
	for _, want := range []string{"corpus generation crashed", `"exit_code":2`} {
		if !strings.Contains(text, want) {
			t.Errorf("logs missing %q:\n%s", want, text)
		}
	}

	// The partial file (URL record only) is left in place.
	records := tlvtest.MustParseFile(t, out)
	if len(records) != 1 || records[0].Type != tlv.TypeURL {
		t.Errorf("partial file records = %+v", records)
	}
}
