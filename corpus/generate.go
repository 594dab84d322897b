package corpus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/justapithecus/corpusgen/fixture"
	"github.com/justapithecus/corpusgen/iox"
	"github.com/justapithecus/corpusgen/log"
	"github.com/justapithecus/corpusgen/metrics"
	"github.com/justapithecus/corpusgen/tlv"
	"github.com/justapithecus/corpusgen/types"
)

// ErrPanic marks a runtime fault recovered during generation.
var ErrPanic = errors.New("corpus generation panicked")

// ErrNoFixtureSource is returned when rsp1test is used without a fixture source.
var ErrNoFixtureSource = errors.New("no fixture source configured")

// Result is the tagged outcome of generating one corpus file.
type Result struct {
	Status types.Status
	// Err is nil on success.
	Err error
	// Output is the corpus file path.
	Output string
	// Bytes is the number of bytes written to Output.
	Bytes int64
}

// Generator writes corpus files. One Generator may produce many files,
// one after another.
type Generator struct {
	fixtures  fixture.Source
	logger    *log.Logger
	collector *metrics.Collector
}

// NewGenerator creates a generator. fixtures may be nil when no scenario
// uses rsp1test; logger may be nil to disable tracing.
func NewGenerator(fixtures fixture.Source, logger *log.Logger, collector *metrics.Collector) *Generator {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Generator{fixtures: fixtures, logger: logger, collector: collector}
}

// WithLogger returns a copy of g that logs to logger, typically one carrying
// the context of a single corpus file.
func (g *Generator) WithLogger(logger *log.Logger) *Generator {
	cp := *g
	if logger == nil {
		logger = log.NewNop()
	}
	cp.logger = logger
	return &cp
}

// Run validates opts and writes the corpus file, converting every outcome
// into a Result. Panics are recovered and reported as StatusException.
func (g *Generator) Run(ctx context.Context, opts *Options) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Exception("corpus generation crashed", r, debug.Stack())
			g.collector.IncFileCrashed()
			res = Result{
				Status: types.StatusException,
				Err:    fmt.Errorf("%w: %v", ErrPanic, r),
				Output: res.Output,
			}
		}
		g.logger.Info("corpus generation finished", map[string]any{
			"status":    res.Status.String(),
			"exit_code": res.Status.ExitCode(),
			"bytes":     res.Bytes,
		})
	}()

	if opts == nil {
		g.logger.Error("invalid corpus options", map[string]any{"error": "nil options"})
		g.collector.IncFileFailed()
		res.Status = types.StatusFailure
		res.Err = fmt.Errorf("%w: nil options", ErrInvalidOptions)
		return res
	}
	res.Output = opts.Output

	if err := opts.Validate(); err != nil {
		g.logger.Error("invalid corpus options", map[string]any{"error": err.Error()})
		g.collector.IncFileFailed()
		res.Status = types.StatusFailure
		res.Err = err
		return res
	}

	n, err := g.WriteFile(ctx, opts)
	res.Bytes = n
	if err != nil {
		g.logger.Error("corpus generation failed", map[string]any{"error": err.Error()})
		g.collector.IncFileFailed()
		res.Status = types.StatusFailure
		res.Err = err
		return res
	}

	g.collector.IncFileWritten()
	res.Status = types.StatusSuccess
	return res
}

// WriteFile creates opts.Output, encodes opts into it and closes it.
// The file is closed on every path; a partially written file is left in place.
func (g *Generator) WriteFile(ctx context.Context, opts *Options) (n int64, err error) {
	f, err := os.Create(opts.Output)
	if err != nil {
		return 0, err
	}
	defer iox.CloseInto(&err, f)

	cw := &countingWriter{w: f}
	err = g.Encode(ctx, opts, cw)
	return cw.n, err
}

// Encode writes the records for opts to w in the harness's expected order:
// url, rsp1, the optional scalar fields, upload1, headers, mail recipients.
func (g *Generator) Encode(ctx context.Context, opts *Options, w io.Writer) error {
	enc := tlv.NewEncoder(w, tlv.WithLogger(g.logger), tlv.WithCollector(g.collector))

	if err := enc.WriteString(tlv.TypeURL, opts.URL); err != nil {
		return err
	}

	rsp, err := g.responseBody(ctx, opts)
	if err != nil {
		return err
	}
	if rsp != nil {
		if err := enc.WriteBytes(tlv.TypeRSP1, rsp); err != nil {
			return err
		}
	}

	optional := []struct {
		t tlv.FieldType
		v *string
	}{
		{tlv.TypeUsername, opts.Username},
		{tlv.TypePassword, opts.Password},
		{tlv.TypePostFields, opts.PostFields},
		{tlv.TypeCookie, opts.Cookie},
		{tlv.TypeRange, opts.Range},
		{tlv.TypeCustomRequest, opts.CustomRequest},
		{tlv.TypeMailFrom, opts.MailFrom},
	}
	for _, f := range optional {
		if err := enc.MaybeWriteString(f.t, f.v); err != nil {
			return err
		}
	}

	upload, err := uploadBody(opts)
	if err != nil {
		return err
	}
	if upload != nil {
		if err := enc.WriteBytes(tlv.TypeUpload1, upload); err != nil {
			return err
		}
	}

	for _, h := range opts.Headers {
		if err := enc.WriteString(tlv.TypeHeader, h); err != nil {
			return err
		}
	}
	for _, r := range opts.MailRecipients {
		if err := enc.WriteString(tlv.TypeMailRecipient, r); err != nil {
			return err
		}
	}
	return nil
}

// responseBody resolves the first response. A nil slice means no source is set.
func (g *Generator) responseBody(ctx context.Context, opts *Options) ([]byte, error) {
	switch opts.ResponseSource() {
	case ResponseInline:
		return nonNil([]byte(*opts.Rsp1)), nil
	case ResponseFile:
		data, err := os.ReadFile(*opts.Rsp1File)
		if err != nil {
			return nil, err
		}
		return nonNil(data), nil
	case ResponseFixture:
		if g.fixtures == nil {
			return nil, ErrNoFixtureSource
		}
		body, err := g.fixtures.Lookup(ctx, *opts.Rsp1Test)
		if err != nil {
			return nil, err
		}
		g.collector.IncFixtureLookup()
		return nonNil([]byte(body)), nil
	default:
		return nil, nil
	}
}

func uploadBody(opts *Options) ([]byte, error) {
	switch {
	case opts.Upload1 != nil:
		return nonNil([]byte(*opts.Upload1)), nil
	case opts.Upload1File != nil:
		data, err := os.ReadFile(*opts.Upload1File)
		if err != nil {
			return nil, err
		}
		return nonNil(data), nil
	default:
		return nil, nil
	}
}

// nonNil keeps an empty value distinguishable from an absent source.
func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
