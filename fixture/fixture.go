// Package fixture looks up canned response bodies in a curl-style test-case repository.
//
// Test cases live in files named test<N>. The response body of a case is the
// first <data> element following <reply>, with leading whitespace removed.
package fixture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/justapithecus/lode/lode"

	"github.com/justapithecus/corpusgen/iox"
	corpuslode "github.com/justapithecus/corpusgen/lode"
)

// DefaultPath is the fixture directory relative to the fuzz corpus tooling.
const DefaultPath = "../data"

var (
	// ErrNoReplyData is returned when a test case has no <reply><data> section.
	ErrNoReplyData = errors.New("fixture: no <reply><data> section")
	// ErrFixtureNotFound is returned when no test case exists for an ID.
	ErrFixtureNotFound = errors.New("fixture: test case not found")
)

var replyData = regexp.MustCompile(`(?s)<reply>[ \t\n\r]*<data[^<]*>(.*?)</data>`)

// Source maps a numeric test ID to a canned response body.
type Source interface {
	Lookup(ctx context.Context, id int) (string, error)
}

// Filename returns the test-case filename for id.
func Filename(id int) string {
	return "test" + strconv.Itoa(id)
}

// ExtractReplyData returns the left-trimmed body of the first <reply><data> section.
func ExtractReplyData(contents string) (string, error) {
	m := replyData.FindStringSubmatch(contents)
	if m == nil {
		return "", ErrNoReplyData
	}
	return strings.TrimLeftFunc(m[1], unicode.IsSpace), nil
}

// StoreSource reads test cases from a Lode store (a local directory or an S3 prefix).
type StoreSource struct {
	store lode.Store
}

// Verify StoreSource implements Source.
var _ Source = (*StoreSource)(nil)

// NewStoreSource wraps an opened store.
func NewStoreSource(store lode.Store) *StoreSource {
	return &StoreSource{store: store}
}

// Open builds a StoreSource from storage configuration.
func Open(cfg corpuslode.StoreConfig) (*StoreSource, error) {
	factory, err := corpuslode.NewStoreFactory(cfg)
	if err != nil {
		return nil, fmt.Errorf("fixture store: %w", err)
	}
	store, err := factory()
	if err != nil {
		return nil, corpuslode.WrapInitError(err, cfg.Path)
	}
	return NewStoreSource(store), nil
}

// Lookup reads test<id> and extracts its response body.
func (s *StoreSource) Lookup(ctx context.Context, id int) (string, error) {
	name := Filename(id)

	ok, err := s.store.Exists(ctx, name)
	if err != nil {
		return "", corpuslode.WrapReadError(err, name)
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrFixtureNotFound, name)
	}

	rc, err := s.store.Get(ctx, name)
	if err != nil {
		return "", corpuslode.WrapReadError(err, name)
	}
	defer iox.DiscardClose(rc)

	contents, err := io.ReadAll(rc)
	if err != nil {
		return "", corpuslode.WrapReadError(err, name)
	}

	body, err := ExtractReplyData(string(contents))
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return body, nil
}

// IDs lists the test IDs present in the store, ascending.
// Keys that are not test<N> files are ignored.
func (s *StoreSource) IDs(ctx context.Context) ([]int, error) {
	keys, err := s.store.List(ctx, "")
	if err != nil {
		return nil, corpuslode.WrapReadError(err, "")
	}
	var ids []int
	for _, key := range keys {
		if id, ok := ParseFilename(path.Base(key)); ok {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// ParseFilename extracts N from "test<N>".
func ParseFilename(name string) (int, bool) {
	digits, ok := strings.CutPrefix(name, "test")
	if !ok || digits == "" {
		return 0, false
	}
	id, err := strconv.Atoi(digits)
	if err != nil || id < 0 || strconv.Itoa(id) != digits {
		return 0, false
	}
	return id, true
}

// MapSource serves fixtures from memory. Used by tests and batch manifests
// that inline their fixtures.
type MapSource map[int]string

// Lookup returns the stored body for id.
func (m MapSource) Lookup(_ context.Context, id int) (string, error) {
	body, ok := m[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrFixtureNotFound, Filename(id))
	}
	return body, nil
}

// LazySource opens its store on the first Lookup, so commands that never
// use rsp1test do not require a reachable fixture repository.
type LazySource struct {
	cfg corpuslode.StoreConfig

	once sync.Once
	src  *StoreSource
	err  error
}

// Verify LazySource implements Source.
var _ Source = (*LazySource)(nil)

// NewLazySource returns a source that opens cfg on demand.
func NewLazySource(cfg corpuslode.StoreConfig) *LazySource {
	return &LazySource{cfg: cfg}
}

// Lookup opens the store if needed and delegates to it.
// An open failure is sticky and returned for every lookup.
func (l *LazySource) Lookup(ctx context.Context, id int) (string, error) {
	l.once.Do(func() {
		l.src, l.err = Open(l.cfg)
	})
	if l.err != nil {
		return "", l.err
	}
	return l.src.Lookup(ctx, id)
}

// Chain consults each source in order. A source reporting ErrFixtureNotFound
// passes the lookup to the next one; any other error stops the chain.
type Chain []Source

// Lookup returns the first body found.
func (c Chain) Lookup(ctx context.Context, id int) (string, error) {
	for _, src := range c {
		body, err := src.Lookup(ctx, id)
		if err == nil || !errors.Is(err, ErrFixtureNotFound) {
			return body, err
		}
	}
	return "", fmt.Errorf("%w: %s", ErrFixtureNotFound, Filename(id))
}
