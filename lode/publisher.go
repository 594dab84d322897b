package lode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/justapithecus/lode/lode"
)

// ErrInvalidFilename is returned for corpus filenames that would escape the set prefix.
var ErrInvalidFilename = errors.New("invalid corpus filename")

// DeriveDay computes the partition day from the generation start time.
// Format: YYYY-MM-DD in UTC.
func DeriveDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// PublishConfig holds partition keys for published corpora.
type PublishConfig struct {
	// Set names the corpus set, typically the fuzz target ("curl_fuzzer_http").
	Set string
	// Day is derived from the generation start time (YYYY-MM-DD UTC).
	Day string
}

// Publisher uploads finished corpus files.
type Publisher interface {
	// PutFile writes a corpus file under the configured set.
	// The filename must not contain path separators or "..".
	PutFile(ctx context.Context, filename string, data []byte) error
	// FilePath returns the storage path PutFile writes filename to.
	FilePath(filename string) string
}

// LodePublisher publishes corpus files to a Lode store.
// Files land at Hive-partitioned paths: corpora/set=<set>/day=<day>/<filename>.
type LodePublisher struct {
	config       PublishConfig
	storeFactory lode.StoreFactory

	storeOnce sync.Once
	store     lode.Store
	storeErr  error
}

// Verify LodePublisher implements Publisher.
var _ Publisher = (*LodePublisher)(nil)

// NewLodePublisher creates a publisher over the given store factory.
func NewLodePublisher(cfg PublishConfig, factory lode.StoreFactory) *LodePublisher {
	return &LodePublisher{config: cfg, storeFactory: factory}
}

// PutFile writes data at the computed Hive path.
// Store initialization happens on first use.
func (p *LodePublisher) PutFile(ctx context.Context, filename string, data []byte) error {
	if err := validateFilename(filename); err != nil {
		return err
	}

	store, err := p.getOrCreateStore()
	if err != nil {
		return WrapInitError(err, p.config.Set)
	}

	path := p.FilePath(filename)
	if err := store.Put(ctx, path, bytes.NewReader(data)); err != nil {
		return WrapWriteError(err, path)
	}
	return nil
}

// FilePath computes the storage path for a corpus file.
func (p *LodePublisher) FilePath(filename string) string {
	return fmt.Sprintf("corpora/set=%s/day=%s/%s", p.config.Set, p.config.Day, filename)
}

func (p *LodePublisher) getOrCreateStore() (lode.Store, error) {
	p.storeOnce.Do(func() {
		p.store, p.storeErr = p.storeFactory()
	})
	return p.store, p.storeErr
}

func validateFilename(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	return nil
}

// StubPublisher records PutFile calls for testing.
type StubPublisher struct {
	mu    sync.Mutex
	Files []StubFileRecord
	Err   error
}

// StubFileRecord is a recorded publish for testing.
type StubFileRecord struct {
	Filename string
	Data     []byte
}

// PutFile implements Publisher by recording the call, or returning Err when set.
func (s *StubPublisher) PutFile(_ context.Context, filename string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Files = append(s.Files, StubFileRecord{Filename: filename, Data: data})
	return nil
}

// FilePath returns filename under a fixed "stub/" prefix.
func (s *StubPublisher) FilePath(filename string) string {
	return "stub/" + filename
}

// Verify StubPublisher implements Publisher.
var _ Publisher = (*StubPublisher)(nil)
