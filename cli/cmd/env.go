package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/corpusgen/adapter"
	"github.com/justapithecus/corpusgen/adapter/redis"
	"github.com/justapithecus/corpusgen/adapter/webhook"
	"github.com/justapithecus/corpusgen/cli/config"
	"github.com/justapithecus/corpusgen/cli/render"
	"github.com/justapithecus/corpusgen/corpus"
	"github.com/justapithecus/corpusgen/fixture"
	"github.com/justapithecus/corpusgen/iox"
	corpuslode "github.com/justapithecus/corpusgen/lode"
	"github.com/justapithecus/corpusgen/log"
	"github.com/justapithecus/corpusgen/metrics"
	"github.com/justapithecus/corpusgen/types"
)

// environment carries the collaborators of one generate or batch invocation.
type environment struct {
	cfg       *config.Config
	logger    *log.Logger
	collector *metrics.Collector
	fixtures  fixture.Source
	renderer  *render.Renderer
	quiet     bool

	// publisher is nil when publishing is disabled.
	publisher corpuslode.Publisher
	// notifier is nil when no adapter is configured.
	notifier adapter.Adapter
	set      string
}

// newEnvironment resolves flags against the config file and builds every
// collaborator. Errors here are input-configuration failures.
func newEnvironment(c *cli.Context, command string) (*environment, error) {
	r, err := render.NewRenderer(c)
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadOrDefault(c.String("config"))
	if err != nil {
		return nil, err
	}

	logger := log.NewLogger(nil).WithOutput(c.App.ErrWriter)
	if err := logger.SetLevel(resolveString(c, "log-level", cfg.Log.Level)); err != nil {
		return nil, err
	}

	env := &environment{
		cfg:       cfg,
		logger:    logger,
		collector: metrics.NewCollector(command),
		fixtures:  fixture.NewLazySource(fixtureStoreConfig(c, cfg)),
		renderer:  r,
		quiet:     c.Bool("quiet"),
		set:       resolveString(c, "publish-set", cfg.Publish.Set),
	}

	env.publisher, err = buildPublisher(c, cfg, env.set, time.Now())
	if err != nil {
		return nil, err
	}

	env.notifier, err = buildAdapter(c, cfg)
	if err != nil {
		return nil, err
	}

	return env, nil
}

// Close releases the notifier and flushes logs.
func (e *environment) Close() {
	if e.notifier != nil {
		if err := e.notifier.Close(); err != nil {
			e.logger.Warn("failed to close adapter", map[string]any{"error": err.Error()})
		}
	}
	iox.DiscardErr(e.logger.Sync)
}

func fixtureStoreConfig(c *cli.Context, cfg *config.Config) corpuslode.StoreConfig {
	return corpuslode.StoreConfig{
		Backend:      resolveString(c, "fixtures-backend", cfg.Fixtures.Backend),
		Path:         resolveString(c, "fixtures-path", cfg.Fixtures.Path),
		Region:       resolveString(c, "fixtures-s3-region", cfg.Fixtures.Region),
		Endpoint:     resolveString(c, "fixtures-s3-endpoint", cfg.Fixtures.Endpoint),
		UsePathStyle: resolveBool(c, "fixtures-s3-path-style", cfg.Fixtures.S3PathStyle),
	}
}

func publishStoreConfig(c *cli.Context, cfg *config.Config) corpuslode.StoreConfig {
	return corpuslode.StoreConfig{
		Backend:      resolveString(c, "publish-backend", cfg.Publish.Backend),
		Path:         resolveString(c, "publish-path", cfg.Publish.Path),
		Region:       resolveString(c, "publish-s3-region", cfg.Publish.Region),
		Endpoint:     resolveString(c, "publish-s3-endpoint", cfg.Publish.Endpoint),
		UsePathStyle: resolveBool(c, "publish-s3-path-style", cfg.Publish.S3PathStyle),
	}
}

// buildPublisher returns nil when no publish path is configured.
func buildPublisher(c *cli.Context, cfg *config.Config, set string, now time.Time) (corpuslode.Publisher, error) {
	storeCfg := publishStoreConfig(c, cfg)
	if storeCfg.Path == "" {
		return nil, nil
	}
	if strings.ContainsAny(set, `/\`) || set == "" {
		return nil, fmt.Errorf("invalid --publish-set %q", set)
	}

	factory, err := corpuslode.NewStoreFactory(storeCfg)
	if err != nil {
		return nil, fmt.Errorf("publish storage: %w", err)
	}
	return corpuslode.NewLodePublisher(corpuslode.PublishConfig{
		Set: set,
		Day: corpuslode.DeriveDay(now),
	}, factory), nil
}

// buildAdapter returns nil when no adapter type is configured.
func buildAdapter(c *cli.Context, cfg *config.Config) (adapter.Adapter, error) {
	kind := resolveString(c, "adapter", cfg.Adapter.Type)
	if kind == "" {
		return nil, nil
	}

	url := resolveString(c, "adapter-url", cfg.Adapter.URL)
	timeout := resolveDuration(c, "adapter-timeout", cfg.Adapter.Timeout.Duration)

	retries := c.Int("adapter-retries")
	if cfg.Adapter.Retries != nil {
		retries = resolveInt(c, "adapter-retries", *cfg.Adapter.Retries)
	}

	switch kind {
	case "webhook":
		headers, err := parseHeaders(c.StringSlice("adapter-header"), cfg.Adapter.Headers)
		if err != nil {
			return nil, err
		}
		return webhook.New(webhook.Config{
			URL:     url,
			Headers: headers,
			Timeout: timeout,
			Retries: retries,
		})
	case "redis":
		return redis.New(redis.Config{
			URL:     url,
			Channel: resolveString(c, "adapter-channel", cfg.Adapter.Channel),
			Timeout: timeout,
			Retries: retries,
			History: resolveInt64(c, "adapter-history", cfg.Adapter.History),
		})
	default:
		return nil, fmt.Errorf("unknown adapter %q (must be webhook or redis)", kind)
	}
}

// parseHeaders merges Name=Value flags over config headers.
func parseHeaders(flags []string, fromConfig map[string]string) (map[string]string, error) {
	headers := make(map[string]string, len(fromConfig)+len(flags))
	for k, v := range fromConfig {
		headers[k] = v
	}
	for _, h := range flags {
		name, value, ok := strings.Cut(h, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid --adapter-header %q (want Name=Value)", h)
		}
		headers[strings.TrimSpace(name)] = value
	}
	return headers, nil
}

// FileSummary reports the outcome of one corpus file.
type FileSummary struct {
	Scenario    string `json:"scenario,omitempty" yaml:"scenario,omitempty"`
	Output      string `json:"output" yaml:"output"`
	Status      string `json:"status" yaml:"status"`
	ExitCode    int    `json:"exit_code" yaml:"exit_code"`
	Records     int64  `json:"records" yaml:"records"`
	Bytes       int64  `json:"bytes" yaml:"bytes"`
	StoragePath string `json:"storage_path,omitempty" yaml:"storage_path,omitempty"`
	Error       string `json:"error,omitempty" yaml:"error,omitempty"`
	DurationMs  int64  `json:"duration_ms" yaml:"duration_ms"`

	status types.Status
}

// generate runs one scenario end to end: encode, publish, notify.
// Publish failures downgrade a success to a failure; notification
// failures are logged only.
func (e *environment) generate(ctx context.Context, gen *corpus.Generator, opts *corpus.Options, scenario string) FileSummary {
	meta := &types.CorpusMeta{Output: opts.Output}
	if scenario != "" {
		meta.Scenario = &scenario
	}
	logger := e.logger.ForCorpus(meta)

	start := time.Now()
	before := e.collector.Snapshot().RecordsWritten

	res := gen.WithLogger(logger).Run(ctx, opts)

	sum := FileSummary{
		Scenario: scenario,
		Output:   res.Output,
		Records:  e.collector.Snapshot().RecordsWritten - before,
		Bytes:    res.Bytes,
		status:   res.Status,
	}
	if res.Err != nil {
		sum.Error = res.Err.Error()
	}

	if res.Status == types.StatusSuccess && e.publisher != nil {
		path, err := e.publish(ctx, res.Output)
		if err != nil {
			logger.Error("failed to publish corpus", map[string]any{"error": err.Error()})
			e.collector.IncPublishFailure()
			sum.status = types.StatusFailure
			sum.Error = err.Error()
		} else {
			logger.Info("corpus published", map[string]any{"storage_path": path})
			e.collector.IncPublishSuccess()
			sum.StoragePath = path
		}
	}

	sum.DurationMs = time.Since(start).Milliseconds()
	sum.Status = sum.status.String()
	sum.ExitCode = sum.status.ExitCode()

	if sum.status == types.StatusSuccess && e.notifier != nil {
		e.notify(ctx, logger, &sum)
	}
	return sum
}

func (e *environment) publish(ctx context.Context, output string) (string, error) {
	data, err := os.ReadFile(output)
	if err != nil {
		return "", err
	}
	name := filepath.Base(output)
	if err := e.publisher.PutFile(ctx, name, data); err != nil {
		return "", err
	}
	return e.publisher.FilePath(name), nil
}

func (e *environment) notify(ctx context.Context, logger *log.Logger, sum *FileSummary) {
	event := adapter.NewCorpusGeneratedEvent(sum.Output, sum.status, time.Now())
	event.Scenario = sum.Scenario
	event.StoragePath = sum.StoragePath
	event.Records = sum.Records
	event.Bytes = sum.Bytes
	event.DurationMs = sum.DurationMs
	if e.publisher != nil {
		event.Set = e.set
	}

	if err := e.notifier.Publish(ctx, event); err != nil {
		logger.Warn("failed to publish corpus_generated event", map[string]any{"error": err.Error()})
		e.collector.IncNotifyFailure()
		return
	}
	e.collector.IncNotifySuccess()
}

// exitFor converts a final status into the command's return value.
func exitFor(status types.Status, msg string) error {
	if status == types.StatusSuccess {
		return nil
	}
	return cli.Exit(msg, status.ExitCode())
}

// configError reports an input-configuration failure with the failure exit code.
func configError(err error) error {
	return cli.Exit(err.Error(), types.StatusFailure.ExitCode())
}
