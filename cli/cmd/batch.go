package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/corpusgen/cli/config"
	"github.com/justapithecus/corpusgen/cli/render"
	"github.com/justapithecus/corpusgen/corpus"
	"github.com/justapithecus/corpusgen/fixture"
	"github.com/justapithecus/corpusgen/metrics"
	"github.com/justapithecus/corpusgen/types"
)

// Manifest lists the scenarios of a batch run.
type Manifest struct {
	// Fixtures are inline response bodies keyed by test ID. They take
	// precedence over the fixture repository.
	Fixtures  map[int]string `yaml:"fixtures"`
	Scenarios []Scenario     `yaml:"scenarios"`
}

// Scenario is one corpus file in a manifest.
type Scenario struct {
	Name           string `yaml:"name"`
	corpus.Options `yaml:",inline"`
}

// LoadManifest reads and strictly decodes a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read manifest: %w", err)
	}
	var m Manifest
	if err := config.DecodeStrict(data, &m); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}
	if len(m.Scenarios) == 0 {
		return nil, fmt.Errorf("manifest %s has no scenarios", path)
	}
	seen := make(map[string]bool, len(m.Scenarios))
	for i := range m.Scenarios {
		s := &m.Scenarios[i]
		if s.Name == "" {
			s.Name = filepath.Base(s.Output)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("manifest %s: duplicate scenario %q", path, s.Name)
		}
		seen[s.Name] = true
	}
	if _, err := resolveOutputs(m.Scenarios, ""); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return &m, nil
}

// resolveOutputs joins relative scenario outputs to outDir and rejects two
// scenarios writing the same file.
func resolveOutputs(scenarios []Scenario, outDir string) ([]string, error) {
	outputs := make([]string, len(scenarios))
	owner := make(map[string]string, len(scenarios))
	for i, s := range scenarios {
		out := s.Output
		if out != "" {
			if !filepath.IsAbs(out) {
				out = filepath.Join(outDir, out)
			}
			out = filepath.Clean(out)
			if prev, ok := owner[out]; ok {
				return nil, fmt.Errorf("scenarios %q and %q both write %s", prev, s.Name, out)
			}
			owner[out] = s.Name
		}
		outputs[i] = out
	}
	return outputs, nil
}

// BatchSummary reports a whole batch run.
type BatchSummary struct {
	Status   string           `json:"status" yaml:"status"`
	ExitCode int              `json:"exit_code" yaml:"exit_code"`
	Files    []FileSummary    `json:"files" yaml:"files"`
	Metrics  metrics.Snapshot `json:"metrics" yaml:"metrics"`
}

// batchTotals is the table-format footer of a batch summary.
type batchTotals struct {
	Status         string `json:"status"`
	FilesWritten   int64  `json:"files_written"`
	FilesFailed    int64  `json:"files_failed"`
	FilesCrashed   int64  `json:"files_crashed"`
	RecordsWritten int64  `json:"records_written"`
	PayloadBytes   int64  `json:"payload_bytes"`
	Published      int64  `json:"published"`
	Notified       int64  `json:"notified"`
}

// BatchCommand returns the batch command, which generates every scenario
// of a manifest in order.
func BatchCommand() *cli.Command {
	return &cli.Command{
		Name:  "batch",
		Usage: "Write every corpus file listed in a YAML manifest",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:     "manifest",
				Aliases:  []string{"m"},
				Usage:    "Path to the scenario manifest",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "out-dir",
				Usage: "Directory for relative scenario outputs",
				Value: ".",
			},
			&cli.BoolFlag{
				Name:  "fail-fast",
				Usage: "Stop at the first scenario that does not succeed",
			},
		}, GenerationFlags()...),
		Action: batchAction,
	}
}

func batchAction(c *cli.Context) error {
	manifest, err := LoadManifest(c.String("manifest"))
	if err != nil {
		return configError(err)
	}

	env, err := newEnvironment(c, "batch")
	if err != nil {
		return configError(err)
	}
	defer env.Close()

	outDir := c.String("out-dir")
	outputs, err := resolveOutputs(manifest.Scenarios, outDir)
	if err != nil {
		return configError(err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return configError(err)
	}

	fixtures := env.fixtures
	if len(manifest.Fixtures) > 0 {
		fixtures = fixture.Chain{fixture.MapSource(manifest.Fixtures), env.fixtures}
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gen := corpus.NewGenerator(fixtures, env.logger, env.collector)
	status := types.StatusSuccess
	files := make([]FileSummary, 0, len(manifest.Scenarios))

	for i, s := range manifest.Scenarios {
		if ctx.Err() != nil {
			env.logger.Warn("batch interrupted", map[string]any{"remaining": len(manifest.Scenarios) - len(files)})
			status = status.Worse(types.StatusFailure)
			break
		}

		opts := s.Options
		opts.Output = outputs[i]

		sum := env.generate(ctx, gen, &opts, s.Name)
		files = append(files, sum)
		status = status.Worse(sum.status)

		if c.Bool("fail-fast") && sum.status != types.StatusSuccess {
			break
		}
	}

	env.logger.Sugar().Infof("batch finished: %d of %d scenarios run, status %s",
		len(files), len(manifest.Scenarios), status)

	summary := BatchSummary{
		Status:   status.String(),
		ExitCode: status.ExitCode(),
		Files:    files,
		Metrics:  env.collector.Snapshot(),
	}
	if !env.quiet {
		if err := renderBatch(env.renderer, summary); err != nil {
			return err
		}
	}

	return exitFor(status, batchMessage(files))
}

// renderBatch prints per-file rows and a totals footer for tables, and the
// full summary for structured formats.
func renderBatch(r *render.Renderer, s BatchSummary) error {
	if r.Format() != render.FormatTable {
		return r.Render(s)
	}
	if err := r.Render(s.Files); err != nil {
		return err
	}
	return r.Render(batchTotals{
		Status:         s.Status,
		FilesWritten:   s.Metrics.FilesWritten,
		FilesFailed:    s.Metrics.FilesFailed,
		FilesCrashed:   s.Metrics.FilesCrashed,
		RecordsWritten: s.Metrics.RecordsWritten,
		PayloadBytes:   s.Metrics.PayloadBytes,
		Published:      s.Metrics.PublishSuccess,
		Notified:       s.Metrics.NotifySuccess,
	})
}

func batchMessage(files []FileSummary) string {
	var errs []error
	for _, f := range files {
		if f.Error != "" {
			errs = append(errs, fmt.Errorf("%s: %s", f.Scenario, f.Error))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err.Error()
	}
	return ""
}
