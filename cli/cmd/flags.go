// Package cmd provides CLI commands for the corpusgen binary.
package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/corpusgen/fixture"
)

// Output flags shared by every command.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}

	// QuietFlag suppresses the summary. Logs are unaffected.
	QuietFlag = &cli.BoolFlag{
		Name:  "quiet",
		Usage: "Suppress the summary output",
	}
)

// OutputFlags returns the rendering flags.
func OutputFlags() []cli.Flag {
	return []cli.Flag{FormatFlag, NoColorFlag}
}

// GenerationFlags returns the flags shared by generate and batch:
// output, config file, logging, fixture repository, publishing and notification.
func GenerationFlags() []cli.Flag {
	flags := []cli.Flag{FormatFlag, NoColorFlag, QuietFlag}
	flags = append(flags, configFlags()...)
	flags = append(flags, fixtureFlags()...)
	flags = append(flags, publishFlags()...)
	return append(flags, adapterFlags()...)
}

func configFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "Path to YAML config file (default: ./corpusgen.yaml when present)",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
			Value: "debug",
		},
	}
}

func fixtureFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "fixtures-backend",
			Usage: "Fixture repository backend: fs or s3",
			Value: "fs",
		},
		&cli.StringFlag{
			Name:  "fixtures-path",
			Usage: "Fixture repository (fs: directory of test<N> files, s3: bucket/prefix)",
			Value: fixture.DefaultPath,
		},
		&cli.StringFlag{
			Name:  "fixtures-s3-region",
			Usage: "AWS region for the S3 fixture repository",
		},
		&cli.StringFlag{
			Name:  "fixtures-s3-endpoint",
			Usage: "Custom S3 endpoint for the fixture repository",
		},
		&cli.BoolFlag{
			Name:  "fixtures-s3-path-style",
			Usage: "Force path-style addressing for the S3 fixture repository",
		},
	}
}

func publishFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "publish-backend",
			Usage: "Publish generated corpora to storage: fs or s3",
			Value: "fs",
		},
		&cli.StringFlag{
			Name:  "publish-path",
			Usage: "Publish destination (fs: directory, s3: bucket/prefix); empty disables publishing",
		},
		&cli.StringFlag{
			Name:  "publish-set",
			Usage: "Corpus set name used as the set= partition",
			Value: "default",
		},
		&cli.StringFlag{
			Name:  "publish-s3-region",
			Usage: "AWS region for the S3 publish backend",
		},
		&cli.StringFlag{
			Name:  "publish-s3-endpoint",
			Usage: "Custom S3 endpoint for the publish backend",
		},
		&cli.BoolFlag{
			Name:  "publish-s3-path-style",
			Usage: "Force path-style addressing for the S3 publish backend",
		},
	}
}

func adapterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "adapter",
			Usage: "Notification adapter: webhook or redis",
		},
		&cli.StringFlag{
			Name:  "adapter-url",
			Usage: "Webhook endpoint or Redis URL",
		},
		&cli.StringFlag{
			Name:  "adapter-channel",
			Usage: "Redis pub/sub channel",
		},
		&cli.StringSliceFlag{
			Name:  "adapter-header",
			Usage: "Webhook header as Name=Value (repeatable)",
		},
		&cli.DurationFlag{
			Name:  "adapter-timeout",
			Usage: "Per-attempt notification timeout",
		},
		&cli.IntFlag{
			Name:  "adapter-retries",
			Usage: "Notification retry attempts",
			Value: 3,
		},
		&cli.Int64Flag{
			Name:  "adapter-history",
			Usage: "Keep the newest N events in the Redis list <channel>:recent (0 = off)",
		},
	}
}
