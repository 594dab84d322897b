package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/corpusgen/cli/config"
	"github.com/justapithecus/corpusgen/cli/render"
	"github.com/justapithecus/corpusgen/fixture"
	"github.com/justapithecus/corpusgen/tlv"
)

// listWarningThreshold is the number of fixtures above which we warn about using --limit.
const listWarningThreshold = 100

// FieldRow describes one TLV record type.
type FieldRow struct {
	Type       uint16 `json:"type" yaml:"type"`
	Name       string `json:"name" yaml:"name"`
	Repeatable bool   `json:"repeatable" yaml:"repeatable"`
}

// FixtureRow describes one test case in the fixture repository.
type FixtureRow struct {
	ID   int    `json:"id" yaml:"id"`
	File string `json:"file" yaml:"file"`
}

// ListCommand returns the list command with subcommands.
func ListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List record types and fixtures",
		Subcommands: []*cli.Command{
			listFieldsCommand(),
			listFixturesCommand(),
		},
	}
}

func listFieldsCommand() *cli.Command {
	return &cli.Command{
		Name:   "fields",
		Usage:  "List the TLV record types in write order of their numeric codes",
		Flags:  OutputFlags(),
		Action: listFieldsAction,
	}
}

func listFieldsAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return configError(err)
	}
	return r.Render(fieldRows())
}

func fieldRows() []FieldRow {
	all := tlv.Types()
	rows := make([]FieldRow, 0, len(all))
	for _, t := range all {
		rows = append(rows, FieldRow{Type: uint16(t), Name: t.String(), Repeatable: t.Repeatable()})
	}
	return rows
}

func supportedFields() int {
	return len(tlv.Types())
}

func listFixturesCommand() *cli.Command {
	flags := append(OutputFlags(), configFlags()...)
	flags = append(flags, fixtureFlags()...)
	return &cli.Command{
		Name:  "fixtures",
		Usage: "List test case IDs in the fixture repository",
		Flags: append(flags, &cli.IntFlag{
			Name:  "limit",
			Usage: "Maximum number of fixtures to return (0 = no limit)",
		}),
		Action: listFixturesAction,
	}
}

func listFixturesAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return configError(err)
	}

	cfg, err := config.LoadOrDefault(c.String("config"))
	if err != nil {
		return configError(err)
	}

	src, err := fixture.Open(fixtureStoreConfig(c, cfg))
	if err != nil {
		return configError(err)
	}

	ids, err := src.IDs(c.Context)
	if err != nil {
		return configError(err)
	}

	limit := c.Int("limit")
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	// Warn on large unbounded listings, TTY only to keep pipelines clean
	if len(ids) > listWarningThreshold && limit == 0 && isTTY(c.App.ErrWriter) {
		fmt.Fprintf(c.App.ErrWriter, "Warning: returning %d fixtures. Consider using --limit to reduce output.\n\n", len(ids))
	}

	rows := make([]FixtureRow, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, FixtureRow{ID: id, File: fixture.Filename(id)})
	}
	return r.Render(rows)
}

// isTTY reports whether w is a character device.
func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
