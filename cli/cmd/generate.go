package cmd

import (
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/corpusgen/corpus"
)

// GenerateCommand returns the generate command, which writes one corpus file.
func GenerateCommand() *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "Write one TLV corpus file for the curl fuzzer",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:     "output",
				Aliases:  []string{"o"},
				Usage:    "Destination corpus file",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "url",
				Usage:    "Transfer URL",
				Required: true,
			},
			// First response: exactly one of
			&cli.StringFlag{
				Name:  "rsp1",
				Usage: "First response body, inline",
			},
			&cli.StringFlag{
				Name:  "rsp1file",
				Usage: "First response body, read raw from a file",
			},
			&cli.IntFlag{
				Name:  "rsp1test",
				Usage: "First response body, taken from fixture test<N>",
			},
			// Optional transfer fields
			&cli.StringFlag{Name: "username", Usage: "User name"},
			&cli.StringFlag{Name: "password", Usage: "Password"},
			&cli.StringFlag{Name: "postfields", Usage: "POST body"},
			&cli.StringFlag{Name: "cookie", Usage: "Cookie string"},
			&cli.StringFlag{Name: "range", Usage: "Byte range"},
			&cli.StringFlag{Name: "customrequest", Usage: "Custom request method"},
			&cli.StringFlag{Name: "mailfrom", Usage: "Mail sender"},
			&cli.StringSliceFlag{
				Name:      "header",
				KeepSpace: true,
				Usage:     "Request header (repeatable, order and bytes preserved)",
			},
			&cli.StringSliceFlag{
				Name:      "mailrecipient",
				KeepSpace: true,
				Usage:     "Mail recipient (repeatable, order and bytes preserved)",
			},
			// First upload: at most one of
			&cli.StringFlag{
				Name:  "upload1",
				Usage: "First upload body, inline",
			},
			&cli.StringFlag{
				Name:  "upload1file",
				Usage: "First upload body, read raw from a file",
			},
		}, GenerationFlags()...),
		Action: generateAction,
	}
}

func generateAction(c *cli.Context) error {
	env, err := newEnvironment(c, "generate")
	if err != nil {
		return configError(err)
	}
	defer env.Close()

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gen := corpus.NewGenerator(env.fixtures, env.logger, env.collector)
	sum := env.generate(ctx, gen, optionsFromFlags(c), "")

	if !env.quiet {
		if err := env.renderer.Render(sum); err != nil {
			return err
		}
	}
	return exitFor(sum.status, sum.Error)
}

// optionsFromFlags maps flags to corpus options. Only flags given on the
// command line become present fields; an explicit empty value stays present.
func optionsFromFlags(c *cli.Context) *corpus.Options {
	opts := &corpus.Options{
		Output:         c.String("output"),
		URL:            c.String("url"),
		Rsp1:           optionalString(c, "rsp1"),
		Rsp1File:       optionalString(c, "rsp1file"),
		Username:       optionalString(c, "username"),
		Password:       optionalString(c, "password"),
		PostFields:     optionalString(c, "postfields"),
		Cookie:         optionalString(c, "cookie"),
		Range:          optionalString(c, "range"),
		CustomRequest:  optionalString(c, "customrequest"),
		MailFrom:       optionalString(c, "mailfrom"),
		Headers:        c.StringSlice("header"),
		MailRecipients: c.StringSlice("mailrecipient"),
		Upload1:        optionalString(c, "upload1"),
		Upload1File:    optionalString(c, "upload1file"),
	}
	if c.IsSet("rsp1test") {
		id := c.Int("rsp1test")
		opts.Rsp1Test = &id
	}
	return opts
}

func optionalString(c *cli.Context, name string) *string {
	if !c.IsSet(name) {
		return nil
	}
	v := c.String(name)
	return &v
}
