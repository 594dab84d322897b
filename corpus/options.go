// Package corpus turns a scenario description into a corpus file.
//
// Options carry explicit presence: a nil field is skipped, a non-nil empty
// string is written as a zero-length record.
package corpus

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidOptions classifies input-configuration errors.
var ErrInvalidOptions = errors.New("invalid corpus options")

// Options describes one corpus file.
type Options struct {
	// Output is the destination path (required).
	Output string `yaml:"output"`
	// URL is the transfer target (required).
	URL string `yaml:"url"`

	// Exactly one response source must be set.
	Rsp1     *string `yaml:"rsp1"`
	Rsp1File *string `yaml:"rsp1file"`
	Rsp1Test *int    `yaml:"rsp1test"`

	Username      *string `yaml:"username"`
	Password      *string `yaml:"password"`
	PostFields    *string `yaml:"postfields"`
	Cookie        *string `yaml:"cookie"`
	Range         *string `yaml:"range"`
	CustomRequest *string `yaml:"customrequest"`
	MailFrom      *string `yaml:"mailfrom"`

	Headers        []string `yaml:"headers"`
	MailRecipients []string `yaml:"mailrecipients"`

	// At most one upload source may be set.
	Upload1     *string `yaml:"upload1"`
	Upload1File *string `yaml:"upload1file"`
}

// ResponseSource names the selected first-response source.
type ResponseSource string

// Response sources.
const (
	ResponseInline  ResponseSource = "rsp1"
	ResponseFile    ResponseSource = "rsp1file"
	ResponseFixture ResponseSource = "rsp1test"
)

// ResponseSource returns the selected response source, or "" when none is set.
// Callers should Validate first; with several set, the first in flag order wins.
func (o *Options) ResponseSource() ResponseSource {
	switch {
	case o.Rsp1 != nil:
		return ResponseInline
	case o.Rsp1File != nil:
		return ResponseFile
	case o.Rsp1Test != nil:
		return ResponseFixture
	default:
		return ""
	}
}

// Validate checks required fields and the exclusive source groups.
func (o *Options) Validate() error {
	var problems []string

	if o.Output == "" {
		problems = append(problems, "output is required")
	}
	if o.URL == "" {
		problems = append(problems, "url is required")
	}

	rsp := countSet(o.Rsp1 != nil, o.Rsp1File != nil, o.Rsp1Test != nil)
	switch {
	case rsp == 0:
		problems = append(problems, "one of rsp1, rsp1file, rsp1test is required")
	case rsp > 1:
		problems = append(problems, "rsp1, rsp1file and rsp1test are mutually exclusive")
	}

	if countSet(o.Upload1 != nil, o.Upload1File != nil) > 1 {
		problems = append(problems, "upload1 and upload1file are mutually exclusive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidOptions, strings.Join(problems, "; "))
	}
	return nil
}

func countSet(flags ...bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}
