// Package types defines core domain types shared across corpusgen packages.
//
//nolint:revive // types is a common Go package naming convention
package types

// Version is the canonical project version.
const Version = "0.2.0"

// EventContractVersion is the version of the corpus_generated notification payload.
// It moves in lockstep with Version.
const EventContractVersion = Version
