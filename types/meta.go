//nolint:revive // types is a common Go package naming convention
package types

// CorpusMeta identifies one corpus file being generated.
// It is attached to every log entry for that file.
type CorpusMeta struct {
	// Output is the destination path of the corpus file.
	Output string
	// Scenario is the manifest scenario name, set for batch runs.
	Scenario *string
}
