//nolint:revive // types is a common Go package naming convention
package types

// Status is the terminal status of a generation run.
// Numeric values double as process exit codes.
type Status int

const (
	// StatusSuccess indicates every requested corpus file was written.
	StatusSuccess Status = 0
	// StatusFailure indicates an ordinary failure: bad input or an I/O error.
	StatusFailure Status = 1
	// StatusException indicates a runtime fault recovered at the top level.
	StatusException Status = 2
)

// String returns the lowercase status name.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	case StatusException:
		return "exception"
	default:
		return "unknown"
	}
}

// ExitCode returns the process exit code for s.
// Unknown statuses map to StatusException's code.
func (s Status) ExitCode() int {
	switch s {
	case StatusSuccess, StatusFailure, StatusException:
		return int(s)
	default:
		return int(StatusException)
	}
}

// Worse returns the more severe of s and other.
func (s Status) Worse(other Status) Status {
	if other.ExitCode() > s.ExitCode() {
		return other
	}
	return s
}
