package lode

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		errMsg   string
		wantKind error
	}{
		// write_timeout / timeout
		{
			name:     "context deadline exceeded",
			errMsg:   "context deadline exceeded",
			wantKind: ErrTimeout,
		},
		{
			name:     "operation timed out",
			errMsg:   "operation timed out",
			wantKind: ErrTimeout,
		},
		{
			name:     "timeout in message",
			errMsg:   "connection timeout after 30s",
			wantKind: ErrTimeout,
		},

		// access_denied (before permission_denied in table)
		{
			name:     "AccessDenied response",
			errMsg:   "AccessDenied: you do not have access",
			wantKind: ErrAccessDenied,
		},
		{
			name:     "Forbidden response",
			errMsg:   "Forbidden",
			wantKind: ErrAccessDenied,
		},
		{
			name:     "HTTP 403",
			errMsg:   "received status 403",
			wantKind: ErrAccessDenied,
		},

		// permission_denied
		{
			name:     "permission denied",
			errMsg:   "permission denied for /data/output",
			wantKind: ErrPermissionDenied,
		},
		{
			name:     "EACCES errno",
			errMsg:   "open /tmp/file: EACCES",
			wantKind: ErrPermissionDenied,
		},

		// disk_full
		{
			name:     "no space left on device",
			errMsg:   "write /data/output: no space left on device",
			wantKind: ErrDiskFull,
		},
		{
			name:     "ENOSPC errno",
			errMsg:   "ENOSPC: write failed",
			wantKind: ErrDiskFull,
		},
		{
			name:     "disk full",
			errMsg:   "disk full, cannot write",
			wantKind: ErrDiskFull,
		},
		{
			name:     "quota exceeded",
			errMsg:   "quota exceeded for user",
			wantKind: ErrDiskFull,
		},

		// not_found
		{
			name:     "no such file",
			errMsg:   "no such file or directory",
			wantKind: ErrNotFound,
		},
		{
			name:     "ENOENT errno",
			errMsg:   "open /missing: ENOENT",
			wantKind: ErrNotFound,
		},
		{
			name:     "NoSuchKey S3",
			errMsg:   "NoSuchKey: The specified key does not exist",
			wantKind: ErrNotFound,
		},
		{
			name:     "HTTP 404",
			errMsg:   "received status 404",
			wantKind: ErrNotFound,
		},

		// rate_limited
		{
			name:     "HTTP 429",
			errMsg:   "received status 429",
			wantKind: ErrThrottled,
		},
		{
			name:     "SlowDown S3",
			errMsg:   "SlowDown: please reduce request rate",
			wantKind: ErrThrottled,
		},
		{
			name:     "TooManyRequests",
			errMsg:   "TooManyRequests: rate limit exceeded",
			wantKind: ErrThrottled,
		},
		{
			name:     "throttled message",
			errMsg:   "request was throttled",
			wantKind: ErrThrottled,
		},

		// auth
		{
			name:     "NoCredentialProviders",
			errMsg:   "NoCredentialProviders: no valid credential providers",
			wantKind: ErrAuth,
		},
		{
			name:     "ExpiredToken",
			errMsg:   "ExpiredToken: the security token has expired",
			wantKind: ErrAuth,
		},
		{
			name:     "HTTP 401",
			errMsg:   "received status 401",
			wantKind: ErrAuth,
		},

		// network
		{
			name:     "connection refused",
			errMsg:   "dial tcp 127.0.0.1:9000: connection refused",
			wantKind: ErrNetwork,
		},
		{
			name:     "no route to host",
			errMsg:   "no route to host",
			wantKind: ErrNetwork,
		},
		{
			name:     "DNS resolution failure",
			errMsg:   "DNS lookup failed for bucket.s3.amazonaws.com",
			wantKind: ErrNetwork,
		},

		// unclassified (fallback)
		{
			name:     "unrecognized error",
			errMsg:   "something completely unexpected happened",
			wantKind: ErrUnclassified,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyError(errors.New(tt.errMsg))
			if !errors.Is(got, tt.wantKind) {
				t.Errorf("classifyError(%q) = %v, want %v", tt.errMsg, got, tt.wantKind)
			}
		})
	}
}

func TestClassifyError_TypedErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind error
	}{
		{"wrapped fs.ErrNotExist", fmt.Errorf("open fixture: %w", fs.ErrNotExist), ErrNotFound},
		{"wrapped fs.ErrPermission", fmt.Errorf("open corpus: %w", fs.ErrPermission), ErrPermissionDenied},
		{"timeout interface", timeoutError{}, ErrTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyError(tt.err); !errors.Is(got, tt.wantKind) {
				t.Errorf("classifyError = %v, want %v", got, tt.wantKind)
			}
		})
	}
}

type timeoutError struct{}

func (timeoutError) Error() string { return "slow" }
func (timeoutError) Timeout() bool { return true }

func TestWrapErrors(t *testing.T) {
	base := errors.New("write corpora/x.bin: no space left on device")

	err := WrapWriteError(base, "corpora/x.bin")
	var storageErr *StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("expected *StorageError, got %T", err)
	}
	if storageErr.Op != "write" || storageErr.Path != "corpora/x.bin" {
		t.Errorf("unexpected op/path: %s %s", storageErr.Op, storageErr.Path)
	}
	if !errors.Is(err, ErrDiskFull) {
		t.Errorf("expected ErrDiskFull kind, got %v", storageErr.Kind)
	}
	if !errors.Is(err, base) {
		t.Error("underlying error lost from chain")
	}

	if WrapWriteError(nil, "x") != nil || WrapReadError(nil, "x") != nil || WrapInitError(nil, "x") != nil {
		t.Error("wrapping nil must return nil")
	}

	readErr := WrapReadError(fs.ErrNotExist, "test42")
	if !errors.Is(readErr, ErrNotFound) {
		t.Errorf("read of missing key should classify as not found: %v", readErr)
	}
	if got := readErr.Error(); got != "read test42: not found: file does not exist" {
		t.Errorf("Error() = %q", got)
	}
}

func TestClassifyError_Nil(t *testing.T) {
	got := classifyError(nil)
	if got != nil {
		t.Errorf("classifyError(nil) = %v, want nil", got)
	}
}
