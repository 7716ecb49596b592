package lode

import (
	"errors"
	"fmt"
	"strings"
)

// Capture storage failure kinds, matched with errors.Is.
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("not found")
	ErrDiskFull         = errors.New("no space left on device")
	ErrTimeout          = errors.New("operation timed out")
	ErrThrottled        = errors.New("rate limited")
	// ErrAuth is missing or expired credentials.
	ErrAuth = errors.New("authentication failed")
	// ErrAccessDenied is valid credentials without permission.
	ErrAccessDenied = errors.New("access denied")
	ErrNetwork      = errors.New("network error")
	// ErrStorage is any failure that matches no other kind.
	ErrStorage = errors.New("storage error")
)

var kindNames = map[error]string{
	ErrPermissionDenied: "permission_denied",
	ErrNotFound:         "not_found",
	ErrDiskFull:         "disk_full",
	ErrTimeout:          "timeout",
	ErrThrottled:        "throttled",
	ErrAuth:             "auth",
	ErrAccessDenied:     "access_denied",
	ErrNetwork:          "network",
	ErrStorage:          "storage",
}

// StorageError is a classified capture storage failure.
type StorageError struct {
	// Kind is one of the Err* sentinels above.
	Kind error
	// Op is "init", "write" or "read".
	Op string
	// Path is the dataset or snapshot involved, if any.
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is matches the error's kind, so errors.Is(err, ErrDiskFull) works
// through the wrapper.
func (e *StorageError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// KindName returns the snake_case name of a storage error's kind, or ""
// when err is not a StorageError.
func KindName(err error) string {
	var se *StorageError
	if !errors.As(err, &se) {
		return ""
	}
	if name, ok := kindNames[se.Kind]; ok {
		return name
	}
	return kindNames[ErrStorage]
}

func wrap(op string, err error, path string) error {
	if err == nil {
		return nil
	}
	return &StorageError{Kind: classifyError(err), Op: op, Path: path, Err: err}
}

// WrapWriteError classifies a write failure. Returns nil for nil.
func WrapWriteError(err error, path string) error { return wrap("write", err, path) }

// WrapReadError classifies a read failure. Returns nil for nil.
func WrapReadError(err error, path string) error { return wrap("read", err, path) }

// WrapInitError classifies a client initialization failure. Returns nil for nil.
func WrapInitError(err error, dataset string) error { return wrap("init", err, dataset) }

// classifyError maps an error to a kind sentinel, first by type and then
// by message, since the FS and S3 stores report failures differently.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) && timeoutErr.Timeout() {
		return ErrTimeout
	}

	msg := err.Error()
	switch {
	case containsAny(msg, "permission denied", "EACCES", "access denied"):
		if containsAny(msg, "AccessDenied", "Forbidden", "403") {
			return ErrAccessDenied
		}
		return ErrPermissionDenied
	case containsAny(msg, "no such file", "does not exist", "not found", "ENOENT", "404", "NoSuchKey"):
		return ErrNotFound
	case containsAny(msg, "no space left", "disk full", "ENOSPC", "quota exceeded"):
		return ErrDiskFull
	case containsAny(msg, "timeout", "timed out", "deadline exceeded"):
		return ErrTimeout
	case containsAny(msg, "SlowDown", "rate exceeded", "throttl", "429", "TooManyRequests"):
		return ErrThrottled
	case containsAny(msg, "NoCredentialProviders", "credentials", "InvalidAccessKeyId",
		"SignatureDoesNotMatch", "ExpiredToken", "401", "Unauthorized"):
		return ErrAuth
	case containsAny(msg, "AccessDenied", "Forbidden", "403"):
		return ErrAccessDenied
	case containsAny(msg, "connection refused", "no route to host", "network unreachable",
		"DNS", "dial tcp"):
		return ErrNetwork
	default:
		return ErrStorage
	}
}

// containsAny reports whether s contains any of substrs, ignoring case.
func containsAny(s string, substrs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range substrs {
		if strings.Contains(lower, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}
