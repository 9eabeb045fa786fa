package dispatcher

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"strings"
	"syscall"

	"ftp_control/internal/pathresolver"
	"ftp_control/internal/transfer"
)

// ErrorKind is the stable failure classification exposed to callers.
type ErrorKind string

const (
	InvalidArgument       ErrorKind = "InvalidArgument"
	RemoteStatusError     ErrorKind = "RemoteStatusError"
	LocalFileNotFound     ErrorKind = "LocalFileNotFound"
	LocalPermissionDenied ErrorKind = "LocalPermissionDenied"
	LocalSystemError      ErrorKind = "LocalSystemError"
	ConnectionError       ErrorKind = "ConnectionError"
	Unknown               ErrorKind = "Unknown"
)

// Error is a classified failure.
type Error struct {
	Kind     ErrorKind
	Detail   string
	Path     string
	Expected []int
	Received int
	Info     string
	Err      error
}

func (e *Error) Error() string { return e.Message() }

func (e *Error) Unwrap() error { return e.Err }

// Message renders the user-facing text for the failure.
func (e *Error) Message() string {
	switch e.Kind {
	case InvalidArgument:
		return "Invalid request: " + e.Detail
	case RemoteStatusError:
		return fmt.Sprintf("FTP server rejected the request (expected %s, received %d): %s",
			joinCodes(e.Expected), e.Received, e.Info)
	case LocalFileNotFound:
		return "Local file not found: " + e.Path
	case LocalPermissionDenied:
		return "Permission denied: " + e.Path
	case LocalSystemError:
		return "Local system error: " + e.Detail
	case ConnectionError:
		return "Could not reach the FTP server: " + e.Detail
	default:
		return "FTP operation failed: " + e.Detail
	}
}

func joinCodes(codes []int) string {
	if len(codes) == 0 {
		return "success"
	}
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = fmt.Sprint(c)
	}
	return strings.Join(parts, "/")
}

func invalid(format string, args ...any) *Error {
	return &Error{Kind: InvalidArgument, Detail: fmt.Sprintf(format, args...)}
}

// Classify maps any error onto an *Error.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var de *Error
	if errors.As(err, &de) {
		return de
	}

	if errors.Is(err, pathresolver.ErrPathEscape) {
		return &Error{Kind: InvalidArgument, Detail: err.Error(), Err: err}
	}

	var serr *transfer.StatusError
	if errors.As(err, &serr) {
		return &Error{
			Kind:     RemoteStatusError,
			Detail:   err.Error(),
			Path:     serr.Path,
			Expected: serr.Expected,
			Received: serr.Received,
			Info:     serr.Info,
			Err:      err,
		}
	}

	var cerr *transfer.ConnectError
	if errors.As(err, &cerr) {
		return &Error{Kind: ConnectionError, Detail: err.Error(), Err: err}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &Error{Kind: ConnectionError, Detail: err.Error(), Err: err}
	}

	var pathErr *fs.PathError
	errPath := ""
	if errors.As(err, &pathErr) {
		errPath = pathErr.Path
	}

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return &Error{Kind: LocalFileNotFound, Detail: err.Error(), Path: errPath, Err: err}
	case errors.Is(err, fs.ErrPermission):
		return &Error{Kind: LocalPermissionDenied, Detail: err.Error(), Path: errPath, Err: err}
	}

	var errno syscall.Errno
	if pathErr != nil || errors.As(err, &errno) {
		return &Error{Kind: LocalSystemError, Detail: err.Error(), Path: errPath, Err: err}
	}

	return &Error{Kind: Unknown, Detail: err.Error(), Err: err}
}
