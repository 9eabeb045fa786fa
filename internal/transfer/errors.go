package transfer

import (
	"errors"
	"fmt"
	"net/textproto"
	"strings"
)

// expectedCodes lists the replies each command treats as success.
var expectedCodes = map[string][]int{
	"LOGIN": {230},
	"STOR":  {125, 150, 226},
	"RETR":  {125, 150, 226},
	"DELE":  {250},
	"RMD":   {250},
	"RNFR":  {350, 250},
	"MKD":   {257},
	"LIST":  {125, 150, 226},
}

// StatusError is a protocol-level rejection reported by the server.
type StatusError struct {
	Command  string
	Path     string
	Expected []int
	Received int
	Info     string
	Err      error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: expected %v, received %d: %s", e.Command, e.Path, e.Expected, e.Received, e.Info)
}

func (e *StatusError) Unwrap() error { return e.Err }

// ConnectError reports a failure to reach or greet the server.
type ConnectError struct {
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connecting to %s: %v", e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// statusError turns a textproto reply error into a *StatusError and wraps
// anything else with the command name.
func statusError(cmd, path string, err error) error {
	if err == nil {
		return nil
	}
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		return &StatusError{
			Command:  cmd,
			Path:     path,
			Expected: expectedCodes[cmd],
			Received: tpErr.Code,
			Info:     strings.TrimSpace(tpErr.Msg),
			Err:      err,
		}
	}
	return fmt.Errorf("%s %s: %w", strings.ToLower(cmd), path, err)
}
