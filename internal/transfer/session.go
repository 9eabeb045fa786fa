// Package transfer defines the remote file-transfer capability used by the
// dispatcher and its FTP/FTPS implementation.
package transfer

import (
	"context"
	"fmt"
	"time"
)

// TLSMode selects how a session is secured.
type TLSMode int

const (
	TLSPlain TLSMode = iota
	TLSImplicit
	TLSExplicit
)

func (m TLSMode) String() string {
	switch m {
	case TLSImplicit:
		return "implicit"
	case TLSExplicit:
		return "explicit"
	default:
		return "plain"
	}
}

// ModeFromFlags maps the two security switches onto a TLS mode.
// Implicit wins when both are set.
func ModeFromFlags(implicit, explicit bool) TLSMode {
	switch {
	case implicit:
		return TLSImplicit
	case explicit:
		return TLSExplicit
	default:
		return TLSPlain
	}
}

// Options carries everything needed to open one session.
type Options struct {
	Host     string
	Port     int
	User     string
	Password string
	TLSMode  TLSMode
	Timeout  time.Duration

	InsecureSkipVerify bool
	ClientCertPath     string
	ClientCertPassword string
}

// Addr returns host:port.
func (o Options) Addr() string {
	return fmt.Sprintf("%s:%d", o.Host, o.Port)
}

// EntryType classifies a listing entry.
type EntryType int

const (
	EntryFile EntryType = iota
	EntryDir
	EntryLink
)

// Entry is one item of a directory listing.
type Entry struct {
	Name string
	Type EntryType
	Size uint64
	Time time.Time
}

// Session is an authenticated connection to the remote server.
// Uploads and downloads always overwrite the destination.
type Session interface {
	Upload(localPath, remotePath string) error
	Download(remotePath, localPath string) error
	Remove(remotePath string) error
	Rename(from, to string) error
	MakeDir(remotePath string) error
	List(remotePath string) ([]Entry, error)
	Close() error
}

// Dialer opens sessions. Implementations must be safe for concurrent use.
type Dialer interface {
	Dial(ctx context.Context, opts Options) (Session, error)
}
