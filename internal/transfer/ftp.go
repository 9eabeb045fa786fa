package transfer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"os"
	"path/filepath"

	"github.com/jlaffaye/ftp"
	"github.com/sirupsen/logrus"

	"ftp_control/internal/logger"
)

const (
	anonymousUser     = "anonymous"
	anonymousPassword = "anon@"
)

// FTPDialer opens sessions with github.com/jlaffaye/ftp.
type FTPDialer struct {
	sessionCache tls.ClientSessionCache
	log          *logger.Logger
}

// NewFTPDialer returns a dialer sharing one TLS session cache across sessions.
func NewFTPDialer(sessionCache tls.ClientSessionCache, log *logger.Logger) *FTPDialer {
	if sessionCache == nil {
		sessionCache = NewSessionCache()
	}
	return &FTPDialer{sessionCache: sessionCache, log: log}
}

var _ Dialer = (*FTPDialer)(nil)

// dialOptions translates Options into jlaffaye/ftp dial options.
func (d *FTPDialer) dialOptions(ctx context.Context, opts Options) ([]ftp.DialOption, error) {
	dialOpts := []ftp.DialOption{ftp.DialWithContext(ctx)}
	if opts.Timeout > 0 {
		dialOpts = append(dialOpts, ftp.DialWithTimeout(opts.Timeout))
	}

	if opts.TLSMode == TLSPlain {
		return dialOpts, nil
	}

	cfg, err := tlsConfig(opts, d.sessionCache)
	if err != nil {
		return nil, err
	}
	if opts.TLSMode == TLSImplicit {
		dialOpts = append(dialOpts, ftp.DialWithTLS(cfg))
	} else {
		dialOpts = append(dialOpts, ftp.DialWithExplicitTLS(cfg))
	}
	return dialOpts, nil
}

// Dial connects and logs in.
func (d *FTPDialer) Dial(ctx context.Context, opts Options) (Session, error) {
	dialOpts, err := d.dialOptions(ctx, opts)
	if err != nil {
		return nil, err
	}

	addr := opts.Addr()
	log := d.log.Service().WithFields(logrus.Fields{"addr": addr, "tls": opts.TLSMode.String()})
	log.Debug("connecting to FTP server")

	// Connect. With TLS the control channel is secured here, either from the
	// first byte (implicit) or after AUTH TLS (explicit).
	conn, err := ftp.Dial(addr, dialOpts...)
	if err != nil {
		return nil, &ConnectError{Addr: addr, Err: err}
	}

	// Log in, anonymously when no user is configured.
	user, password := opts.User, opts.Password
	if user == "" {
		user, password = anonymousUser, anonymousPassword
	}
	if err := conn.Login(user, password); err != nil {
		if qerr := conn.Quit(); qerr != nil {
			log.WithError(qerr).Debug("quit after failed login")
		}
		return nil, statusError("LOGIN", user, err)
	}

	// Binary mode keeps uploads and downloads byte-exact.
	if err := conn.Type(ftp.TransferTypeBinary); err != nil {
		log.WithError(err).Warn("failed to set binary mode")
	}

	log.Debug("logged in")
	return &ftpSession{conn: conn, log: log}, nil
}

type ftpSession struct {
	conn *ftp.ServerConn
	log  *logrus.Entry
}

func (s *ftpSession) Upload(localPath, remotePath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	return statusError("STOR", remotePath, s.conn.Stor(remotePath, f))
}

func (s *ftpSession) Download(remotePath, localPath string) error {
	// RETR opens the data connection; a rejection here means nothing was written locally.
	resp, err := s.conn.Retr(remotePath)
	if err != nil {
		return statusError("RETR", remotePath, err)
	}

	n, err := writeLocal(localPath, resp)
	if err != nil {
		resp.Close()
		return err
	}

	// Closing the response reads the final 226 from the control connection.
	return s.finishRetr(remotePath, n, resp.Close())
}

// finishRetr interprets the reply read when the RETR data connection closes.
func (s *ftpSession) finishRetr(remotePath string, n int64, err error) error {
	if err == nil {
		return nil
	}
	// Some FTPS servers answer 425 on close after a complete transfer.
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) && tpErr.Code == ftp.StatusCanNotOpenDataConnection && n > 0 {
		s.log.WithError(err).Warn("data connection closed with 425 after transfer")
		return nil
	}
	return statusError("RETR", remotePath, err)
}

// writeLocal streams r into a temporary file next to localPath and renames it
// into place once the copy succeeded, so a failed transfer never truncates an
// existing file.
func writeLocal(localPath string, r io.Reader) (int64, error) {
	dir := filepath.Dir(localPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(localPath)+".part-*")
	if err != nil {
		return 0, err
	}
	tmpName := tmp.Name()

	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmpName, localPath)
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return n, err
	}
	return n, nil
}

// Remove deletes a file, falling back to recursive directory removal when the
// server refuses DELE.
func (s *ftpSession) Remove(remotePath string) error {
	err := statusError("DELE", remotePath, s.conn.Delete(remotePath))
	var serr *StatusError
	if !errors.As(err, &serr) {
		return err
	}
	// DELE refuses directories on most servers. Try removing it as a tree and
	// report the DELE reply when that fails as well.
	if rerr := s.conn.RemoveDirRecur(remotePath); rerr != nil {
		s.log.WithError(rerr).Debug("recursive removal failed")
		return err
	}
	return nil
}

func (s *ftpSession) Rename(from, to string) error {
	return statusError("RNFR", from, s.conn.Rename(from, to))
}

func (s *ftpSession) MakeDir(remotePath string) error {
	return statusError("MKD", remotePath, s.conn.MakeDir(remotePath))
}

func (s *ftpSession) List(remotePath string) ([]Entry, error) {
	raw, err := s.conn.List(remotePath)
	if err != nil {
		return nil, statusError("LIST", remotePath, err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, e := range raw {
		// Some servers include the self and parent links in LIST output.
		if e.Name == "." || e.Name == ".." {
			continue
		}
		entries = append(entries, Entry{
			Name: e.Name,
			Type: entryType(e.Type),
			Size: e.Size,
			Time: e.Time,
		})
	}
	return entries, nil
}

func (s *ftpSession) Close() error {
	if err := s.conn.Quit(); err != nil {
		return fmt.Errorf("closing FTP connection: %w", err)
	}
	return nil
}

func entryType(t ftp.EntryType) EntryType {
	switch t {
	case ftp.EntryTypeFolder:
		return EntryDir
	case ftp.EntryTypeLink:
		return EntryLink
	default:
		return EntryFile
	}
}
