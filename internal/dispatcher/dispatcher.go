// Package dispatcher turns ftp_manage requests into operations on one
// transfer session and reports a classified outcome.
package dispatcher

import (
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"ftp_control/config"
	"ftp_control/internal/logger"
	"ftp_control/internal/pathresolver"
	"ftp_control/internal/transfer"
	"ftp_control/models"
)

// Phase is the lifecycle position of one invocation.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseValidating
	PhaseSessionOpen
	PhaseExecuting
	PhaseSessionClosed
	PhaseCompleted
	PhaseFailed
)

var phaseNames = [...]string{"idle", "validating", "session_open", "executing", "session_closed", "completed", "failed"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithPhaseHook registers a callback invoked on every phase transition.
func WithPhaseHook(fn func(id string, p Phase)) Option {
	return func(d *Dispatcher) { d.phaseHook = fn }
}

// Dispatcher executes requests. It holds no per-invocation state and is safe
// for concurrent use.
type Dispatcher struct {
	cfg       config.Source
	dialer    transfer.Dialer
	log       *logger.Logger
	phaseHook func(id string, p Phase)
}

func New(cfg config.Source, dialer transfer.Dialer, log *logger.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{cfg: cfg, dialer: dialer, log: log}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type invocation struct {
	id    string
	req   models.ManageRequest
	phase Phase
	log   *logrus.Entry
	hook  func(id string, p Phase)
}

func (inv *invocation) advance(p Phase) {
	inv.phase = p
	inv.log.WithField("phase", p.String()).Debug("phase transition")
	if inv.hook != nil {
		inv.hook(inv.id, p)
	}
}

// plan is a validated request with every path resolved.
type plan struct {
	op     Operation
	cfg    config.Config
	remote string
	local  string
	target string
}

// Execute runs one request and always returns an outcome.
func (d *Dispatcher) Execute(ctx context.Context, req models.ManageRequest) models.Outcome {
	req.Operation = strings.ToLower(strings.TrimSpace(req.Operation))
	if strings.TrimSpace(req.ServerPath) == "" {
		req.ServerPath = "/"
	}

	inv := &invocation{
		id:   uuid.NewString(),
		req:  req,
		hook: d.phaseHook,
	}
	inv.log = d.log.WithRequestID(inv.id).WithFields(logrus.Fields{
		"operation":   req.Operation,
		"server_path": req.ServerPath,
	})

	out, err := d.run(ctx, inv)
	if err != nil {
		inv.advance(PhaseFailed)
		derr := Classify(err)
		inv.log.WithError(err).WithField("kind", derr.Kind).Warn("operation failed")
		return failure(req, derr)
	}
	inv.advance(PhaseCompleted)
	inv.log.WithField("remote_path", out.RemotePath).Info("operation completed")
	return out
}

func (d *Dispatcher) run(ctx context.Context, inv *invocation) (models.Outcome, error) {
	inv.advance(PhaseValidating)

	// Everything that can be rejected locally is rejected before dialing.
	p, err := d.prepare(inv.req)
	if err != nil {
		return models.Outcome{}, err
	}

	// One session per invocation, closed on every path once it is open.
	sess, err := d.dialer.Dial(ctx, sessionOptions(p.cfg))
	if err != nil {
		return models.Outcome{}, err
	}
	inv.advance(PhaseSessionOpen)
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			inv.log.WithError(cerr).Warn("error closing session")
		}
		inv.advance(PhaseSessionClosed)
	}()

	inv.advance(PhaseExecuting)
	return apply(sess, p)
}

func sessionOptions(cfg config.Config) transfer.Options {
	return transfer.Options{
		Host:               cfg.Server.IP,
		Port:               cfg.Server.Port,
		User:               cfg.Server.Username,
		Password:           cfg.Server.Password,
		TLSMode:            transfer.ModeFromFlags(cfg.Security.FTPSImplicit, cfg.Security.FTPSExplicit),
		Timeout:            cfg.Timeout(),
		InsecureSkipVerify: cfg.Security.TLSSkipVerify,
		ClientCertPath:     cfg.Security.ClientCertPath,
		ClientCertPassword: cfg.Security.ClientCertPassword,
	}
}

// prepare validates the request and resolves all paths without touching the
// network.
func (d *Dispatcher) prepare(req models.ManageRequest) (plan, error) {
	op, err := ParseOperation(req.Operation)
	if err != nil {
		return plan{}, err
	}

	cfg := d.cfg.Current()
	if err := cfg.Validate(); err != nil {
		return plan{}, invalid("configuration: %v", err)
	}

	remote, err := pathresolver.Resolve(cfg.RootDir, req.ServerPath)
	if err != nil {
		return plan{}, invalid("server_path %q: %v", req.ServerPath, err)
	}

	p := plan{op: op, cfg: cfg, remote: remote, target: remote}

	switch op {
	case OpUpload:
		if req.LocalPath == "" {
			return plan{}, invalid("local_path is required for upload")
		}
		info, err := os.Stat(req.LocalPath)
		if err != nil {
			return plan{}, err
		}
		if info.IsDir() {
			return plan{}, invalid("local_path %s is a directory", req.LocalPath)
		}
		p.local = req.LocalPath
		// Never STOR onto the root or another directory spelled without a slash.
		if pathresolver.IsDirShaped(req.ServerPath) || pathresolver.SameAsRoot(cfg.RootDir, remote) {
			p.target = path.Join(remote, filepath.Base(req.LocalPath))
		}

	case OpDownload:
		if pathresolver.IsRootShaped(req.ServerPath) {
			return plan{}, invalid("server_path is required for download")
		}
		p.local = req.LocalPath
		if pathresolver.IsLocalDirShaped(p.local) {
			dir := p.local
			if dir == "" {
				dir = "."
			}
			p.local = filepath.Join(dir, path.Base(remote))
		}

	case OpDelete:
		if pathresolver.IsRootShaped(req.ServerPath) {
			return plan{}, invalid("server_path is required for delete")
		}
		if pathresolver.SameAsRoot(cfg.RootDir, remote) {
			return plan{}, invalid("refusing to delete the root directory")
		}

	case OpRename:
		name := req.NewName
		if name == "" {
			return plan{}, invalid("new_name is required for rename")
		}
		if strings.Contains(name, "/") || name == "." || name == ".." {
			return plan{}, invalid("new_name %q must be a single path segment", name)
		}
		if pathresolver.IsRootShaped(req.ServerPath) || pathresolver.SameAsRoot(cfg.RootDir, remote) {
			return plan{}, invalid("cannot rename the root directory")
		}
		p.target = path.Join(path.Dir(remote), name)

	case OpMkdir:
		if pathresolver.IsRootShaped(req.ServerPath) {
			return plan{}, invalid("server_path is required for mkdir")
		}

	case OpList:
	}

	return p, nil
}

func apply(sess transfer.Session, p plan) (models.Outcome, error) {
	out := models.Outcome{OK: true, Operation: p.op.String(), RemotePath: p.target}
	root := path.Clean(p.cfg.RootDir)

	switch p.op {
	case OpUpload:
		// STOR does not create directories, so build the chain first.
		if err := makeParents(sess, root, path.Dir(p.target)); err != nil {
			return models.Outcome{}, err
		}
		if err := sess.Upload(p.local, p.target); err != nil {
			return models.Outcome{}, err
		}
		out.LocalPath = p.local
		out.URL = pathresolver.DeriveURL(p.cfg.BaseAccessURL, root, p.target)
		out.Message = withURL("Uploaded to "+p.target, out.URL)

	case OpDownload:
		if err := sess.Download(p.remote, p.local); err != nil {
			return models.Outcome{}, err
		}
		out.LocalPath = p.local
		out.Message = "Downloaded to " + p.local

	case OpDelete:
		if err := sess.Remove(p.remote); err != nil {
			return models.Outcome{}, err
		}
		out.Message = "Deleted " + p.remote

	case OpRename:
		if err := sess.Rename(p.remote, p.target); err != nil {
			return models.Outcome{}, err
		}
		out.URL = pathresolver.DeriveURL(p.cfg.BaseAccessURL, root, p.target)
		out.Message = withURL("Renamed to "+p.target, out.URL)

	case OpMkdir:
		if err := makeParents(sess, root, path.Dir(p.remote)); err != nil {
			return models.Outcome{}, err
		}
		if err := sess.MakeDir(p.remote); err != nil {
			return models.Outcome{}, err
		}
		out.Message = "Created directory " + p.remote

	case OpList:
		entries, err := sess.List(p.remote)
		if err != nil {
			return models.Outcome{}, err
		}
		out.Items = make([]string, 0, len(entries))
		for _, e := range entries {
			out.Items = append(out.Items, e.Name)
		}
		if len(out.Items) == 0 {
			out.Message = p.remote + " is empty"
		} else {
			out.Message = strings.Join(out.Items, "\n")
		}

	default:
		return models.Outcome{}, invalid("unsupported operation %q", p.op.String())
	}

	return out, nil
}

func withURL(msg, url string) string {
	if url == "" {
		return msg
	}
	return msg + " Available at: " + url
}

// makeParents creates every missing directory between root and dir.
// Rejections are ignored since the directory usually exists already; the
// following command reports a genuine problem.
func makeParents(sess transfer.Session, root, dir string) error {
	var chain []string
	for p := dir; p != root && p != "/" && p != "." && strings.HasPrefix(p, root); p = path.Dir(p) {
		chain = append(chain, p)
	}

	for i := len(chain) - 1; i >= 0; i-- {
		if err := sess.MakeDir(chain[i]); err != nil {
			var serr *transfer.StatusError
			if errors.As(err, &serr) {
				continue
			}
			return err
		}
	}
	return nil
}

func failure(req models.ManageRequest, e *Error) models.Outcome {
	return models.Outcome{
		OK:            false,
		Operation:     req.Operation,
		ServerPath:    req.ServerPath,
		LocalPath:     req.LocalPath,
		Message:       e.Message(),
		Error:         string(e.Kind),
		Detail:        e.Detail,
		Path:          e.Path,
		ExpectedCodes: e.Expected,
		ReceivedCode:  e.Received,
		Info:          e.Info,
	}
}
