package dispatcher

import (
	"context"
	"fmt"
	"sync"

	"ftp_control/internal/transfer"
)

// fakeDialer hands out fakeSessions and records every dial.
type fakeDialer struct {
	mu       sync.Mutex
	dialErr  error
	failOn   map[string]error
	entries  []transfer.Entry
	sessions []*fakeSession
	options  []transfer.Options
}

func (d *fakeDialer) Dial(_ context.Context, opts transfer.Options) (transfer.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.options = append(d.options, opts)
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	s := &fakeSession{failOn: d.failOn, entries: d.entries}
	d.sessions = append(d.sessions, s)
	return s, nil
}

func (d *fakeDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.options)
}

func (d *fakeDialer) only() *fakeSession {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.sessions) != 1 {
		panic(fmt.Sprintf("expected exactly one session, got %d", len(d.sessions)))
	}
	return d.sessions[0]
}

type fakeSession struct {
	mu      sync.Mutex
	failOn  map[string]error
	entries []transfer.Entry
	calls   []string
	closes  int
}

func (s *fakeSession) record(method string, args ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	call := method
	for _, a := range args {
		call += " " + a
	}
	s.calls = append(s.calls, call)
	return s.failOn[method]
}

func (s *fakeSession) Upload(localPath, remotePath string) error {
	return s.record("Upload", localPath, remotePath)
}

func (s *fakeSession) Download(remotePath, localPath string) error {
	return s.record("Download", remotePath, localPath)
}

func (s *fakeSession) Remove(remotePath string) error {
	return s.record("Remove", remotePath)
}

func (s *fakeSession) Rename(from, to string) error {
	return s.record("Rename", from, to)
}

func (s *fakeSession) MakeDir(remotePath string) error {
	return s.record("MakeDir", remotePath)
}

func (s *fakeSession) List(remotePath string) ([]transfer.Entry, error) {
	if err := s.record("List", remotePath); err != nil {
		return nil, err
	}
	return s.entries, nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return s.failOn["Close"]
}
