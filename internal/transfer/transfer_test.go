package transfer

import (
	"context"
	"crypto/tls"
	"errors"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ftp_control/internal/logger"
)

func TestModeFromFlags(t *testing.T) {
	assert.Equal(t, TLSPlain, ModeFromFlags(false, false))
	assert.Equal(t, TLSImplicit, ModeFromFlags(true, false))
	assert.Equal(t, TLSExplicit, ModeFromFlags(false, true))
	assert.Equal(t, TLSImplicit, ModeFromFlags(true, true))
	assert.Equal(t, "explicit", TLSExplicit.String())
}

func TestOptionsAddr(t *testing.T) {
	assert.Equal(t, "ftp.example.com:21", Options{Host: "ftp.example.com", Port: 21}.Addr())
}

func TestStatusError(t *testing.T) {
	t.Run("textproto reply becomes status error", func(t *testing.T) {
		err := statusError("DELE", "/srv/a.txt", &textproto.Error{Code: 550, Msg: " No such file "})

		var serr *StatusError
		require.True(t, errors.As(err, &serr))
		assert.Equal(t, []int{250}, serr.Expected)
		assert.Equal(t, 550, serr.Received)
		assert.Equal(t, "No such file", serr.Info)
		assert.Equal(t, "/srv/a.txt", serr.Path)
		assert.Contains(t, serr.Error(), "received 550")
	})

	t.Run("other errors are wrapped", func(t *testing.T) {
		base := errors.New("broken pipe")
		err := statusError("STOR", "/x", base)

		var serr *StatusError
		assert.False(t, errors.As(err, &serr))
		assert.ErrorIs(t, err, base)
		assert.True(t, strings.HasPrefix(err.Error(), "stor /x"))
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, statusError("MKD", "/x", nil))
	})
}

func TestDialOptions(t *testing.T) {
	d := NewFTPDialer(nil, logger.NewTestLogger())
	ctx := context.Background()

	plain, err := d.dialOptions(ctx, Options{Host: "h", Port: 21})
	require.NoError(t, err)
	assert.Len(t, plain, 1)

	timed, err := d.dialOptions(ctx, Options{Host: "h", Port: 21, Timeout: 5 * time.Second})
	require.NoError(t, err)
	assert.Len(t, timed, 2)

	implicit, err := d.dialOptions(ctx, Options{Host: "h", Port: 990, TLSMode: TLSImplicit})
	require.NoError(t, err)
	assert.Len(t, implicit, 2)

	_, err = d.dialOptions(ctx, Options{Host: "h", TLSMode: TLSExplicit, ClientCertPath: "/nonexistent.pfx", ClientCertPassword: "x"})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestTLSConfig(t *testing.T) {
	cache := NewSessionCache()
	cfg, err := tlsConfig(Options{Host: "ftp.example.com", InsecureSkipVerify: true}, cache)
	require.NoError(t, err)

	assert.Equal(t, "ftp.example.com", cfg.ServerName)
	assert.True(t, cfg.InsecureSkipVerify)
	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
	assert.Same(t, cache, cfg.ClientSessionCache)
	assert.Empty(t, cfg.Certificates)
}

func TestLoadTLSCertificate(t *testing.T) {
	_, err := loadTLSCertificate("whatever.pfx", "")
	assert.EqualError(t, err, "PFX password is required")

	bogus := filepath.Join(t.TempDir(), "bogus.pfx")
	require.NoError(t, os.WriteFile(bogus, []byte("not a pfx"), 0o600))
	_, err = loadTLSCertificate(bogus, "secret")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding PFX file")
}

func TestWriteLocal(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "nested", "dir", "out.txt")

	n, err := writeLocal(dst, strings.NewReader("hello"))
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	_, err = writeLocal(dst, strings.NewReader("bye"))
	require.NoError(t, err)
	data, err = os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "bye", string(data))
}

type failingReader struct{ sent bool }

func (r *failingReader) Read(p []byte) (int, error) {
	if r.sent {
		return 0, errors.New("connection reset")
	}
	r.sent = true
	return copy(p, "partial"), nil
}

func TestWriteLocal_FailedCopyKeepsExistingFile(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "out.txt")
	require.NoError(t, os.WriteFile(dst, []byte("previous"), 0o644))

	_, err := writeLocal(dst, &failingReader{})
	require.Error(t, err)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary file must be removed")
	assert.Equal(t, "out.txt", entries[0].Name())
}
