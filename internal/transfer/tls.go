package transfer

import (
	"crypto"
	"crypto/tls"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/pkcs12"
)

// DefaultSessionCacheSize bounds the shared TLS session cache.
const DefaultSessionCacheSize = 64

// NewSessionCache returns the client session cache shared by all sessions.
// FTPS servers commonly require the data channel to resume the control
// channel's TLS session.
func NewSessionCache() tls.ClientSessionCache {
	return tls.NewLRUClientSessionCache(DefaultSessionCacheSize)
}

// tlsConfig builds the TLS configuration for an FTPS session.
func tlsConfig(opts Options, cache tls.ClientSessionCache) (*tls.Config, error) {
	cfg := &tls.Config{
		InsecureSkipVerify: opts.InsecureSkipVerify,
		MinVersion:         tls.VersionTLS12,
		MaxVersion:         tls.VersionTLS13,
		ServerName:         opts.Host,

		SessionTicketsDisabled: false,
		ClientSessionCache:     cache,
		Renegotiation:          tls.RenegotiateOnceAsClient,
	}

	if opts.ClientCertPath != "" {
		cert, err := loadTLSCertificate(opts.ClientCertPath, opts.ClientCertPassword)
		if err != nil {
			return nil, fmt.Errorf("loading TLS certificate: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	return cfg, nil
}

// loadTLSCertificate decodes a PKCS#12 (PFX) client certificate.
func loadTLSCertificate(certPath, pfxPassword string) (tls.Certificate, error) {
	if pfxPassword == "" {
		return tls.Certificate{}, errors.New("PFX password is required")
	}

	pfxData, err := os.ReadFile(certPath)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("reading PFX file %s: %w", certPath, err)
	}

	privateKey, cert, err := pkcs12.Decode(pfxData, pfxPassword)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("decoding PFX file %s: %w", certPath, err)
	}

	signer, ok := privateKey.(crypto.Signer)
	if !ok {
		return tls.Certificate{}, fmt.Errorf("private key in %s is %T, not a signing key", certPath, privateKey)
	}

	return tls.Certificate{
		Certificate: [][]byte{cert.Raw},
		PrivateKey:  signer,
		Leaf:        cert,
	}, nil
}
