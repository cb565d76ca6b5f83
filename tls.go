package smtp

import (
	"context"
	"crypto/tls"
	"net"
)

// TLSSetup performs the TLS handshake over an established connection. It is
// used both for implicit TLS and for STARTTLS.
type TLSSetup interface {
	// Setup wraps conn and completes the handshake. domain is the name the
	// server certificate must be valid for.
	Setup(ctx context.Context, domain string, conn net.Conn) (net.Conn, error)
}

// TLSSetupFunc is an adapter to use an ordinary function as a TLSSetup.
type TLSSetupFunc func(ctx context.Context, domain string, conn net.Conn) (net.Conn, error)

func (f TLSSetupFunc) Setup(ctx context.Context, domain string, conn net.Conn) (net.Conn, error) {
	return f(ctx, domain, conn)
}

// DefaultTLSSetup is a TLSSetup based on crypto/tls.
type DefaultTLSSetup struct {
	// Config is used as a template; it is cloned and never modified. May be
	// nil.
	Config *tls.Config
}

func (s DefaultTLSSetup) Setup(ctx context.Context, domain string, conn net.Conn) (net.Conn, error) {
	var config *tls.Config
	if s.Config != nil {
		// Make a copy to avoid polluting argument
		config = s.Config.Clone()
	} else {
		config = &tls.Config{}
	}
	if config.ServerName == "" {
		config.ServerName = domain
	}
	if config.MinVersion == 0 {
		config.MinVersion = tls.VersionTLS12
	}

	tlsConn := tls.Client(conn, config)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		return nil, err
	}
	return tlsConn, nil
}

// TLSConfig pairs the domain the server must prove it owns with the strategy
// used to set TLS up.
type TLSConfig struct {
	Domain string
	Setup  TLSSetup
}

// NewTLSConfig returns a TLSConfig using DefaultTLSSetup.
func NewTLSConfig(domain string) TLSConfig {
	return TLSConfig{Domain: domain, Setup: DefaultTLSSetup{}}
}

func (c TLSConfig) setup() TLSSetup {
	if c.Setup == nil {
		return DefaultTLSSetup{}
	}
	return c.Setup
}
