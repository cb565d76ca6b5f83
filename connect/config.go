package connect

import (
	"github.com/emersion/go-smtp-connect"
)

// Security selects how the transport is secured. It is one of NoSecurity,
// DirectTLS or StartTLS.
type Security interface {
	isSecurity()
}

// NoSecurity uses a plain, unencrypted connection.
//
// Deprecated: credentials and mail contents travel in clear text. It is kept
// for compatibility with servers that cannot do TLS and for testing; it must
// be chosen deliberately.
type NoSecurity struct{}

// DirectTLS connects with TLS before any SMTP exchange (implicit TLS, usually
// port 465).
type DirectTLS struct {
	smtp.TLSConfig
}

// StartTLS connects in plaintext and upgrades with the STARTTLS command
// after the first EHLO (usually port 587).
type StartTLS struct {
	smtp.TLSConfig
}

func (NoSecurity) isSecurity() {}
func (DirectTLS) isSecurity()  {}
func (StartTLS) isSecurity()   {}

// ConnectionConfig is the input of Connect.
type ConnectionConfig struct {
	// Addr is the "host:port" address of the SMTP server.
	Addr string
	// AuthCmd is sent once the connection is set up. Use command.Noop{} (or
	// leave nil) if no authentication is wanted.
	AuthCmd smtp.Command
	// Security is the kind of TLS mechanism used when setting the
	// connection up.
	Security Security
	// ClientID is the identity sent with EHLO. For a connection to a message
	// submission agent smtp.Localhost() is enough.
	ClientID smtp.ClientIdentity
}

// WithDirectTLS returns a config using DirectTLS with the default TLS setup.
// domain is the name the server certificate must be valid for, e.g.
// "smtp.example.com".
func WithDirectTLS(addr, domain string, clid smtp.ClientIdentity, authCmd smtp.Command) ConnectionConfig {
	return ConnectionConfig{
		Addr:     addr,
		AuthCmd:  authCmd,
		Security: DirectTLS{smtp.NewTLSConfig(domain)},
		ClientID: clid,
	}
}

// WithStartTLS returns a config using StartTLS with the default TLS setup.
// domain is the name the server certificate must be valid for.
func WithStartTLS(addr, domain string, clid smtp.ClientIdentity, authCmd smtp.Command) ConnectionConfig {
	return ConnectionConfig{
		Addr:     addr,
		AuthCmd:  authCmd,
		Security: StartTLS{smtp.NewTLSConfig(domain)},
		ClientID: clid,
	}
}
