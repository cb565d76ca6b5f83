// Package connect establishes SMTP connections: it opens the transport with
// the configured security, reads the greeting, sends EHLO, upgrades with
// STARTTLS when asked to, and authenticates.
//
// Connect is the single entry point. The primitives it is built from are
// exported so that every step can be used, and tested, on its own.
package connect

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/emersion/go-smtp-connect"
	"github.com/emersion/go-smtp-connect/command"
	"github.com/emersion/go-smtp-connect/log"
)

// ErrNoSecurity is wrapped in a StageSetup *EstablishmentError by Connect
// when the config has no Security.
var ErrNoSecurity = errors.New("connect: no security strategy configured")

// Connect opens a connection to an SMTP server using the given
// configuration and runs the configured auth command.
//
// On failure the error is an *EstablishmentError and no transport is left
// open. A config without Security fails with StageSetup before dialing. If
// the server rejects the auth command, QUIT is sent before the transport is
// shut down.
func Connect(ctx context.Context, config ConnectionConfig) (*smtp.Conn, error) {
	log.Logger.WithFields(logrus.Fields{
		"addr":     config.Addr,
		"security": securityName(config.Security),
	}).Debug("connecting")

	var c *smtp.Conn
	var err error
	switch sec := config.Security.(type) {
	case NoSecurity:
		c, err = ConnectInsecure(ctx, config.Addr, config.ClientID)
	case DirectTLS:
		c, err = ConnectDirectTLS(ctx, config.Addr, config.ClientID, sec.TLSConfig)
	case StartTLS:
		c, err = ConnectStartTLS(ctx, config.Addr, config.ClientID, sec.TLSConfig)
	default:
		return nil, &EstablishmentError{Stage: StageSetup, Err: ErrNoSecurity}
	}
	if err != nil {
		return nil, err
	}

	authCmd := config.AuthCmd
	if authCmd == nil {
		authCmd = command.Noop{}
	}
	c, _, err = c.Send(ctx, authCmd)
	if c, err = classify(ctx, c, err, StageAuth); err != nil {
		return nil, err
	}
	c.Logger().Debug("connection established")
	return c, nil
}

func securityName(sec Security) string {
	switch sec.(type) {
	case NoSecurity:
		return "none"
	case DirectTLS:
		return "tls"
	case StartTLS:
		return "starttls"
	default:
		return "unset"
	}
}

// greet reads the server greeting on a freshly opened transport.
func greet(ctx context.Context, io *smtp.Io) (*smtp.Conn, error) {
	resp, err := io.ParseResponse(ctx)
	if err != nil {
		return nil, &EstablishmentError{Stage: StageIo, Err: err}
	}
	c := smtp.NewConn(io)
	if logicErr := smtp.ToLogicError(resp); logicErr != nil {
		return classify(ctx, c, logicErr, StageSetup)
	}
	return c, nil
}

// ehlo sends EHLO and classifies a rejection as a setup failure.
func ehlo(ctx context.Context, c *smtp.Conn, clid smtp.ClientIdentity) (*smtp.Conn, error) {
	c, _, err := c.Send(ctx, command.NewEhlo(clid))
	return classify(ctx, c, err, StageSetup)
}

// ConnectInsecureNoEhlo opens a plaintext connection and reads the greeting.
func ConnectInsecureNoEhlo(ctx context.Context, addr string) (*smtp.Conn, error) {
	io, err := smtp.ConnectInsecure(ctx, addr)
	if err != nil {
		return nil, &EstablishmentError{Stage: StageIo, Err: err}
	}
	return greet(ctx, io)
}

// ConnectDirectTLSNoEhlo opens a TLS connection and reads the greeting.
func ConnectDirectTLSNoEhlo(ctx context.Context, addr string, config smtp.TLSConfig) (*smtp.Conn, error) {
	io, err := smtp.ConnectSecure(ctx, addr, config)
	if err != nil {
		return nil, &EstablishmentError{Stage: StageIo, Err: err}
	}
	return greet(ctx, io)
}

// ConnectInsecure opens a plaintext connection, reads the greeting and sends
// EHLO.
func ConnectInsecure(ctx context.Context, addr string, clid smtp.ClientIdentity) (*smtp.Conn, error) {
	c, err := ConnectInsecureNoEhlo(ctx, addr)
	if err != nil {
		return nil, err
	}
	return ehlo(ctx, c, clid)
}

// ConnectDirectTLS opens a TLS connection, reads the greeting and sends
// EHLO.
func ConnectDirectTLS(ctx context.Context, addr string, clid smtp.ClientIdentity, config smtp.TLSConfig) (*smtp.Conn, error) {
	c, err := ConnectDirectTLSNoEhlo(ctx, addr, config)
	if err != nil {
		return nil, err
	}
	return ehlo(ctx, c, clid)
}

// ConnectStartTLS opens a plaintext connection, reads the greeting, sends
// EHLO, upgrades the transport with STARTTLS and sends EHLO again. The
// returned connection only knows the capabilities advertised over TLS.
//
// STARTTLS is sent even if the server did not advertise it; a server that
// does not support it rejects the command, which is reported as a setup
// failure.
func ConnectStartTLS(ctx context.Context, addr string, clid smtp.ClientIdentity, config smtp.TLSConfig) (*smtp.Conn, error) {
	c, err := ConnectInsecure(ctx, addr, clid)
	if err != nil {
		return nil, err
	}

	if !c.HasCapability("STARTTLS") {
		c.Logger().Warn("server did not advertise STARTTLS, trying anyway")
	}
	c, _, err = c.Send(ctx, command.StartTLS{Setup: config.Setup, Domain: config.Domain})
	if c, err = classify(ctx, c, err, StageSetup); err != nil {
		return nil, err
	}

	return ehlo(ctx, c, clid)
}
