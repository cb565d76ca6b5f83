package command

import (
	"bytes"
	"context"

	"github.com/emersion/go-smtp-connect"
)

// StartTLS sends STARTTLS and, once the server agreed, replaces the
// connection's transport with an encrypted one. The new transport has no
// capability ledger: EHLO must be sent again.
//
// StartTLS does not look at the ledger before sending the command; a server
// without STARTTLS support rejects it. Any reply other than 220 is returned
// as a *smtp.LogicError and the transport is left as it was.
type StartTLS struct {
	Setup  smtp.TLSSetup
	Domain string
}

func (StartTLS) WriteCmd(buf *bytes.Buffer) {
	buf.WriteString("STARTTLS")
}

func (s StartTLS) Exec(ctx context.Context, c *smtp.Conn) (*smtp.Conn, *smtp.Response, error) {
	c, resp, err := c.SendSimpleCmd(ctx, s)
	if err != nil {
		return c, resp, err
	}
	if err := smtp.ExpectCode(resp, 220); err != nil {
		return c, resp, err
	}

	io, err := c.IntoIo().UpgradeTLS(ctx, smtp.TLSConfig{Domain: s.Domain, Setup: s.Setup})
	if err != nil {
		return nil, nil, err
	}
	return smtp.NewConn(io), resp, nil
}
