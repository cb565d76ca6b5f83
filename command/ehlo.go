package command

import (
	"bytes"
	"context"

	"github.com/emersion/go-smtp-connect"
)

// Ehlo sends EHLO and, on success, replaces the connection's capability
// ledger with the one parsed from the reply.
type Ehlo struct {
	// ID is the client identity. The zero value means smtp.Localhost().
	ID smtp.ClientIdentity
}

// NewEhlo returns an Ehlo for the given identity.
func NewEhlo(id smtp.ClientIdentity) Ehlo {
	return Ehlo{ID: id}
}

func (e Ehlo) identity() smtp.ClientIdentity {
	if e.ID.IsZero() {
		return smtp.Localhost()
	}
	return e.ID
}

func (e Ehlo) WriteCmd(buf *bytes.Buffer) {
	buf.WriteString("EHLO ")
	buf.WriteString(e.identity().String())
}

func (e Ehlo) Exec(ctx context.Context, c *smtp.Conn) (*smtp.Conn, *smtp.Response, error) {
	if err := smtp.ValidateLine(e.identity().String()); err != nil {
		return c, nil, err
	}

	c, resp, err := c.SendSimpleCmd(ctx, e)
	if err != nil {
		return c, resp, err
	}
	data, err := smtp.ParseEhloData(resp)
	if err != nil {
		return c, resp, err
	}

	io := c.IntoIo()
	io.SetEhloData(data)
	io.Logger().WithField("capabilities", data.Capabilities()).Debug("EHLO accepted")
	return smtp.NewConn(io), resp, nil
}
