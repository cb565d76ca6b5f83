package command

import (
	"bytes"
	"context"

	"github.com/emersion/go-smtp-connect"
)

// Quit sends QUIT. It does not close the transport; use smtp.Conn.Quit for
// that.
type Quit struct{}

func (Quit) WriteCmd(buf *bytes.Buffer) {
	buf.WriteString("QUIT")
}

func (q Quit) Exec(ctx context.Context, c *smtp.Conn) (*smtp.Conn, *smtp.Response, error) {
	return c.SendSimpleCmd(ctx, q)
}

// Noop sends NOOP. It is the auth command to use when no authentication is
// wanted.
type Noop struct{}

func (Noop) WriteCmd(buf *bytes.Buffer) {
	buf.WriteString("NOOP")
}

func (n Noop) Exec(ctx context.Context, c *smtp.Conn) (*smtp.Conn, *smtp.Response, error) {
	return c.SendSimpleCmd(ctx, n)
}
