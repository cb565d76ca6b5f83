// Copyright 2010 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package smtp

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/sirupsen/logrus"
)

// simpleCmdCapacity is the outbound buffer room reserved for a simple command.
const simpleCmdCapacity = 1024

// A Conn is an SMTP connection and the single handle to its transport.
//
// Send, SendSimpleCmd, SendAll, IntoIo, Shutdown and Quit consume the Conn:
// afterwards every method of the consumed value panics. Those that keep the
// transport alive return a new Conn.
type Conn struct {
	io *Io
}

// NewConn takes ownership of io.
func NewConn(io *Io) *Conn {
	if io == nil {
		panic("smtp: NewConn called with a nil transport")
	}
	return &Conn{io: io}
}

func (c *Conn) live() *Io {
	if c == nil || c.io == nil {
		panic("smtp: connection used after it was consumed")
	}
	return c.io
}

// take consumes the Conn and returns its transport.
func (c *Conn) take() *Io {
	io := c.live()
	c.io = nil
	return io
}

// ID identifies the connection in logs.
func (c *Conn) ID() string {
	return c.live().ID()
}

// Logger returns the entry used to log on behalf of this connection.
func (c *Conn) Logger() *logrus.Entry {
	return c.live().Logger()
}

// IsTLS reports whether the transport is encrypted.
func (c *Conn) IsTLS() bool {
	return c.live().IsTLS()
}

// TLSConnectionState returns the client's TLS connection state.
// The return values are their zero values if the transport is not TLS.
func (c *Conn) TLSConnectionState() (state tls.ConnectionState, ok bool) {
	return c.live().TLSConnectionState()
}

// Send executes cmd. c is consumed; the returned Conn, if not nil, must be
// used for every later operation. See Command for the meaning of the results.
func (c *Conn) Send(ctx context.Context, cmd Command) (*Conn, *Response, error) {
	next := NewConn(c.take())
	return cmd.Exec(ctx, next)
}

// SendSimpleCmd writes cmd followed by CRLF, flushes and reads the reply.
// A negative reply is returned as a *LogicError together with the
// connection.
func (c *Conn) SendSimpleCmd(ctx context.Context, cmd SimpleCommand) (*Conn, *Response, error) {
	io := c.take()

	buf := io.OutBuffer(simpleCmdCapacity)
	start := buf.Len()
	cmd.WriteCmd(buf)
	if s, ok := cmd.(fmt.Stringer); ok {
		io.log.Tracef("C: %s", s)
	} else {
		io.log.Tracef("C: %s", buf.Bytes()[start:])
	}
	buf.WriteString("\r\n")

	if err := io.Flush(ctx); err != nil {
		return nil, nil, err
	}
	resp, err := io.ParseResponse(ctx)
	if err != nil {
		return nil, nil, err
	}

	next := NewConn(io)
	if logicErr := ToLogicError(resp); logicErr != nil {
		return next, resp, logicErr
	}
	return next, resp, nil
}

// SendAll executes cmds in order, each on the connection handed back by the
// previous one, and stops at the first failure. It returns the last reply.
func (c *Conn) SendAll(ctx context.Context, cmds ...Command) (*Conn, *Response, error) {
	var resp *Response
	var err error
	for _, cmd := range cmds {
		c, resp, err = c.Send(ctx, cmd)
		if err != nil {
			return c, resp, err
		}
	}
	return c, resp, nil
}

// HasCapability reports whether the server advertised name in the last EHLO
// reply on the current transport. It is false if no EHLO exchange succeeded
// yet; it never triggers one.
func (c *Conn) HasCapability(name string) bool {
	return c.live().HasCapability(name)
}

// EhloData returns the capability ledger, nil before any successful EHLO.
func (c *Conn) EhloData() *EhloData {
	return c.live().EhloData()
}

// IntoIo consumes the Conn and returns its transport.
func (c *Conn) IntoIo() *Io {
	return c.take()
}

// Shutdown consumes the Conn and terminates the transport.
func (c *Conn) Shutdown() error {
	return c.take().Shutdown()
}

// Quit sends the QUIT command and then shuts the transport down, whatever
// the outcome of QUIT. It consumes the Conn.
//
// A negative reply to QUIT is logged and ignored; a transport error is
// returned.
func (c *Conn) Quit(ctx context.Context) error {
	io := c.live()
	logger := io.log
	next, _, err := c.SendSimpleCmd(ctx, Line("QUIT"))
	if next == nil {
		// The transport failed and is already closed.
		return err
	}
	if err != nil {
		logger.WithError(err).Debug("QUIT rejected")
	}
	return next.Shutdown()
}
