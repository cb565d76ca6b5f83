package smtp

import (
	"bytes"
	"context"
)

// Command is a protocol command. Exec takes ownership of c and returns the
// connection to be used afterwards:
//
//   - on success: the connection, the reply and a nil error;
//   - if the server rejected the command, or the command failed in a way that
//     leaves the transport usable: the connection, the reply (may be nil) and
//     the error, usually a *LogicError;
//   - on transport failure: a nil connection and an error wrapping a
//     *TransportError. The socket has been closed.
//
// A command value is executed at most once.
type Command interface {
	Exec(ctx context.Context, c *Conn) (*Conn, *Response, error)
}

// SimpleCommand is a one-line command. WriteCmd writes the line without the
// trailing CRLF; Conn.SendSimpleCmd adds it.
type SimpleCommand interface {
	WriteCmd(buf *bytes.Buffer)
}

// CommandFunc is an adapter to use an ordinary function as a Command.
type CommandFunc func(ctx context.Context, c *Conn) (*Conn, *Response, error)

func (f CommandFunc) Exec(ctx context.Context, c *Conn) (*Conn, *Response, error) {
	return f(ctx, c)
}

// Line is a literal one-line command, e.g. Line("NOOP").
type Line string

func (l Line) WriteCmd(buf *bytes.Buffer) {
	buf.WriteString(string(l))
}

func (l Line) Exec(ctx context.Context, c *Conn) (*Conn, *Response, error) {
	return c.SendSimpleCmd(ctx, l)
}

// SecretLine is a Line that is never written to the logs, e.g. an AUTH
// response.
type SecretLine string

func (l SecretLine) WriteCmd(buf *bytes.Buffer) {
	buf.WriteString(string(l))
}

func (l SecretLine) String() string {
	return "<redacted>"
}

// BoxedCommand holds a single command behind the Command interface so that
// commands of different types can be queued together. It can be executed
// once; executing it again is a programming error and panics.
type BoxedCommand struct {
	cmd Command
}

// Box wraps cmd in a single-use BoxedCommand.
func Box(cmd Command) *BoxedCommand {
	if cmd == nil {
		panic("smtp: Box called with a nil command")
	}
	return &BoxedCommand{cmd: cmd}
}

// Consumed reports whether the boxed command has already been executed.
func (b *BoxedCommand) Consumed() bool {
	return b.cmd == nil
}

func (b *BoxedCommand) Exec(ctx context.Context, c *Conn) (*Conn, *Response, error) {
	cmd := b.cmd
	if cmd == nil {
		panic("smtp: BoxedCommand executed a second time")
	}
	b.cmd = nil
	return cmd.Exec(ctx, c)
}
