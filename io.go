package smtp

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"net"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/emersion/go-smtp-connect/log"
)

// ErrPipelinedAfterStartTLS is returned when the server sent data after its
// reply to STARTTLS and before the TLS handshake. Such data would be
// injected into the encrypted session, so the connection is dropped.
var ErrPipelinedAfterStartTLS = errors.New("smtp: server sent data before TLS handshake")

// Io is the transport of a connection: a socket, a buffered reply reader,
// an outbound buffer and, once an EHLO exchange succeeded, the capability
// ledger.
//
// Whenever a method returns a *TransportError the socket has been closed and
// the Io must not be used anymore.
type Io struct {
	id         string
	generation int
	secure     bool

	conn net.Conn
	br   *bufio.Reader
	text *textproto.Reader
	out  bytes.Buffer

	ehlo *EhloData
	log  *logrus.Entry
}

func newIo(conn net.Conn, id string, generation int) *Io {
	br := bufio.NewReader(&replyLineReader{R: conn, Max: replyLineLimit})
	return &Io{
		id:         id,
		generation: generation,
		conn:       conn,
		br:         br,
		text:       textproto.NewReader(br),
		log:        log.WithConn(id).WithField("generation", generation),
	}
}

// NewIo wraps an established connection. The server greeting must not have
// been read yet.
func NewIo(conn net.Conn) *Io {
	io := newIo(conn, uuid.NewString(), 0)
	_, io.secure = conn.(*tls.Conn)
	return io
}

// ConnectInsecure opens a plaintext TCP connection to addr.
func ConnectInsecure(ctx context.Context, addr string) (*Io, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &TransportError{Op: "dial", Err: errors.Wrapf(err, "connecting to %s", addr)}
	}
	io := NewIo(conn)
	io.log.WithField("addr", addr).Debug("connected")
	return io, nil
}

// ConnectSecure opens a TCP connection to addr and sets TLS up before any
// SMTP exchange.
func ConnectSecure(ctx context.Context, addr string, config TLSConfig) (*Io, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &TransportError{Op: "dial", Err: errors.Wrapf(err, "connecting to %s", addr)}
	}
	tlsConn, err := config.setup().Setup(ctx, config.Domain, conn)
	if err != nil {
		conn.Close()
		return nil, &TransportError{Op: "tls handshake", Err: errors.Wrapf(err, "setting up TLS for %s", config.Domain)}
	}
	io := newIo(tlsConn, uuid.NewString(), 0)
	io.secure = true
	io.log.WithFields(logrus.Fields{"addr": addr, "domain": config.Domain}).Debug("connected with TLS")
	return io, nil
}

// ID identifies the connection in logs. It survives a STARTTLS upgrade.
func (io *Io) ID() string {
	return io.id
}

// Generation counts the transport replacements (STARTTLS upgrades) this
// connection went through.
func (io *Io) Generation() int {
	return io.generation
}

// IsTLS reports whether the transport is encrypted.
func (io *Io) IsTLS() bool {
	return io.secure
}

// TLSConnectionState returns the connection's TLS state. ok is false if the
// transport is not a *tls.Conn.
func (io *Io) TLSConnectionState() (state tls.ConnectionState, ok bool) {
	tc, ok := io.conn.(*tls.Conn)
	if !ok {
		return
	}
	return tc.ConnectionState(), true
}

// Logger returns the entry used to log on behalf of this connection.
func (io *Io) Logger() *logrus.Entry {
	return io.log
}

func (io *Io) applyDeadline(ctx context.Context) {
	if dl, ok := ctx.Deadline(); ok {
		io.conn.SetDeadline(dl)
	} else {
		io.conn.SetDeadline(time.Time{})
	}
}

// fail closes the socket and builds the error reported for op.
func (io *Io) fail(op string, err error) error {
	io.conn.Close()
	io.log.WithError(err).Debugf("%s failed, connection closed", op)
	return &TransportError{Op: op, Err: err}
}

// OutBuffer returns the outbound buffer, grown to have room for at least
// capacity more bytes. Its content is sent by Flush.
func (io *Io) OutBuffer(capacity int) *bytes.Buffer {
	io.out.Grow(capacity)
	return &io.out
}

// Flush writes the outbound buffer to the socket.
func (io *Io) Flush(ctx context.Context) error {
	if io.out.Len() == 0 {
		return nil
	}
	io.applyDeadline(ctx)
	_, err := io.out.WriteTo(io.conn)
	io.out.Reset()
	if err != nil {
		return io.fail("flush", errors.Wrap(err, "writing command"))
	}
	return nil
}

// ParseResponse reads the next, possibly multi-line, reply. Negative replies
// are not errors at this level; a malformed reply is.
func (io *Io) ParseResponse(ctx context.Context) (*Response, error) {
	io.applyDeadline(ctx)
	code, msg, err := io.text.ReadResponse(0)
	if err != nil {
		return nil, io.fail("read reply", errors.Wrap(err, "reading reply"))
	}
	resp := &Response{Code: code, Lines: strings.Split(msg, "\n")}
	io.log.Tracef("S: %d %s", resp.Code, msg)
	return resp, nil
}

// HasCapability reports whether the ledger exists and contains name.
func (io *Io) HasCapability(name string) bool {
	return io.ehlo.Has(name)
}

// EhloData returns the ledger, nil if no EHLO exchange succeeded yet on this
// transport.
func (io *Io) EhloData() *EhloData {
	return io.ehlo
}

// SetEhloData replaces the ledger. It is meant for EHLO implementations.
func (io *Io) SetEhloData(data *EhloData) {
	io.ehlo = data
}

// Split hands out the bare socket and the ledger. The Io must not be used
// afterwards.
func (io *Io) Split() (net.Conn, *EhloData) {
	return io.conn, io.ehlo
}

// Shutdown terminates the transport.
func (io *Io) Shutdown() error {
	err := io.conn.Close()
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return &TransportError{Op: "shutdown", Err: err}
	}
	io.log.Debug("connection shut down")
	return nil
}

// UpgradeTLS sets TLS up over the socket and returns the Io for the
// encrypted transport. The returned Io carries no ledger: the capabilities
// advertised in plaintext must not be trusted after the upgrade. The
// receiver must not be used afterwards.
func (io *Io) UpgradeTLS(ctx context.Context, config TLSConfig) (*Io, error) {
	if io.br.Buffered() > 0 || io.out.Len() > 0 {
		return nil, io.fail("starttls", ErrPipelinedAfterStartTLS)
	}
	tlsConn, err := config.setup().Setup(ctx, config.Domain, io.conn)
	if err != nil {
		return nil, io.fail("tls handshake", errors.Wrapf(err, "upgrading to TLS for %s", config.Domain))
	}
	upgraded := newIo(tlsConn, io.id, io.generation+1)
	upgraded.secure = true
	upgraded.log.WithField("domain", config.Domain).Debug("transport upgraded to TLS")
	return upgraded, nil
}
