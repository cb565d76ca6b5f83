package connect

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/emersion/go-smtp-connect"
)

type action int

const (
	actReply action = iota
	actStartTLS
	actClose
)

// handler answers one command line. An empty reply closes the connection
// without answering.
type handler func(line string, secure bool) (reply string, act action)

// smtpHandler answers EHLO with ehloPlain or ehloTLS depending on the
// transport, STARTTLS with startTLS (upgrading on a 220) and AUTH with auth.
func smtpHandler(ehloPlain, ehloTLS, startTLS, auth string) handler {
	return func(line string, secure bool) (string, action) {
		verb, _, _ := strings.Cut(line, " ")
		switch strings.ToUpper(verb) {
		case "EHLO":
			if secure {
				return ehloTLS, actReply
			}
			return ehloPlain, actReply
		case "STARTTLS":
			if strings.HasPrefix(startTLS, "220") {
				return startTLS, actStartTLS
			}
			return startTLS, actReply
		case "AUTH":
			return auth, actReply
		case "NOOP":
			return "250 2.0.0 OK", actReply
		case "QUIT":
			return "221 2.0.0 Bye", actReply
		default:
			return "500 5.5.2 Unrecognized command", actReply
		}
	}
}

type testServer struct {
	Addr string
	// TLS is the client configuration trusting the server certificate.
	TLS smtp.TLSConfig
	// Received yields the lines the server read, followed by "<EOF>" if the
	// client closed the connection, once the session is over.
	Received <-chan []string
}

func generateTestCert(t *testing.T) (tls.Certificate, *x509.CertPool) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{Organization: []string{"go-smtp-connect test"}},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.IPv4(127, 0, 0, 1)},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	leaf, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	pool := x509.NewCertPool()
	pool.AddCert(leaf)
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key, Leaf: leaf}, pool
}

// startServer serves a single SMTP session on a localhost listener. An empty
// greeting closes the connection right after accepting it.
func startServer(t *testing.T, implicitTLS bool, greeting string, handle handler) *testServer {
	t.Helper()

	cert, pool := generateTestCert(t)
	serverTLS := &tls.Config{Certificates: []tls.Certificate{cert}}

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	received := make(chan []string, 1)
	go func() {
		var lines []string
		defer func() { received <- lines }()

		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer func() { conn.Close() }()

		secure := false
		if implicitTLS {
			tlsConn := tls.Server(conn, serverTLS)
			if err := tlsConn.Handshake(); err != nil {
				lines = append(lines, "<TLS ERROR>")
				return
			}
			conn, secure = tlsConn, true
		}
		if greeting == "" {
			return
		}

		text := textproto.NewConn(conn)
		if err := text.PrintfLine("%s", greeting); err != nil {
			return
		}
		for {
			line, err := text.ReadLine()
			if err != nil {
				lines = append(lines, "<EOF>")
				return
			}
			lines = append(lines, line)

			reply, act := handle(line, secure)
			if reply == "" {
				return
			}
			if err := text.PrintfLine("%s", strings.ReplaceAll(reply, "\n", "\r\n")); err != nil {
				return
			}
			switch act {
			case actStartTLS:
				tlsConn := tls.Server(conn, serverTLS)
				if err := tlsConn.Handshake(); err != nil {
					lines = append(lines, "<TLS ERROR>")
					return
				}
				conn, secure = tlsConn, true
				text = textproto.NewConn(conn)
			case actClose:
				return
			}
		}
	}()

	return &testServer{
		Addr: l.Addr().String(),
		TLS: smtp.TLSConfig{
			Domain: "localhost",
			Setup:  smtp.DefaultTLSSetup{Config: &tls.Config{RootCAs: pool}},
		},
		Received: received,
	}
}
