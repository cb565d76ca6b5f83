// Package smtp implements the connection core of an SMTP client as defined in
// RFC 5321: the transport, the capability ledger built from EHLO replies and
// the contract through which commands consume and hand back a connection.
//
// It also implements the parts of the following extensions the core needs:
//
//   - STARTTLS (RFC 3207)
//   - ENHANCEDSTATUSCODES (RFC 2034)
//   - AUTH (RFC 4954), see the command package
//
// A Conn is owned by exactly one holder. Every operation that needs the
// connection consumes it and, if the transport is still alive, hands back a
// new Conn that must be used from then on. Using a consumed Conn panics.
//
// Connection establishment (greeting, EHLO, STARTTLS, authentication) lives in
// the connect package; the concrete commands live in the command package.
package smtp

import (
	"errors"
	"net"
	"strings"
)

// ClientIdentity is the name the client introduces itself with in EHLO. It is
// either a domain or an address literal.
//
// The same identity must be used before and after a STARTTLS upgrade.
type ClientIdentity struct {
	domain string
	ip     net.IP
}

// Domain returns a ClientIdentity for the given domain name.
func Domain(name string) ClientIdentity {
	return ClientIdentity{domain: name}
}

// AddressLiteral returns a ClientIdentity for the given IP address.
func AddressLiteral(ip net.IP) ClientIdentity {
	return ClientIdentity{ip: ip}
}

// Localhost returns the identity "[127.0.0.1]". It is enough when connecting
// to a message submission agent.
func Localhost() ClientIdentity {
	return AddressLiteral(net.IPv4(127, 0, 0, 1))
}

// IsZero reports whether the identity is unset.
func (id ClientIdentity) IsZero() bool {
	return id.domain == "" && id.ip == nil
}

// String formats the identity as used on the wire (RFC 5321 section 4.1.3).
func (id ClientIdentity) String() string {
	if id.ip == nil {
		return id.domain
	}
	if ip4 := id.ip.To4(); ip4 != nil {
		return "[" + ip4.String() + "]"
	}
	return "[IPv6:" + id.ip.String() + "]"
}

// validateLine checks to see if a line has CR or LF as per RFC 5321
func validateLine(line string) error {
	if strings.ContainsAny(line, "\n\r") {
		return errors.New("smtp: a line must not contain CR or LF")
	}
	return nil
}

// ValidateLine is validateLine for command implementations outside this
// package.
func ValidateLine(line string) error {
	return validateLine(line)
}
