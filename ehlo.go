package smtp

import (
	"errors"
	"strconv"
	"strings"
)

// EhloData is the capability ledger built from a successful EHLO reply.
type EhloData struct {
	// Domain is the server's name from the first reply line.
	Domain string
	// Greeting is the free text following the domain, if any.
	Greeting string

	ext map[string][]string
}

// ParseEhloData builds the ledger from a positive EHLO reply. Every line after
// the first is an ehlo-keyword optionally followed by parameters.
func ParseEhloData(resp *Response) (*EhloData, error) {
	if resp == nil || len(resp.Lines) == 0 {
		return nil, errors.New("smtp: empty EHLO reply")
	}
	if !resp.IsPositive() {
		return nil, ToLogicError(resp)
	}

	d := &EhloData{ext: make(map[string][]string)}
	d.Domain, d.Greeting, _ = strings.Cut(resp.Lines[0], " ")
	for _, line := range resp.Lines[1:] {
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		d.ext[strings.ToUpper(args[0])] = args[1:]
	}
	return d, nil
}

// Has reports whether the server advertised the capability. The name is
// case-insensitive.
func (d *EhloData) Has(name string) bool {
	if d == nil {
		return false
	}
	_, ok := d.ext[strings.ToUpper(name)]
	return ok
}

// Params returns the parameters advertised with the capability.
func (d *EhloData) Params(name string) []string {
	if d == nil {
		return nil
	}
	return d.ext[strings.ToUpper(name)]
}

// Capabilities returns every advertised keyword, upper-cased.
func (d *EhloData) Capabilities() []string {
	if d == nil {
		return nil
	}
	caps := make([]string, 0, len(d.ext))
	for k := range d.ext {
		caps = append(caps, k)
	}
	return caps
}

// AuthMechanisms returns the SASL mechanisms advertised with AUTH.
func (d *EhloData) AuthMechanisms() []string {
	return d.Params("AUTH")
}

// SupportsAuth checks whether the server advertised the given SASL mechanism.
func (d *EhloData) SupportsAuth(mech string) bool {
	for _, m := range d.AuthMechanisms() {
		if strings.EqualFold(m, mech) {
			return true
		}
	}
	return false
}

// MaxMessageSize returns the maximum message size accepted by the server,
// as advertised with SIZE (RFC 1870). ok is false if SIZE was not
// advertised or carried no limit.
func (d *EhloData) MaxMessageSize() (size int, ok bool) {
	params := d.Params("SIZE")
	if len(params) == 0 {
		return 0, false
	}
	size, err := strconv.Atoi(params[0])
	if err != nil || size == 0 {
		return 0, false
	}
	return size, true
}
