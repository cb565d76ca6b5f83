package smtp

import (
	"fmt"
	"strconv"
	"strings"
)

// Response is a parsed SMTP reply.
type Response struct {
	Code int
	// Lines holds the text of every reply line, without the code and the
	// continuation marker.
	Lines []string
}

// IsPositive reports whether the reply is a 2xx or 3xx reply.
func (r *Response) IsPositive() bool {
	return r.Code >= 200 && r.Code < 400
}

// Message returns the reply text, lines separated by "\n".
func (r *Response) Message() string {
	return strings.Join(r.Lines, "\n")
}

// EnhancedCode is an RFC 2034 enhanced status code. The zero value means no
// enhanced code was present.
type EnhancedCode [3]int

func (c EnhancedCode) String() string {
	return fmt.Sprintf("%d.%d.%d", c[0], c[1], c[2])
}

// LogicError is a negative reply from the server. The connection that
// produced it is still usable.
type LogicError struct {
	Code         int
	EnhancedCode EnhancedCode
	Message      string
}

func (err *LogicError) Error() string {
	s := "SMTP error " + strconv.Itoa(err.Code)
	if err.Message != "" {
		s += ": " + err.Message
	}
	return s
}

// Temporary reports whether the error is a transient (4xx) failure.
func (err *LogicError) Temporary() bool {
	return err.Code/100 == 4
}

func parseEnhancedCode(s string) (EnhancedCode, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return EnhancedCode{}, fmt.Errorf("wrong amount of enhanced code parts")
	}

	code := EnhancedCode{}
	for i, part := range parts {
		num, err := strconv.Atoi(part)
		if err != nil {
			return code, err
		}
		code[i] = num
	}
	return code, nil
}

// ToLogicError converts a reply into a LogicError, parsing the enhanced
// status code if it is present. It returns nil for positive replies.
func ToLogicError(resp *Response) *LogicError {
	if resp == nil || resp.IsPositive() {
		return nil
	}
	return toLogicError(resp)
}

// ExpectCode returns nil if resp carries the given code and a *LogicError
// otherwise, even for a positive reply.
func ExpectCode(resp *Response, code int) error {
	if resp.Code == code {
		return nil
	}
	return toLogicError(resp)
}

func toLogicError(resp *Response) *LogicError {
	msg := resp.Message()
	logicErr := &LogicError{
		Code:    resp.Code,
		Message: msg,
	}

	parts := strings.SplitN(msg, " ", 2)
	if len(parts) != 2 {
		return logicErr
	}

	enchCode, err := parseEnhancedCode(parts[0])
	if err != nil {
		return logicErr
	}

	msg = parts[1]

	// Per RFC 2034, enhanced code should be prepended to each line.
	msg = strings.ReplaceAll(msg, "\n"+parts[0]+" ", "\n")

	logicErr.EnhancedCode = enchCode
	logicErr.Message = msg
	return logicErr
}

// TransportError is an I/O failure of the transport. The connection it
// happened on has been closed.
type TransportError struct {
	// Op names the step that failed, e.g. "dial", "flush" or "read reply".
	Op  string
	Err error
}

func (err *TransportError) Error() string {
	return "smtp: " + err.Op + ": " + err.Err.Error()
}

func (err *TransportError) Unwrap() error {
	return err.Err
}
