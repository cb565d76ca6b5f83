package smtp

import (
	"errors"
	"io"
)

var ErrTooLongLine = errors.New("smtp: too long a line in input stream")

// Doubled maximum line length per RFC 5321 (Section 4.5.3.1.6)
const replyLineLimit = 2000

// replyLineReader caps the length of every line read from R.
//
// Once a line exceeds Max, every further Read fails with ErrTooLongLine: the
// reply stream is out of sync and the connection can only be closed.
type replyLineReader struct {
	R   io.Reader
	Max int

	cur int
	err error
}

func (r *replyLineReader) Read(b []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}

	n, err := r.R.Read(b)
	if r.Max <= 0 {
		return n, err
	}

	for _, chr := range b[:n] {
		if chr == '\n' {
			r.cur = 0
			continue
		}
		r.cur++
		if r.cur > r.Max {
			r.err = ErrTooLongLine
			return 0, r.err
		}
	}
	return n, err
}
