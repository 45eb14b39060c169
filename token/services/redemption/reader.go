/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package redemption

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
)

const maxLineSize = 1 << 20

// Reader yields the records of an export one line at a time. Empty lines are skipped.
type Reader struct {
	scanner *bufio.Scanner
	dec     *Decoder
	header  bool
	line    int
}

// NewReader reads from r. If header is set, the first non empty line names the columns.
func NewReader(r io.Reader, dec *Decoder, header bool) *Reader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Reader{scanner: s, dec: dec, header: header}
}

// Line returns the number of the line last read, starting at 1.
func (r *Reader) Line() int {
	return r.line
}

// Next returns the next record or io.EOF. A *FormatError leaves the reader usable; any other
// error is fatal.
func (r *Reader) Next() (*Record, error) {
	for {
		text, ok, err := r.nextLine()
		if err != nil || !ok {
			return nil, err
		}
		if r.header {
			r.header = false
			cols, err := r.dec.ParseHeader(text)
			if err != nil {
				return nil, errors.WithMessagef(err, "invalid header at line %d", r.line)
			}
			r.dec = r.dec.WithColumns(cols)
			continue
		}
		rec, err := r.dec.Decode(text)
		if err != nil {
			var fe *FormatError
			if errors.As(err, &fe) {
				fe.Line = r.line
			}
			return nil, err
		}
		return rec, nil
	}
}

func (r *Reader) nextLine() (string, bool, error) {
	for r.scanner.Scan() {
		r.line++
		text := strings.TrimSuffix(r.scanner.Text(), "\r")
		if len(strings.TrimSpace(text)) == 0 {
			continue
		}
		return text, true, nil
	}
	if err := r.scanner.Err(); err != nil {
		return "", false, errors.Wrapf(err, "failed reading line %d", r.line+1)
	}
	return "", false, io.EOF
}
