/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package redemption

import (
	"strings"

	"github.com/pkg/errors"
)

const quote = '"'

var ErrUnterminatedQuote = errors.New("unterminated quoted field")

// Codec escapes Delimiter and Esc itself by prefixing them with Esc.
// It is the scheme used to smuggle the credential JSON through the flat export.
type Codec struct {
	Delimiter byte
	Esc       byte
}

func (c Codec) Escape(s string) string {
	if strings.IndexByte(s, c.Delimiter) < 0 && strings.IndexByte(s, c.Esc) < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		if s[i] == c.Delimiter || s[i] == c.Esc {
			b.WriteByte(c.Esc)
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// Unescape reverses Escape scanning left to right. An escape in front of any other byte, or a
// trailing escape, is kept as is.
func (c Codec) Unescape(s string) string {
	if strings.IndexByte(s, c.Esc) < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == c.Esc && i+1 < len(s) && (s[i+1] == c.Delimiter || s[i+1] == c.Esc) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// splitFields cuts line at every sep that is neither escaped nor inside a double quoted field.
// Escape sequences are left in place; quoted fields lose their quotes and "" becomes ".
func splitFields(line string, sep, esc byte) ([]string, error) {
	var (
		fields []string
		b      strings.Builder
		i      int
	)
	for {
		if i < len(line) && line[i] == quote {
			i++
			for {
				if i >= len(line) {
					return nil, ErrUnterminatedQuote
				}
				if line[i] == quote {
					if i+1 < len(line) && line[i+1] == quote {
						b.WriteByte(quote)
						i += 2
						continue
					}
					i++
					break
				}
				b.WriteByte(line[i])
				i++
			}
			if i < len(line) && line[i] != sep {
				return nil, errors.Errorf("unexpected %q after quoted field at offset %d", line[i], i)
			}
		} else {
			for i < len(line) && line[i] != sep {
				if line[i] == esc && i+1 < len(line) {
					b.WriteByte(line[i])
					i++
				}
				b.WriteByte(line[i])
				i++
			}
		}
		fields = append(fields, b.String())
		b.Reset()
		if i >= len(line) {
			return fields, nil
		}
		i++
	}
}

// joinFields is the inverse of splitFields for fields that need no quoting.
func joinFields(fields []string, sep byte) string {
	return strings.Join(fields, string(sep))
}
