/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Prefix shortens long identifiers such as base64 public keys for log lines.
func Prefix(id string) fmt.Stringer {
	return prefix(id)
}

type prefix string

func (w prefix) String() string {
	s := string(w)
	if len(s) <= 20 {
		return strings.ToValidUTF8(s, "X")
	}
	h := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%s~%s", strings.ToValidUTF8(s[:20], "X"), hex.EncodeToString(h[:4]))
}

func Printable(id string) fmt.Stringer {
	return printable(id)
}

type printable string

func (w printable) String() string {
	s := string(w)
	return strings.ToValidUTF8(s, "X")
}

// Keys prints the sorted keys of m.
func Keys[K comparable, V any](m map[K]V) fmt.Stringer {
	return keys[K, V](m)
}

type keys[K comparable, V any] map[K]V

func (k keys[K, V]) String() string {
	out := make([]string, 0, len(k))
	for key := range k {
		out = append(out, fmt.Sprint(key))
	}
	sort.Strings(out)
	return "[" + strings.Join(out, ", ") + "]"
}
