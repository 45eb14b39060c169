/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ledger

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperledger-labs/redeemverify/token/services/verifier"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Paths derives the ledger files of input by swapping its extension. The leading dot of a hidden
// file does not start an extension.
func Paths(input, successExt, failureExt string) (success string, failure string) {
	stem := input
	if name := filepath.Base(input); strings.LastIndexByte(name, '.') > 0 {
		stem = strings.TrimSuffix(input, filepath.Ext(name))
	}
	return stem + "." + strings.TrimPrefix(successExt, "."), stem + "." + strings.TrimPrefix(failureExt, ".")
}

type fileLedger struct {
	f *os.File
	w *bufio.Writer
}

func (l *fileLedger) writeLine(fields ...string) error {
	if _, err := l.w.WriteString(strings.Join(fields, ",") + "\n"); err != nil {
		return err
	}
	return l.w.Flush()
}

func (l *fileLedger) close() error {
	return multierr.Combine(l.w.Flush(), l.f.Close())
}

// FileSink writes one line per outcome: id,payment_id,timestamp and, optionally for rejections,
// the reason.
// Every line is flushed as soon as it is written.
type FileSink struct {
	success       *fileLedger
	failure       *fileLedger
	includeReason bool
}

// NewFileSink truncates or creates both files.
func NewFileSink(successPath, failurePath string, includeReason bool) (*FileSink, error) {
	success, err := createLedger(successPath)
	if err != nil {
		return nil, err
	}
	failure, err := createLedger(failurePath)
	if err != nil {
		_ = success.close()
		return nil, err
	}
	logger.Debugf("writing ledgers [%s] and [%s]", successPath, failurePath)
	return &FileSink{success: success, failure: failure, includeReason: includeReason}, nil
}

func createLedger(path string) (*fileLedger, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed creating ledger [%s]", path)
	}
	return &fileLedger{f: f, w: bufio.NewWriter(f)}, nil
}

func (s *FileSink) Append(_ context.Context, o verifier.Outcome) error {
	l := s.failure
	if o.Verified() {
		l = s.success
	}
	fields := []string{o.ID, o.PaymentID, o.Timestamp}
	if s.includeReason && !o.Verified() {
		fields = append(fields, o.Reason.String())
	}
	return errors.Wrapf(l.writeLine(fields...), "failed writing outcome of [%s] to [%s]", o.ID, l.f.Name())
}

func (s *FileSink) Close() error {
	return multierr.Combine(s.success.close(), s.failure.close())
}
