/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package batch runs the verification of one redemption export end to end.
package batch

import (
	"context"
	"io"
	"os"
	"sync/atomic"

	"github.com/hashicorp/go-uuid"
	"github.com/hyperledger-labs/redeemverify/token/crypto/voprf"
	"github.com/hyperledger-labs/redeemverify/token/services/config"
	"github.com/hyperledger-labs/redeemverify/token/services/issuer"
	"github.com/hyperledger-labs/redeemverify/token/services/ledger"
	"github.com/hyperledger-labs/redeemverify/token/services/logging"
	"github.com/hyperledger-labs/redeemverify/token/services/metrics"
	"github.com/hyperledger-labs/redeemverify/token/services/redemption"
	"github.com/hyperledger-labs/redeemverify/token/services/utils/cache"
	"github.com/hyperledger-labs/redeemverify/token/services/verifier"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

var logger = logging.MustGetLogger("batch")

// Job verifies one export. It is not reusable.
type Job struct {
	RunID   string
	Metrics *metrics.Metrics

	cfg    *config.Config
	state  atomic.Int32
	logger logging.Logger
}

type Option func(*Job)

// WithLogger replaces the job logger.
func WithLogger(l logging.Logger) Option {
	return func(j *Job) { j.logger = l }
}

func NewJob(cfg *config.Config, opts ...Option) (*Job, error) {
	runID, err := uuid.GenerateUUID()
	if err != nil {
		return nil, errors.Wrap(err, "failed generating run id")
	}
	j := &Job{
		RunID:   runID,
		Metrics: metrics.New(),
		cfg:     cfg,
		logger:  logger.With("run_id", runID),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

func (j *Job) State() State {
	return State(j.state.Load())
}

func (j *Job) setState(s State) {
	j.logger.Debugf("job state [%s] -> [%s]", j.State(), s)
	j.state.Store(int32(s))
}

func (j *Job) abort(err error) error {
	j.setState(Aborted)
	j.logger.Errorf("job aborted: %v", err)
	return err
}

// Run verifies the export at input and writes the ledgers selected by the configuration.
// It returns once every record has an outcome in a ledger, or with the error that aborted the job.
func (j *Job) Run(ctx context.Context, input string) (*ledger.Summary, error) {
	if j.State() != Initializing {
		return nil, errors.Errorf("job [%s] already ran", j.RunID)
	}
	defer j.push()

	if err := j.cfg.Validate(); err != nil {
		return nil, j.abort(errors.WithMessage(err, "invalid configuration"))
	}
	table, err := issuer.NewTable(j.cfg.Keys)
	if err != nil {
		return nil, j.abort(err)
	}
	j.logger.Infof("loaded %d issuer keys", table.Len())
	keyCache, err := cache.New[voprf.VerificationKey](cache.Config{Enabled: j.cfg.Cache.Enabled, MaxCost: j.cfg.Cache.MaxCost})
	if err != nil {
		return nil, j.abort(errors.Wrap(err, "failed creating verification key cache"))
	}
	f, err := os.Open(input)
	if err != nil {
		return nil, j.abort(errors.Wrapf(err, "failed opening input [%s]", input))
	}
	defer f.Close()
	sink, err := j.openSink(input)
	if err != nil {
		return nil, j.abort(err)
	}

	summary, err := j.process(ctx, f, table, verifier.NewService(keyCache), sink)
	if closeErr := sink.Close(); closeErr != nil {
		closeErr = errors.Wrap(closeErr, "failed closing ledger")
		if err == nil {
			return summary, j.abort(closeErr)
		}
		err = multierr.Append(err, closeErr)
	}
	return summary, err
}

func (j *Job) openSink(input string) (ledger.Sink, error) {
	l := j.cfg.Ledger
	switch l.Driver {
	case config.LedgerFile:
		success, failure := ledger.Paths(input, l.SuccessExt, l.FailureExt)
		if err := notInput(input, success, failure); err != nil {
			return nil, err
		}
		return ledger.NewFileSink(success, failure, l.IncludeReason)
	case config.LedgerSQLite, config.LedgerPostgres:
		return ledger.OpenSQLSink(l.Driver, l.DataSource, l.Table, j.RunID)
	default:
		return nil, errors.Errorf("unknown ledger driver [%s]", l.Driver)
	}
}

// notInput fails if one of the ledger paths names the input file, which creating the ledger would
// truncate.
func notInput(input string, ledgers ...string) error {
	in, err := os.Stat(input)
	if err != nil {
		return errors.Wrapf(err, "failed to stat input [%s]", input)
	}
	for _, path := range ledgers {
		out, err := os.Stat(path)
		if err != nil {
			continue
		}
		if os.SameFile(in, out) {
			return errors.Errorf("ledger [%s] would overwrite the input, rename the input or change the ledger extensions", path)
		}
	}
	return nil
}

// item is either a record to verify or the correlation of a malformed line routed to the failure
// ledger.
type item struct {
	record    *redemption.Record
	malformed *redemption.Correlation
}

func (j *Job) decoder() *redemption.Decoder {
	in := j.cfg.Input
	return redemption.NewDecoder(redemption.Options{
		Delimiter:       in.Delimiter[0],
		NestedDelimiter: in.NestedDelimiter[0],
		Escape:          in.Escape[0],
	})
}

func (j *Job) process(ctx context.Context, r io.Reader, keys verifier.KeyLookup, tokens verifier.TokenVerifier, sink ledger.Sink) (*ledger.Summary, error) {
	j.setState(Dispatching)
	items, err := j.read(r)
	if err != nil {
		return nil, j.abort(err)
	}

	p := verifier.NewPool(keys, tokens, j.cfg.WorkerCount(), j.Metrics)
	collector := ledger.NewCollector(p.Outcomes(), sink, ledger.WithMetrics(j.Metrics), ledger.WithProgress(j.cfg.Progress.Interval))
	type result struct {
		summary *ledger.Summary
		err     error
	}
	done := make(chan result, 1)
	go func() {
		s, err := collector.Collect(ctx, len(items))
		done <- result{summary: s, err: err}
	}()

	j.logger.Infof("started %d jobs", len(items))
	for _, it := range items {
		if it.malformed != nil {
			p.Reject(*it.malformed, verifier.MalformedRecord)
			continue
		}
		p.Submit(it.record)
	}

	j.setState(Draining)
	poolErr := p.Close()
	res := <-done
	if res.err != nil {
		var shortfall *ledger.ShortfallError
		if errors.As(res.err, &shortfall) {
			shortfall.Cause = multierr.Append(shortfall.Cause, poolErr)
		}
		return res.summary, j.abort(res.err)
	}
	if poolErr != nil {
		return res.summary, j.abort(poolErr)
	}

	j.setState(Finalized)
	j.logSummary(res.summary)
	return res.summary, nil
}

// read decodes the whole input before any record is dispatched so that the number of expected
// outcomes is known up front.
func (j *Job) read(r io.Reader) ([]item, error) {
	reader := redemption.NewReader(r, j.decoder(), j.cfg.Input.Header)
	var items []item
	for {
		rec, err := reader.Next()
		if err == io.EOF {
			return items, nil
		}
		if err != nil {
			var fe *redemption.FormatError
			if !errors.As(err, &fe) || j.cfg.Input.Malformed != config.MalformedRoute {
				return nil, err
			}
			j.logger.Warnf("routing malformed record [%s] at line %d to the failure ledger: %v", logging.Printable(fe.Correlation.ID), fe.Line, fe.Err)
			c := fe.Correlation
			items = append(items, item{malformed: &c})
			continue
		}
		items = append(items, item{record: rec})
	}
}

func (j *Job) logSummary(s *ledger.Summary) {
	reasons := make(map[string]int, len(s.Reasons))
	for r, n := range s.Reasons {
		reasons[r.String()] = n
	}
	j.logger.Infow("run summary",
		"verified", s.Verified,
		"failed", s.Failed,
		"reasons", reasons,
		"verified_value", s.VerifiedValue.String(),
		"failed_value", s.FailedValue.String(),
	)
}

func (j *Job) push() {
	m := j.cfg.Metrics
	if len(m.Pushgateway) == 0 {
		return
	}
	if err := j.Metrics.Push(m.Pushgateway, m.Job, j.RunID); err != nil {
		j.logger.Warnf("%v", err)
	}
}
