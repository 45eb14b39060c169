/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifier

import (
	"sync"
	"time"

	"github.com/hyperledger-labs/redeemverify/token/services/logging"
	"github.com/hyperledger-labs/redeemverify/token/services/metrics"
	"github.com/hyperledger-labs/redeemverify/token/services/redemption"
	"github.com/pkg/errors"
	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
)

var logger = logging.MustGetLogger("verifier")

// Pool runs verifications on a bounded set of goroutines and fans the outcomes into one channel.
// Submit and Reject must be called from a single goroutine; Outcomes must be drained concurrently.
type Pool struct {
	keys     KeyLookup
	verifier TokenVerifier
	metrics  *metrics.Metrics

	workers  *pool.Pool
	outcomes chan Outcome

	mu       sync.Mutex
	failures []error
	closed   bool
}

// NewPool starts a pool of the given size. m may be nil.
func NewPool(keys KeyLookup, v TokenVerifier, workers int, m *metrics.Metrics) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		keys:     keys,
		verifier: v,
		metrics:  m,
		workers:  pool.New().WithMaxGoroutines(workers),
		outcomes: make(chan Outcome, workers),
	}
}

// Outcomes delivers exactly one outcome per submitted record, in no particular order.
// It is closed by Close.
func (p *Pool) Outcomes() <-chan Outcome {
	return p.outcomes
}

// Submit hands rec to a worker, blocking while every worker is busy.
func (p *Pool) Submit(rec *redemption.Record) {
	p.metrics.JobStarted()
	p.workers.Go(func() {
		start := time.Now()
		o, err := Check(p.keys, p.verifier, rec)
		p.metrics.ObserveVerify(time.Since(start))
		if err != nil {
			p.fail(errors.WithMessagef(err, "failed verifying record [%s]", rec.ID))
			return
		}
		p.outcomes <- o
	})
}

// Reject emits a rejection for a record that never reached verification.
func (p *Pool) Reject(c redemption.Correlation, reason Reason) {
	p.metrics.JobStarted()
	p.workers.Go(func() {
		p.outcomes <- Outcome{Correlation: c, Reason: reason}
	})
}

func (p *Pool) fail(err error) {
	logger.Errorf("%v", err)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures = append(p.failures, err)
}

// Close waits for the workers and closes the outcome channel. It reports workers that failed or
// panicked; their records produced no outcome.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return errors.New("pool already closed")
	}
	p.closed = true
	p.mu.Unlock()

	recovered := panics.Try(p.workers.Wait)
	close(p.outcomes)

	p.mu.Lock()
	defer p.mu.Unlock()
	if recovered != nil {
		p.failures = append(p.failures, errors.WithMessage(recovered.AsError(), "verification worker panicked"))
	}
	if len(p.failures) == 0 {
		return nil
	}
	return errors.Wrapf(p.failures[0], "%d verification workers failed, first", len(p.failures))
}
