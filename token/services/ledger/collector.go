/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperledger-labs/redeemverify/token/services/metrics"
	"github.com/hyperledger-labs/redeemverify/token/services/verifier"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ShortfallError is returned when the outcome channel closes before every expected outcome arrived.
type ShortfallError struct {
	Expected  int
	Collected int
	// Cause is what the producers reported, if anything.
	Cause error
}

func (e *ShortfallError) Error() string {
	msg := fmt.Sprintf("expected %d job results, collected %d", e.Expected, e.Collected)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ShortfallError) Unwrap() error { return e.Cause }

// Summary counts what a collection wrote.
type Summary struct {
	Verified      int
	Failed        int
	Reasons       map[verifier.Reason]int
	VerifiedValue decimal.Decimal
	FailedValue   decimal.Decimal
}

func (s *Summary) add(o verifier.Outcome) {
	if o.Verified() {
		s.Verified++
		s.VerifiedValue = s.VerifiedValue.Add(o.Value)
		return
	}
	s.Failed++
	s.FailedValue = s.FailedValue.Add(o.Value)
	s.Reasons[o.Reason]++
}

func (s *Summary) Total() int {
	return s.Verified + s.Failed
}

type Collector struct {
	outcomes <-chan verifier.Outcome
	sink     Sink
	metrics  *metrics.Metrics
	interval time.Duration
}

type CollectorOption func(*Collector)

func WithMetrics(m *metrics.Metrics) CollectorOption {
	return func(c *Collector) { c.metrics = m }
}

// WithProgress logs the progress every interval. Zero disables it.
func WithProgress(interval time.Duration) CollectorOption {
	return func(c *Collector) { c.interval = interval }
}

func NewCollector(outcomes <-chan verifier.Outcome, sink Sink, opts ...CollectorOption) *Collector {
	c := &Collector{outcomes: outcomes, sink: sink}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect receives exactly expected outcomes and appends each to the sink. After a sink error it
// keeps receiving, without writing, so that the producers can terminate.
func (c *Collector) Collect(ctx context.Context, expected int) (*Summary, error) {
	s := &Summary{Reasons: map[verifier.Reason]int{}}

	var tick <-chan time.Time
	if c.interval > 0 {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	var (
		received int
		sinkErr  error
	)
	for received < expected {
		select {
		case o, ok := <-c.outcomes:
			if !ok {
				return s, &ShortfallError{Expected: expected, Collected: received, Cause: sinkErr}
			}
			received++
			if sinkErr != nil {
				continue
			}
			if err := c.sink.Append(ctx, o); err != nil {
				sinkErr = err
				logger.Errorf("ledger write failed, discarding remaining results: %v", err)
				continue
			}
			s.add(o)
			c.metrics.ResultWritten(o.Verified(), o.Reason.String())
		case <-tick:
			logger.Infof("collected %d of %d job results", received, expected)
		}
	}
	if sinkErr != nil {
		return s, errors.WithMessagef(sinkErr, "ledger incomplete after %d of %d job results", s.Total(), expected)
	}
	logger.Infof("wrote out %d job results", s.Total())
	return s, nil
}
