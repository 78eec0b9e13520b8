// Copyright (c) 2024-2026 The vestscan developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package faults

import (
	"context"
	"math/rand"
	"time"
)

// Op identifies a kind of retryable operation.  Retry policies are
// keyed by Op rather than by free-form strings so an unknown operation
// kind cannot silently pick up the wrong policy.
type Op int

const (
	// OpTransactionFetch covers indexer address-history requests.
	OpTransactionFetch Op = iota

	// OpPriceLookup covers historical price enrichment.
	OpPriceLookup

	// OpAnnotation covers local scoring and assignment.  Local
	// computation failures are not transient, so its policy performs
	// no retries.
	OpAnnotation
)

// String returns the Op as a human readable name.
func (op Op) String() string {
	switch op {
	case OpTransactionFetch:
		return "transaction fetch"
	case OpPriceLookup:
		return "price lookup"
	case OpAnnotation:
		return "annotation"
	default:
		return "unknown operation"
	}
}

// Policy governs how failures of one operation kind are retried.
type Policy struct {
	// MaxRetries is the number of additional attempts made after the
	// first failure.
	MaxRetries int

	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration

	// MaxDelay caps the delay when exponential backoff is enabled.
	MaxDelay time.Duration

	// Exponential doubles the delay on each retry up to MaxDelay.
	// When false every retry waits BaseDelay.
	Exponential bool

	// Jitter is the upper bound of the random duration added to every
	// delay to avoid thundering herds.
	Jitter time.Duration

	// RetryCodes is the set of error codes this policy will retry.  A
	// classified error whose code is absent stops the loop even when
	// the error itself is retryable.
	RetryCodes []ErrorCode
}

// allows reports whether the policy whitelists the given error code.
func (p Policy) allows(code ErrorCode) bool {
	for _, c := range p.RetryCodes {
		if c == code {
			return true
		}
	}
	return false
}

// delay returns the backoff duration for the given zero-based attempt,
// including jitter.
func (p Policy) delay(attempt int) time.Duration {
	d := p.BaseDelay
	if p.Exponential {
		for i := 0; i < attempt && d < p.MaxDelay; i++ {
			d *= 2
		}
		if d > p.MaxDelay {
			d = p.MaxDelay
		}
	}
	if p.Jitter > 0 {
		d += time.Duration(rand.Int63n(int64(p.Jitter))) //nolint:gosec
	}
	return d
}

// PolicyFor returns the default policy for the given operation kind.
func PolicyFor(op Op) Policy {
	switch op {
	case OpTransactionFetch:
		return Policy{
			MaxRetries:  3,
			BaseDelay:   time.Second,
			MaxDelay:    10 * time.Second,
			Exponential: true,
			Jitter:      time.Second,
			RetryCodes:  []ErrorCode{ErrNetwork, ErrPartialData},
		}

	case OpPriceLookup:
		return Policy{
			MaxRetries:  2,
			BaseDelay:   time.Second,
			MaxDelay:    5 * time.Second,
			Exponential: true,
			Jitter:      time.Second,
			RetryCodes:  []ErrorCode{ErrNetwork, ErrPartialData},
		}

	default:
		return Policy{}
	}
}

// Do runs fn under the default policy for op.  See DoWithPolicy.
func Do[T any](ctx context.Context, op Op,
	fn func(context.Context) (T, error)) (T, error) {

	return DoWithPolicy(ctx, op, PolicyFor(op), fn)
}

// DoWithPolicy runs fn, classifying any failure and retrying transient
// ones according to the policy.  The loop stops immediately when the
// classified error is non-retryable, when its code is not whitelisted
// by the policy, when the retry budget is exhausted, or when ctx is
// cancelled.  A cancellation observed during the backoff sleep aborts
// the loop and surfaces a cancellation fault wrapping the last failure.
func DoWithPolicy[T any](ctx context.Context, op Op, policy Policy,
	fn func(context.Context) (T, error)) (T, error) {

	var zero T
	for attempt := 0; ; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}

		ferr := Classify(err, op.String())
		if ferr.Code == ErrCancelled {
			return zero, ferr
		}
		if !ferr.Retryable() || !policy.allows(ferr.Code) {
			return zero, ferr
		}
		if attempt >= policy.MaxRetries {
			log.Debugf("%s: retries exhausted after %d attempts: "+
				"%v", op, attempt+1, ferr)
			return zero, ferr
		}

		delay := policy.delay(attempt)
		log.Debugf("%s attempt %d failed (%v), retrying in %v", op,
			attempt+1, ferr, delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			cerr := Cancelled(ferr)
			cerr.Description = "the operation was cancelled " +
				"while waiting to retry"
			return zero, cerr

		case <-timer.C:
		}
	}
}
