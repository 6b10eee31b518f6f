package metrics

import (
	"context"
	"errors"
	"time"
)

// Common errors.
var (
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrBatchDropped reports that a batch was abandoned after the retry
	// policy was exhausted. The batch is already logged and discarded;
	// emitters may ignore this error.
	ErrBatchDropped = errors.New("metric batch dropped")
)

// Unit is a CloudWatch standard unit name.
type Unit string

const (
	UnitCount        Unit = "Count"
	UnitSeconds      Unit = "Seconds"
	UnitMilliseconds Unit = "Milliseconds"
)

// Dimension is one name/value pair qualifying a datum.
type Dimension struct {
	Name  string
	Value string
}

// Datum is a single metric data point. It is constructed fresh each cycle
// and never mutated after creation.
type Datum struct {
	Name       string
	Value      float64
	Unit       Unit
	Dimensions []Dimension
	Timestamp  time.Time
}

// Publisher ships metric batches to a sink. Implementations must never
// block indefinitely: a batch that cannot be delivered within the retry
// policy is dropped, not queued.
type Publisher interface {
	Publish(ctx context.Context, data []Datum) error
}

// RetryPolicy bounds delivery attempts for one batch. It is an explicit
// value so failure semantics stay deterministic and testable.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// BaseDelay is the wait after the first failure.
	BaseDelay time.Duration

	// Multiplier grows the delay after each failure.
	Multiplier float64

	// MaxDelay caps the per-attempt delay.
	MaxDelay time.Duration
}

// Validate checks the policy.
func (p *RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return ErrInvalidConfig
	}
	if p.BaseDelay <= 0 || p.MaxDelay < p.BaseDelay {
		return ErrInvalidConfig
	}
	if p.Multiplier < 1 {
		return ErrInvalidConfig
	}
	return nil
}

// DefaultRetryPolicy returns the publisher's default bounds: three attempts
// spread over a few seconds, small enough that a sink outage can never stall
// a heartbeat cycle.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		Multiplier:  2,
		MaxDelay:    5 * time.Second,
	}
}
