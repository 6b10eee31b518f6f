package metrics

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/smithy-go"
	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// PutMetricData's per-request datum limit.
const maxBatchSize = 20

// API is the subset of the CloudWatch client the publisher uses.
type API interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchConfig configures a CloudWatch publisher.
type CloudWatchConfig struct {
	// Client is the CloudWatch API client.
	Client API

	// Namespace all metrics are published under.
	Namespace string

	// Retry bounds delivery attempts per batch. Zero value means
	// DefaultRetryPolicy.
	Retry RetryPolicy

	// Logger receives drop warnings. Nil means logrus standard logger.
	Logger *logrus.Entry
}

// Validate checks the configuration.
func (c *CloudWatchConfig) Validate() error {
	if c.Client == nil {
		return fmt.Errorf("%w: missing client", ErrInvalidConfig)
	}
	if c.Namespace == "" {
		return fmt.Errorf("%w: missing namespace", ErrInvalidConfig)
	}
	return nil
}

// CloudWatchPublisher ships datum batches to CloudWatch. Each Publish call
// is independent: transient failures are retried with bounded exponential
// backoff, then the batch is dropped with a warning. Nothing is buffered
// across calls, so a sustained sink outage sheds load instead of growing a
// queue.
type CloudWatchPublisher struct {
	client    API
	namespace string
	retry     RetryPolicy
	log       *logrus.Entry
}

// NewCloudWatchPublisher creates a publisher.
func NewCloudWatchPublisher(cfg CloudWatchConfig) (*CloudWatchPublisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	retry := cfg.Retry
	if retry == (RetryPolicy{}) {
		retry = DefaultRetryPolicy()
	}
	if err := retry.Validate(); err != nil {
		return nil, fmt.Errorf("%w: retry policy", ErrInvalidConfig)
	}

	log := cfg.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	return &CloudWatchPublisher{
		client:    cfg.Client,
		namespace: cfg.Namespace,
		retry:     retry,
		log:       log,
	}, nil
}

// Publish ships the datums in PutMetricData-sized batches. A batch that
// exhausts the retry policy is dropped and reported as ErrBatchDropped;
// later batches are still attempted. Cancelling ctx aborts outstanding
// retries.
func (p *CloudWatchPublisher) Publish(ctx context.Context, data []Datum) error {
	if len(data) == 0 {
		return nil
	}

	dropped := 0
	for start := 0; start < len(data); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(data) {
			end = len(data)
		}
		if err := p.putBatch(ctx, data[start:end]); err != nil {
			dropped++
			p.log.WithError(err).WithField("datums", end-start).Warn("dropping metric batch")
			if ctx.Err() != nil {
				break
			}
		}
	}

	if dropped > 0 {
		return fmt.Errorf("%w: %d batch(es)", ErrBatchDropped, dropped)
	}
	return nil
}

func (p *CloudWatchPublisher) putBatch(ctx context.Context, batch []Datum) error {
	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(p.namespace),
		MetricData: toMetricData(batch),
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.retry.BaseDelay
	bo.Multiplier = p.retry.Multiplier
	bo.MaxInterval = p.retry.MaxDelay
	bo.MaxElapsedTime = 0

	attempt := func() error {
		_, err := p.client.PutMetricData(ctx, input)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	return backoff.Retry(attempt, backoff.WithContext(
		backoff.WithMaxRetries(bo, uint64(p.retry.MaxAttempts-1)), ctx))
}

// retryable reports whether a PutMetricData failure is worth another
// attempt. Throttling and server faults are; request validation failures
// are not. Plain transport errors (refused, reset, timeout) are retryable.
func retryable(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "Throttling", "ThrottlingException", "RequestLimitExceeded",
			"ServiceUnavailable", "RequestTimeout":
			return true
		}
		return apiErr.ErrorFault() == smithy.FaultServer
	}
	return true
}

func toMetricData(batch []Datum) []types.MetricDatum {
	out := make([]types.MetricDatum, 0, len(batch))
	for _, d := range batch {
		md := types.MetricDatum{
			MetricName: aws.String(d.Name),
			Value:      aws.Float64(d.Value),
			Unit:       types.StandardUnit(d.Unit),
		}
		if !d.Timestamp.IsZero() {
			md.Timestamp = aws.Time(d.Timestamp)
		}
		for _, dim := range d.Dimensions {
			md.Dimensions = append(md.Dimensions, types.Dimension{
				Name:  aws.String(dim.Name),
				Value: aws.String(dim.Value),
			})
		}
		out = append(out, md)
	}
	return out
}
