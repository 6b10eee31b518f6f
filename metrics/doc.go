// Package metrics publishes data points to CloudWatch.
//
// A Datum is a value object built fresh each cycle; a Publisher ships
// batches of them. The CloudWatch publisher splits batches at the
// PutMetricData limit, retries transient failures with bounded exponential
// backoff and then drops the batch with a warning. Liveness detection
// tolerates occasional metric gaps but not a stalled agent, so the
// publisher sheds load rather than buffering during sink outages.
//
// # Usage
//
//	client := cloudwatch.NewFromConfig(awsCfg)
//	pub, err := metrics.NewCloudWatchPublisher(metrics.CloudWatchConfig{
//	    Client:    client,
//	    Namespace: "ContainerMonitoring/Heartbeat",
//	})
//	_ = pub.Publish(ctx, data) // ErrBatchDropped after retries is non-fatal
//
// MemoryPublisher records batches for tests.
package metrics
