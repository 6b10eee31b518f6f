// Command edgewatch runs the heartbeat and target monitoring agent.
//
// All configuration comes from the environment (see package config). The
// process exits 0 after a clean drain and non-zero when configuration or
// startup fails.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/sirupsen/logrus"

	"github.com/edgewatch/edgewatch/agent"
	"github.com/edgewatch/edgewatch/config"
	"github.com/edgewatch/edgewatch/logging"
	"github.com/edgewatch/edgewatch/metrics"
)

func main() {
	var (
		grace  = flag.Duration("grace", 10*time.Second, "Shutdown grace period")
		dryRun = flag.Bool("dry-run", false, "Log metrics instead of publishing to CloudWatch")
	)
	flag.Parse()

	if err := run(*grace, *dryRun); err != nil {
		fmt.Fprintf(os.Stderr, "edgewatch: %v\n", err)
		os.Exit(1)
	}
}

func run(grace time.Duration, dryRun bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logging.New(cfg.LogLevel)
	log.WithFields(logrus.Fields{
		"container": cfg.ContainerName,
		"region":    cfg.AWSRegion,
		"namespace": cfg.Namespace,
		"targets":   len(cfg.Targets),
	}).Info("starting edgewatch")

	pub, err := newPublisher(cfg, log, dryRun)
	if err != nil {
		return err
	}

	a, err := agent.New(agent.Options{
		Config:    cfg,
		Publisher: pub,
		Logger:    log,
		Grace:     grace,
	})
	if err != nil {
		return err
	}

	return a.Run(context.Background())
}

// newPublisher builds the CloudWatch publisher, or a memory one in dry-run
// mode so the agent can be exercised without AWS credentials.
func newPublisher(cfg config.Config, log *logrus.Logger, dryRun bool) (metrics.Publisher, error) {
	if dryRun {
		log.Warn("dry-run: metrics will not be published")
		return metrics.NewMemoryPublisher(), nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return metrics.NewCloudWatchPublisher(metrics.CloudWatchConfig{
		Client:    cloudwatch.NewFromConfig(awsCfg),
		Namespace: cfg.Namespace,
		Retry:     metrics.DefaultRetryPolicy(),
		Logger:    logging.Component(log, "cloudwatch"),
	})
}
