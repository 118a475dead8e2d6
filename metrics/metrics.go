// Package metrics implements component C7: the deployment metrics counter.
// Every write is a collapsing upsert over the relational store; reads
// aggregate per-label into the {active, downloads, installed, failed} view
// clients and the dashboard consume.
package metrics

import (
	"context"

	"github.com/yplabs-ltd/codepush-server/model"
	"github.com/yplabs-ltd/codepush-server/store"
)

// Counter bundles the store dependency every metrics operation needs.
type Counter struct {
	db *store.Store
}

// NewCounter constructs a metrics Counter.
func NewCounter(db *store.Store) *Counter {
	return &Counter{db: db}
}

// RecordDownload records that a client downloaded a release's bundle.
func (c *Counter) RecordDownload(ctx context.Context, deploymentKey, label string) error {
	return c.db.Exec(func(q store.Querier) error {
		return store.IncrementMetric(ctx, q, deploymentKey, label, model.MetricDownloaded)
	})
}

// RecordDeploymentStatus records a client's self-reported install outcome
// (spec §4.7). On success it also upserts the client's current label and
// bumps that label's active count.
func (c *Counter) RecordDeploymentStatus(ctx context.Context, deploymentKey, label, clientID string, status model.DeploymentStatus) error {
	return c.db.Exec(func(q store.Querier) error {
		switch status {
		case model.DeploymentStatusSucceeded:
			if err := store.SetClientLabel(ctx, q, deploymentKey, clientID, label); err != nil {
				return err
			}
			if err := store.IncrementMetric(ctx, q, deploymentKey, label, model.MetricDeploymentSucceeded); err != nil {
				return err
			}
			return store.IncrementMetric(ctx, q, deploymentKey, label, model.MetricActive)
		case model.DeploymentStatusFailed:
			return store.IncrementMetric(ctx, q, deploymentKey, label, model.MetricDeploymentFailed)
		}
		return nil
	})
}

// RecordDeployment marks a transition on a fresh install: if the client
// previously ran a (prevDeploymentKey, prevLabel) pair, its active count is
// decremented (never below zero) before the new label's active count is
// bumped (spec §4.7).
func (c *Counter) RecordDeployment(ctx context.Context, deploymentKey, currentLabel, clientID, prevDeploymentKey, prevLabel string) error {
	return c.db.Exec(func(q store.Querier) error {
		if prevDeploymentKey != "" && prevLabel != "" {
			if err := store.DecrementMetric(ctx, q, prevDeploymentKey, prevLabel, model.MetricActive); err != nil {
				return err
			}
		}
		if err := store.SetClientLabel(ctx, q, deploymentKey, clientID, currentLabel); err != nil {
			return err
		}
		return store.IncrementMetric(ctx, q, deploymentKey, currentLabel, model.MetricActive)
	})
}

// Get returns the per-label aggregation for a deployment.
func (c *Counter) Get(ctx context.Context, deploymentKey string) (model.DeploymentMetrics, error) {
	var out model.DeploymentMetrics
	err := c.db.Exec(func(q store.Querier) error {
		var err error
		out, err = store.GetMetrics(ctx, q, deploymentKey)
		return err
	})
	return out, err
}
