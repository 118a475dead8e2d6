package store

import (
	"context"

	"github.com/yplabs-ltd/codepush-server/apierrors"
	"github.com/yplabs-ltd/codepush-server/model"
)

// IncrementMetric collapses a single event into the (deploymentKey, label,
// type) counter, inserting the row on first occurrence. Grounded on the
// teacher's upsert-style usage of ON CONFLICT DO UPDATE in its dao layer.
func IncrementMetric(ctx context.Context, q Querier, deploymentKey, label string, typ model.MetricType) error {
	_, err := q.Exec(`
		INSERT INTO metric (deployment_key, label, type, count) VALUES ($1, $2, $3, 1)
		ON CONFLICT (deployment_key, label, type) DO UPDATE SET count = metric.count + 1`,
		deploymentKey, label, typ)
	if err != nil {
		return apierrors.WrapError(err, "store: increment metric %s/%s/%s", deploymentKey, label, typ)
	}
	return nil
}

// DecrementMetric reduces a counter by one, clamped at zero so a
// double-decrement race can never drive a count negative.
func DecrementMetric(ctx context.Context, q Querier, deploymentKey, label string, typ model.MetricType) error {
	_, err := q.Exec(`
		UPDATE metric SET count = GREATEST(count - 1, 0)
		WHERE deployment_key = $1 AND label = $2 AND type = $3`,
		deploymentKey, label, typ)
	if err != nil {
		return apierrors.WrapError(err, "store: decrement metric %s/%s/%s", deploymentKey, label, typ)
	}
	return nil
}

// GetMetrics aggregates every counter type for every label of a deployment
// into the per-label view the deployment metrics route serves (spec §4.7).
func GetMetrics(ctx context.Context, q Querier, deploymentKey string) (model.DeploymentMetrics, error) {
	var rows []metricRow
	if _, err := q.Select(&rows, `SELECT * FROM metric WHERE deployment_key = $1`, deploymentKey); err != nil {
		return nil, apierrors.WrapError(err, "store: load metrics for deployment %s", deploymentKey)
	}
	out := model.DeploymentMetrics{}
	for _, r := range rows {
		lm := out[r.Label]
		switch model.MetricType(r.Type) {
		case model.MetricActive:
			lm.Active = r.Count
		case model.MetricDownloaded:
			lm.Downloads = r.Count
		case model.MetricDeploymentSucceeded:
			lm.Installed = r.Count
		case model.MetricDeploymentFailed:
			lm.Failed = r.Count
		}
		out[r.Label] = lm
	}
	return out, nil
}
