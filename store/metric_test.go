package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yplabs-ltd/codepush-server/idutil"
	"github.com/yplabs-ltd/codepush-server/model"
	"github.com/yplabs-ltd/codepush-server/store"
	"github.com/yplabs-ltd/codepush-server/store/storetest"
)

func TestIncrementMetricCollapsesRepeatedEvents(t *testing.T) {
	db := storetest.SetupPG(t)
	ctx := context.Background()
	q := db.DBMap()
	key := "dk_" + idutil.NewID()

	require.NoError(t, store.IncrementMetric(ctx, q, key, "v1", model.MetricDownloaded))
	require.NoError(t, store.IncrementMetric(ctx, q, key, "v1", model.MetricDownloaded))
	require.NoError(t, store.IncrementMetric(ctx, q, key, "v1", model.MetricDownloaded))

	metrics, err := store.GetMetrics(ctx, q, key)
	require.NoError(t, err)
	require.EqualValues(t, 3, metrics["v1"].Downloads)
}

func TestDecrementMetricClampsAtZero(t *testing.T) {
	db := storetest.SetupPG(t)
	ctx := context.Background()
	q := db.DBMap()
	key := "dk_" + idutil.NewID()

	require.NoError(t, store.IncrementMetric(ctx, q, key, "v1", model.MetricActive))
	require.NoError(t, store.DecrementMetric(ctx, q, key, "v1", model.MetricActive))
	require.NoError(t, store.DecrementMetric(ctx, q, key, "v1", model.MetricActive))

	metrics, err := store.GetMetrics(ctx, q, key)
	require.NoError(t, err)
	require.EqualValues(t, 0, metrics["v1"].Active)
}
