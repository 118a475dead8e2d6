package metrics_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yplabs-ltd/codepush-server/metrics"
	"github.com/yplabs-ltd/codepush-server/model"
	"github.com/yplabs-ltd/codepush-server/store/storetest"
)

func TestRecordDownloadIncrementsCounter(t *testing.T) {
	db := storetest.SetupPG(t)
	counter := metrics.NewCounter(db)
	ctx := context.Background()
	key := "dk_test1"

	require.NoError(t, counter.RecordDownload(ctx, key, "v1"))
	require.NoError(t, counter.RecordDownload(ctx, key, "v1"))

	m, err := counter.Get(ctx, key)
	require.NoError(t, err)
	require.EqualValues(t, 2, m["v1"].Downloads)
}

func TestRecordDeploymentStatusSucceededBumpsActive(t *testing.T) {
	db := storetest.SetupPG(t)
	counter := metrics.NewCounter(db)
	ctx := context.Background()
	key := "dk_test2"

	require.NoError(t, counter.RecordDeploymentStatus(ctx, key, "v1", "client1", model.DeploymentStatusSucceeded))

	m, err := counter.Get(ctx, key)
	require.NoError(t, err)
	require.EqualValues(t, 1, m["v1"].Active)
	require.EqualValues(t, 1, m["v1"].Installed)
}

func TestRecordDeploymentDecrementsOldLabelNotBelowZero(t *testing.T) {
	db := storetest.SetupPG(t)
	counter := metrics.NewCounter(db)
	ctx := context.Background()
	key := "dk_test3"

	require.NoError(t, counter.RecordDeployment(ctx, key, "v1", "client1", "", ""))
	require.NoError(t, counter.RecordDeployment(ctx, key, "v2", "client1", key, "v1"))

	m, err := counter.Get(ctx, key)
	require.NoError(t, err)
	require.EqualValues(t, 0, m["v1"].Active)
	require.EqualValues(t, 1, m["v2"].Active)

	// a second decrement of an already-zero counter must not go negative
	require.NoError(t, counter.RecordDeployment(ctx, key, "v3", "client2", key, "v1"))
	m, err = counter.Get(ctx, key)
	require.NoError(t, err)
	require.EqualValues(t, 0, m["v1"].Active)
}
