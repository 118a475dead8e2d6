package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yplabs-ltd/codepush-server/store"
	"github.com/yplabs-ltd/codepush-server/store/storetest"
)

func TestAddDeploymentRejectsDuplicateNameWithinApp(t *testing.T) {
	db := storetest.SetupPG(t)
	ctx := context.Background()
	q := db.DBMap()
	acc := newAccount(t, db)
	app, err := store.AddApp(ctx, q, acc.ID, "depapp")
	require.NoError(t, err)

	_, err = store.AddDeployment(ctx, q, app.ID, "Staging")
	require.NoError(t, err)

	_, err = store.AddDeployment(ctx, q, app.ID, "Staging")
	require.Error(t, err)
}

func TestGetDeploymentByKeyResolvesPublicKey(t *testing.T) {
	db := storetest.SetupPG(t)
	ctx := context.Background()
	q := db.DBMap()
	acc := newAccount(t, db)
	app, err := store.AddApp(ctx, q, acc.ID, "keyapp")
	require.NoError(t, err)
	dep, err := store.AddDeployment(ctx, q, app.ID, "Production")
	require.NoError(t, err)

	found, err := store.GetDeploymentByKey(ctx, q, dep.Key)
	require.NoError(t, err)
	require.Equal(t, dep.ID, found.ID)
}

func TestRemoveDeploymentIsSoftDelete(t *testing.T) {
	db := storetest.SetupPG(t)
	ctx := context.Background()
	q := db.DBMap()
	acc := newAccount(t, db)
	app, err := store.AddApp(ctx, q, acc.ID, "softdelapp")
	require.NoError(t, err)
	dep, err := store.AddDeployment(ctx, q, app.ID, "Production")
	require.NoError(t, err)

	require.NoError(t, store.RemoveDeployment(ctx, q, dep.ID))

	_, err = store.GetDeploymentByName(ctx, q, app.ID, "Production")
	require.Error(t, err)

	// the name frees up for reuse once the old row is soft-deleted
	_, err = store.AddDeployment(ctx, q, app.ID, "Production")
	require.NoError(t, err)
}
