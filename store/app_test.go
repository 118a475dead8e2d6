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

func newAccount(t *testing.T, db *store.Store) *model.Account {
	t.Helper()
	acc, err := store.GetOrCreateAccountByEmail(context.Background(), db.DBMap(), idutil.NewID()+"@example.com", "test")
	require.NoError(t, err)
	return acc
}

// TestAddAppGrantsOwnerToCreator verifies invariant O1: the creator starts
// as the app's sole Owner.
func TestAddAppGrantsOwnerToCreator(t *testing.T) {
	db := storetest.SetupPG(t)
	ctx := context.Background()
	q := db.DBMap()
	acc := newAccount(t, db)

	app, err := store.AddApp(ctx, q, acc.ID, "myapp")
	require.NoError(t, err)
	require.Len(t, app.Collaborators, 1)
	require.Equal(t, model.PermissionOwner, app.Collaborators[0].Permission)
	require.Equal(t, acc.ID, app.Collaborators[0].AccountID)
}

func TestAddAppRejectsDuplicateNameForSameAccount(t *testing.T) {
	db := storetest.SetupPG(t)
	ctx := context.Background()
	q := db.DBMap()
	acc := newAccount(t, db)

	_, err := store.AddApp(ctx, q, acc.ID, "dup")
	require.NoError(t, err)

	_, err = store.AddApp(ctx, q, acc.ID, "dup")
	require.Error(t, err)
}

func TestTransferAppPreservesSingleOwner(t *testing.T) {
	db := storetest.SetupPG(t)
	ctx := context.Background()
	q := db.DBMap()
	owner := newAccount(t, db)
	newOwnerEmail := idutil.NewID() + "@example.com"

	app, err := store.AddApp(ctx, q, owner.ID, "transferable")
	require.NoError(t, err)

	require.NoError(t, store.TransferApp(ctx, q, owner.ID, app.ID, newOwnerEmail))

	reloaded, err := store.GetAppByID(ctx, q, app.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Collaborators, 2)

	newOwner, ok := reloaded.Owner()
	require.True(t, ok)
	require.NotEqual(t, owner.ID, newOwner.AccountID)
}

func TestRemoveCollaboratorDeletesMembership(t *testing.T) {
	db := storetest.SetupPG(t)
	ctx := context.Background()
	q := db.DBMap()
	owner := newAccount(t, db)
	collab := newAccount(t, db)

	app, err := store.AddApp(ctx, q, owner.ID, "collabapp")
	require.NoError(t, err)
	require.NoError(t, store.AddCollaborator(ctx, q, app.ID, collab.ID, model.PermissionCollaborator))
	require.NoError(t, store.RemoveCollaborator(ctx, q, app.ID, collab.ID))

	reloaded, err := store.GetAppByID(ctx, q, app.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Collaborators, 1)
}
