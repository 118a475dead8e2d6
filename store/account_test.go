package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yplabs-ltd/codepush-server/idutil"
	"github.com/yplabs-ltd/codepush-server/store"
	"github.com/yplabs-ltd/codepush-server/store/storetest"
)

func TestGetOrCreateAccountByEmailIsIdempotent(t *testing.T) {
	db := storetest.SetupPG(t)
	ctx := context.Background()
	q := db.DBMap()
	email := idutil.NewID() + "@EXAMPLE.com"

	first, err := store.GetOrCreateAccountByEmail(ctx, q, email, "first")
	require.NoError(t, err)

	second, err := store.GetOrCreateAccountByEmail(ctx, q, email, "second")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
}

func TestGetAccountByEmailFoldsCase(t *testing.T) {
	db := storetest.SetupPG(t)
	ctx := context.Background()
	q := db.DBMap()
	email := idutil.NewID() + "@example.com"

	created, err := store.GetOrCreateAccountByEmail(ctx, q, email, "name")
	require.NoError(t, err)

	found, err := store.GetAccountByEmail(ctx, q, email)
	require.NoError(t, err)
	require.Equal(t, created.ID, found.ID)
}

func TestGetAccountByEmailNotFound(t *testing.T) {
	db := storetest.SetupPG(t)
	ctx := context.Background()
	q := db.DBMap()

	_, err := store.GetAccountByEmail(ctx, q, idutil.NewID()+"@example.com")
	require.Error(t, err)
}
