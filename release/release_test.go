package release_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yplabs-ltd/codepush-server/blobstore"
	"github.com/yplabs-ltd/codepush-server/idutil"
	"github.com/yplabs-ltd/codepush-server/objectstore"
	"github.com/yplabs-ltd/codepush-server/release"
	"github.com/yplabs-ltd/codepush-server/store"
	"github.com/yplabs-ltd/codepush-server/store/storetest"
)

func testEngine(t *testing.T) (*release.Engine, *store.Store) {
	t.Helper()
	db := storetest.SetupPG(t)
	driver, err := objectstore.NewFilesystemDriver(context.Background(), t.TempDir())
	require.NoError(t, err)
	bs := blobstore.New(driver)
	return release.NewEngine(db, bs), db
}

func setupDeployment(t *testing.T, db *store.Store) (appID, deploymentID string) {
	t.Helper()
	ctx := context.Background()
	q := db.DBMap()

	acc, err := store.GetOrCreateAccountByEmail(ctx, q, idutil.NewID()+"@example.com", "test")
	require.NoError(t, err)
	app, err := store.AddApp(ctx, q, acc.ID, "app-"+idutil.NewID())
	require.NoError(t, err)
	dep, err := store.AddDeployment(ctx, q, app.ID, "Production")
	require.NoError(t, err)
	return app.ID, dep.ID
}

func TestCommitPackageAssignsV1(t *testing.T) {
	engine, db := testEngine(t)
	appID, depID := setupDeployment(t, db)

	pkg, err := engine.CommitPackage(context.Background(), appID, depID, []byte("bundle-bytes"), release.UploadInfo{AppVersion: "1.0.0"})
	require.NoError(t, err)
	require.Equal(t, "v1", pkg.Label)
	require.NotEmpty(t, pkg.PackageHash)
}

func TestCommitPackageRejectsDuplicateHash(t *testing.T) {
	engine, db := testEngine(t)
	appID, depID := setupDeployment(t, db)

	bundle := []byte("identical-bundle")
	_, err := engine.CommitPackage(context.Background(), appID, depID, bundle, release.UploadInfo{AppVersion: "1.0.0"})
	require.NoError(t, err)

	_, err = engine.CommitPackage(context.Background(), appID, depID, bytes.Clone(bundle), release.UploadInfo{AppVersion: "1.0.0"})
	require.Error(t, err)
}

func TestCommitPackageRejectsDuringInProgressRollout(t *testing.T) {
	engine, db := testEngine(t)
	appID, depID := setupDeployment(t, db)

	rollout := 50
	_, err := engine.CommitPackage(context.Background(), appID, depID, []byte("bundle-a"), release.UploadInfo{AppVersion: "1.0.0", Rollout: &rollout})
	require.NoError(t, err)

	_, err = engine.CommitPackage(context.Background(), appID, depID, []byte("bundle-b"), release.UploadInfo{AppVersion: "1.0.0"})
	require.Error(t, err)
}

func TestPromoteCopiesBlobByReference(t *testing.T) {
	engine, db := testEngine(t)
	srcAppID, srcDepID := setupDeployment(t, db)
	dstAppID, _ := setupDeployment(t, db)

	src, err := engine.CommitPackage(context.Background(), srcAppID, srcDepID, []byte("promotable-bundle"), release.UploadInfo{AppVersion: "1.0.0"})
	require.NoError(t, err)

	q := db.DBMap()
	srcDeployment, err := store.GetDeploymentByName(context.Background(), q, srcAppID, "Production")
	require.NoError(t, err)
	dstDeployment, err := store.GetDeploymentByName(context.Background(), q, dstAppID, "Production")
	require.NoError(t, err)

	dst, err := engine.Promote(context.Background(), srcDeployment, dstDeployment, release.UploadInfo{}, release.OverrideSet{})
	require.NoError(t, err)
	require.Equal(t, src.BlobPath, dst.BlobPath)
	require.Equal(t, src.PackageHash, dst.PackageHash)
	require.Equal(t, "v1", dst.Label)
	require.Equal(t, "Production", dst.OriginalDeployment)
}

func TestRollbackRequiresPriorRelease(t *testing.T) {
	engine, db := testEngine(t)
	_, depID := setupDeployment(t, db)

	_, err := engine.Rollback(context.Background(), depID, "")
	require.Error(t, err)
}

func TestRollbackRejectsAcrossBinaryVersions(t *testing.T) {
	engine, db := testEngine(t)
	appID, depID := setupDeployment(t, db)

	_, err := engine.CommitPackage(context.Background(), appID, depID, []byte("v1-bundle"), release.UploadInfo{AppVersion: "1.0.0"})
	require.NoError(t, err)
	rollout := 100
	_, err = engine.CommitPackage(context.Background(), appID, depID, []byte("v2-bundle"), release.UploadInfo{AppVersion: "2.0.0", Rollout: &rollout})
	require.NoError(t, err)

	_, err = engine.Rollback(context.Background(), depID, "")
	require.Error(t, err)
}

func TestUpdateReleasePatchesWithoutNewBlob(t *testing.T) {
	engine, db := testEngine(t)
	appID, depID := setupDeployment(t, db)

	pkg, err := engine.CommitPackage(context.Background(), appID, depID, []byte("patchable-bundle"), release.UploadInfo{AppVersion: "1.0.0"})
	require.NoError(t, err)

	newDesc := "patched description"
	updated, err := engine.UpdateRelease(context.Background(), depID, "", release.UpdatePatch{Description: &newDesc})
	require.NoError(t, err)
	require.Equal(t, newDesc, updated.Description)
	require.Equal(t, pkg.BlobPath, updated.BlobPath)
}
