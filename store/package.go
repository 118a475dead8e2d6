package store

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/yplabs-ltd/codepush-server/apierrors"
	"github.com/yplabs-ltd/codepush-server/idutil"
	"github.com/yplabs-ltd/codepush-server/model"
)

// CountPackages returns the number of non-deleted releases in a deployment,
// the basis for the next label assignment (P1).
func CountPackages(ctx context.Context, q Querier, deploymentID string) (int64, error) {
	n, err := q.SelectInt(`SELECT count(1) FROM package WHERE deployment_id = $1 AND deleted_at IS NULL`, deploymentID)
	if err != nil {
		return 0, apierrors.WithStack(err)
	}
	return n, nil
}

// LockLatestPackage loads the most recent non-deleted release in a
// deployment with FOR UPDATE NOWAIT, so the P3 rollout check, the label
// computation, and the eventual insert all observe a consistent view inside
// one transaction (spec §5: "wrap the read of the latest package, the P3
// check, the label computation, and the insert in a single serializable
// transaction"). Grounded on the teacher's
// application.LoadAndLockByID ("... FOR UPDATE NOWAIT").
func LockLatestPackage(ctx context.Context, q Querier, deploymentID string) (*model.Package, error) {
	var row packageRow
	err := q.SelectOne(&row, `
		SELECT * FROM package
		WHERE deployment_id = $1 AND deleted_at IS NULL
		ORDER BY upload_time DESC LIMIT 1
		FOR UPDATE NOWAIT`, deploymentID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apierrors.NewError(apierrors.KindConflict, err)
	}
	p := model.Package(row)
	return &p, nil
}

// GetLatestPackage loads the most recent non-deleted release without locking
// (promote's source lookup, updateRelease's default target).
func GetLatestPackage(ctx context.Context, q Querier, deploymentID string) (*model.Package, error) {
	var row packageRow
	err := q.SelectOne(&row, `
		SELECT * FROM package
		WHERE deployment_id = $1 AND deleted_at IS NULL
		ORDER BY upload_time DESC LIMIT 1`, deploymentID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apierrors.WithStack(err)
	}
	p := model.Package(row)
	return &p, nil
}

// GetPackageByLabel loads a specific labelled release.
func GetPackageByLabel(ctx context.Context, q Querier, deploymentID, label string) (*model.Package, error) {
	var row packageRow
	err := q.SelectOne(&row, `SELECT * FROM package WHERE deployment_id = $1 AND label = $2 AND deleted_at IS NULL`, deploymentID, label)
	if err == sql.ErrNoRows {
		return nil, apierrors.Newf(apierrors.KindNotFound, "release %s not found", label)
	}
	if err != nil {
		return nil, apierrors.WithStack(err)
	}
	p := model.Package(row)
	return &p, nil
}

// ListPackageHistory returns every non-deleted release in a deployment,
// ascending by uploadTime — the order the update resolver and rollback scan
// (spec §4.6 step 2, §4.5 rollback).
func ListPackageHistory(ctx context.Context, q Querier, deploymentID string) ([]model.Package, error) {
	var rows []packageRow
	if _, err := q.Select(&rows, `
		SELECT * FROM package
		WHERE deployment_id = $1 AND deleted_at IS NULL
		ORDER BY upload_time ASC`, deploymentID); err != nil {
		return nil, apierrors.WrapError(err, "store: list package history for deployment %s", deploymentID)
	}
	out := make([]model.Package, len(rows))
	for i, r := range rows {
		out[i] = model.Package(r)
	}
	return out, nil
}

// ListPackageHistoryPage returns a page of history strictly after the given
// upload time, ascending, capped at limit — a supplemental admin-surface
// operation (SPEC_FULL §9) layered over the same ordering ListPackageHistory uses.
func ListPackageHistoryPage(ctx context.Context, q Querier, deploymentID string, after time.Time, limit int) ([]model.Package, error) {
	var rows []packageRow
	if _, err := q.Select(&rows, `
		SELECT * FROM package
		WHERE deployment_id = $1 AND deleted_at IS NULL AND upload_time > $2
		ORDER BY upload_time ASC LIMIT $3`, deploymentID, after, limit); err != nil {
		return nil, apierrors.WrapError(err, "store: list package history page for deployment %s", deploymentID)
	}
	out := make([]model.Package, len(rows))
	for i, r := range rows {
		out[i] = model.Package(r)
	}
	return out, nil
}

// NextLabel computes "vN" for the next release, where N-1 is the count of
// currently non-deleted releases (P1). Callers must compute this inside the
// same transaction as LockLatestPackage and the subsequent insert.
func NextLabel(ctx context.Context, q Querier, deploymentID string) (string, error) {
	count, err := CountPackages(ctx, q, deploymentID)
	if err != nil {
		return "", err
	}
	return labelFor(count + 1), nil
}

func labelFor(n int64) string {
	return "v" + strconv.FormatInt(n, 10)
}

// InsertPackage persists a new release row.
func InsertPackage(ctx context.Context, q Querier, p *model.Package) error {
	if p.ID == "" {
		p.ID = idutil.NewID()
	}
	row := packageRow(*p)
	if err := q.Insert(&row); err != nil {
		return apierrors.WithStack(err)
	}
	return nil
}

// UpdatePackage persists changes to an existing release (updateRelease's
// patch operation, spec §4.5).
func UpdatePackage(ctx context.Context, q Querier, p *model.Package) error {
	row := packageRow(*p)
	n, err := q.Update(&row)
	if err != nil {
		return apierrors.WithStack(err)
	}
	if n == 0 {
		return apierrors.New(apierrors.KindNotFound, "release not found")
	}
	return nil
}

// InsertPackageDiff records a diff archive from sourcePackageHash to
// diff.PackageID's release.
func InsertPackageDiff(ctx context.Context, q Querier, d *model.PackageDiff) error {
	if d.ID == "" {
		d.ID = idutil.NewID()
	}
	row := packageDiffRow(*d)
	if err := q.Insert(&row); err != nil {
		return apierrors.WithStack(err)
	}
	return nil
}

// ListPackageDiffs returns every diff attached to a release, keyed by source
// package hash — the diffPackageMap the update resolver consults (spec §4.6
// step 8).
func ListPackageDiffs(ctx context.Context, q Querier, packageID string) ([]model.PackageDiff, error) {
	var rows []packageDiffRow
	if _, err := q.Select(&rows, `SELECT * FROM package_diff WHERE package_id = $1`, packageID); err != nil {
		return nil, apierrors.WrapError(err, "store: list diffs for package %s", packageID)
	}
	out := make([]model.PackageDiff, len(rows))
	for i, r := range rows {
		out[i] = model.PackageDiff(r)
	}
	return out, nil
}
