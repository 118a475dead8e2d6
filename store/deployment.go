package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/yplabs-ltd/codepush-server/apierrors"
	"github.com/yplabs-ltd/codepush-server/idutil"
	"github.com/yplabs-ltd/codepush-server/model"
)

// AddDeployment creates a deployment within an app with a fresh public key.
// Names are unique within an app.
func AddDeployment(ctx context.Context, q Querier, appID, name string) (*model.Deployment, error) {
	count, err := q.SelectInt(`SELECT count(1) FROM deployment WHERE app_id = $1 AND name = $2 AND deleted_at IS NULL`, appID, name)
	if err != nil {
		return nil, apierrors.WithStack(err)
	}
	if count > 0 {
		return nil, apierrors.Newf(apierrors.KindAlreadyExists, "deployment %q already exists", name)
	}

	key, err := idutil.GenerateDeploymentKey()
	if err != nil {
		return nil, apierrors.WithStack(err)
	}

	d := model.Deployment{ID: idutil.NewID(), AppID: appID, Name: name, Key: key, CreatedTime: time.Now()}
	row := deploymentRow(d)
	if err := q.Insert(&row); err != nil {
		return nil, apierrors.WithStack(err)
	}
	return &d, nil
}

// GetDeploymentByName loads a deployment by (appID, name).
func GetDeploymentByName(ctx context.Context, q Querier, appID, name string) (*model.Deployment, error) {
	var row deploymentRow
	err := q.SelectOne(&row, `SELECT * FROM deployment WHERE app_id = $1 AND name = $2 AND deleted_at IS NULL`, appID, name)
	if err == sql.ErrNoRows {
		return nil, apierrors.New(apierrors.KindNotFound, "deployment not found")
	}
	if err != nil {
		return nil, apierrors.WithStack(err)
	}
	d := model.Deployment(row)
	return &d, nil
}

// GetDeploymentByKey resolves a deployment from the public key clients
// present (spec §4.6 step 1).
func GetDeploymentByKey(ctx context.Context, q Querier, key string) (*model.Deployment, error) {
	var row deploymentRow
	err := q.SelectOne(&row, `SELECT * FROM deployment WHERE key = $1 AND deleted_at IS NULL`, key)
	if err == sql.ErrNoRows {
		return nil, apierrors.New(apierrors.KindNotFound, "unknown deployment key")
	}
	if err != nil {
		return nil, apierrors.WithStack(err)
	}
	d := model.Deployment(row)
	return &d, nil
}

// ListDeploymentsForApp returns every non-deleted deployment for an app.
func ListDeploymentsForApp(ctx context.Context, q Querier, appID string) ([]model.Deployment, error) {
	var rows []deploymentRow
	if _, err := q.Select(&rows, `SELECT * FROM deployment WHERE app_id = $1 AND deleted_at IS NULL ORDER BY created_time`, appID); err != nil {
		return nil, apierrors.WrapError(err, "store: list deployments for app %s", appID)
	}
	out := make([]model.Deployment, len(rows))
	for i, r := range rows {
		out[i] = model.Deployment(r)
	}
	return out, nil
}

// RenameDeployment renames a deployment, preserving its key.
func RenameDeployment(ctx context.Context, q Querier, id, newName string) error {
	res, err := q.Exec(`UPDATE deployment SET name = $1 WHERE id = $2 AND deleted_at IS NULL`, newName, id)
	if err != nil {
		return apierrors.WrapError(err, "store: rename deployment %s", id)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apierrors.New(apierrors.KindNotFound, "deployment not found")
	}
	return nil
}

// RemoveDeployment soft-deletes a deployment (spec §4.4).
func RemoveDeployment(ctx context.Context, q Querier, id string) error {
	res, err := q.Exec(`UPDATE deployment SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL`, time.Now(), id)
	if err != nil {
		return apierrors.WrapError(err, "store: remove deployment %s", id)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apierrors.New(apierrors.KindNotFound, "deployment not found")
	}
	return nil
}
