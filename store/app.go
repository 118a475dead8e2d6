package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/yplabs-ltd/codepush-server/apierrors"
	"github.com/yplabs-ltd/codepush-server/idutil"
	"github.com/yplabs-ltd/codepush-server/model"
)

// GetAppByName loads a non-deleted app owned (via collaborator membership) by
// the given account, with collaborators and deployment names populated.
func GetAppByName(ctx context.Context, q Querier, accountID, name string) (*model.App, error) {
	var row appRow
	err := q.SelectOne(&row, `
		SELECT app.* FROM app
		JOIN collaborator ON collaborator.app_id = app.id
		WHERE collaborator.account_id = $1 AND app.name = $2 AND app.deleted_at IS NULL`, accountID, name)
	if err == sql.ErrNoRows {
		return nil, apierrors.New(apierrors.KindNotFound, "app not found")
	}
	if err != nil {
		return nil, apierrors.WithStack(err)
	}
	if err := row.PostGet(q); err != nil {
		return nil, err
	}
	app := model.App(row)
	return &app, nil
}

// GetAppByID loads a non-deleted app by id, with aggregates populated.
func GetAppByID(ctx context.Context, q Querier, id string) (*model.App, error) {
	var row appRow
	err := q.SelectOne(&row, `SELECT * FROM app WHERE id = $1 AND deleted_at IS NULL`, id)
	if err == sql.ErrNoRows {
		return nil, apierrors.New(apierrors.KindNotFound, "app not found")
	}
	if err != nil {
		return nil, apierrors.WithStack(err)
	}
	if err := row.PostGet(q); err != nil {
		return nil, err
	}
	app := model.App(row)
	return &app, nil
}

// ListAppsForAccount returns every non-deleted app the account collaborates
// on.
func ListAppsForAccount(ctx context.Context, q Querier, accountID string) ([]model.App, error) {
	var ids []string
	if _, err := q.Select(&ids, `
		SELECT app.id FROM app
		JOIN collaborator ON collaborator.app_id = app.id
		WHERE collaborator.account_id = $1 AND app.deleted_at IS NULL
		ORDER BY app.created_time`, accountID); err != nil {
		return nil, apierrors.WrapError(err, "store: list apps for account %s", accountID)
	}
	apps := make([]model.App, 0, len(ids))
	for _, id := range ids {
		app, err := GetAppByID(ctx, q, id)
		if err != nil {
			return nil, err
		}
		apps = append(apps, *app)
	}
	return apps, nil
}

// AddApp creates the app and its single Owner collaborator row, maintaining
// invariant O1 (exactly one Owner at all times). App names are unique per
// owning account.
func AddApp(ctx context.Context, q Querier, accountID, name string) (*model.App, error) {
	count, err := q.SelectInt(`
		SELECT count(1) FROM app
		JOIN collaborator ON collaborator.app_id = app.id
		WHERE collaborator.account_id = $1 AND app.name = $2 AND app.deleted_at IS NULL`, accountID, name)
	if err != nil {
		return nil, apierrors.WithStack(err)
	}
	if count > 0 {
		return nil, apierrors.Newf(apierrors.KindAlreadyExists, "app %q already exists", name)
	}

	app := model.App{ID: idutil.NewID(), Name: name, CreatedTime: time.Now()}
	row := appRow(app)
	if err := q.Insert(&row); err != nil {
		return nil, apierrors.WithStack(err)
	}
	owner := collaboratorRow{AppID: app.ID, AccountID: accountID, Permission: model.PermissionOwner}
	if err := q.Insert(&owner); err != nil {
		return nil, apierrors.WithStack(err)
	}
	app.Collaborators = []model.Collaborator{model.Collaborator(owner)}
	return &app, nil
}

// TransferApp demotes the current Owner to Collaborator and upserts the
// target email as the new Owner, preserving O1. Must run inside a
// transaction (spec §4.4, §5).
func TransferApp(ctx context.Context, q Querier, fromAccountID, appID, targetEmail string) error {
	target, err := GetOrCreateAccountByEmail(ctx, q, targetEmail, targetEmail)
	if err != nil {
		return err
	}

	if _, err := q.Exec(`UPDATE collaborator SET permission = $1 WHERE app_id = $2 AND account_id = $3 AND permission = $4`,
		model.PermissionCollaborator, appID, fromAccountID, model.PermissionOwner); err != nil {
		return apierrors.WrapError(err, "store: demote current owner of app %s", appID)
	}

	if _, err := q.Exec(`
		INSERT INTO collaborator (app_id, account_id, permission) VALUES ($1, $2, $3)
		ON CONFLICT (app_id, account_id) DO UPDATE SET permission = EXCLUDED.permission`,
		appID, target.ID, model.PermissionOwner); err != nil {
		return apierrors.WrapError(err, "store: upsert new owner of app %s", appID)
	}
	return nil
}

// AddCollaborator inserts (or re-activates) a collaborator membership.
func AddCollaborator(ctx context.Context, q Querier, appID, accountID string, permission model.Permission) error {
	if _, err := q.Exec(`
		INSERT INTO collaborator (app_id, account_id, permission) VALUES ($1, $2, $3)
		ON CONFLICT (app_id, account_id) DO UPDATE SET permission = EXCLUDED.permission`,
		appID, accountID, permission); err != nil {
		return apierrors.WrapError(err, "store: add collaborator %s to app %s", accountID, appID)
	}
	return nil
}

// RemoveCollaborator deletes a membership row. Callers enforce "the Owner may
// never be removed" (spec §4.8) before calling this.
func RemoveCollaborator(ctx context.Context, q Querier, appID, accountID string) error {
	if _, err := q.Exec(`DELETE FROM collaborator WHERE app_id = $1 AND account_id = $2`, appID, accountID); err != nil {
		return apierrors.WrapError(err, "store: remove collaborator %s from app %s", accountID, appID)
	}
	return nil
}

// RenameApp renames an app, the PATCH /apps/:name operation §6 lists.
func RenameApp(ctx context.Context, q Querier, id, newName string) error {
	res, err := q.Exec(`UPDATE app SET name = $1 WHERE id = $2 AND deleted_at IS NULL`, newName, id)
	if err != nil {
		return apierrors.WrapError(err, "store: rename app %s", id)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apierrors.New(apierrors.KindNotFound, "app not found")
	}
	return nil
}

// RemoveApp soft-deletes an app (spec §4.4).
func RemoveApp(ctx context.Context, q Querier, id string) error {
	res, err := q.Exec(`UPDATE app SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL`, time.Now(), id)
	if err != nil {
		return apierrors.WrapError(err, "store: remove app %s", id)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apierrors.New(apierrors.KindNotFound, "app not found")
	}
	return nil
}
