package store

import (
	"github.com/go-gorp/gorp"

	"github.com/yplabs-ltd/codepush-server/apierrors"
	"github.com/yplabs-ltd/codepush-server/model"
	"github.com/yplabs-ltd/codepush-server/store/gorpmapping"
)

// Row types wrap the plain model.* entities the way the teacher wraps
// sdk.AccessToken as accesstoken.accessToken (accesstoken/gorp_model.go): gorp
// needs a named local type to hang PostGet/PostInsert hooks off of, and it
// lets this package control which aggregate fields get lazily populated.
type accountRow model.Account
type accessKeyRow model.AccessKey
type appRow model.App
type collaboratorRow model.Collaborator
type deploymentRow model.Deployment
type packageRow model.Package
type packageDiffRow model.PackageDiff
type metricRow model.Metric
type clientLabelRow model.ClientLabel

// PostGet loads the collaborator list for an app, the same "load the
// aggregate after the row comes back" shape as accessToken.PostGet loading
// groups.
func (a *appRow) PostGet(q gorp.SqlExecutor) error {
	var rows []struct {
		AccountID  string `db:"account_id"`
		Permission int    `db:"permission"`
		Email      string `db:"email"`
	}
	if _, err := q.Select(&rows, `
		SELECT collaborator.account_id, collaborator.permission, account.email
		FROM collaborator
		JOIN account ON account.id = collaborator.account_id
		WHERE collaborator.app_id = $1`, a.ID); err != nil {
		return apierrors.WrapError(err, "store: load collaborators for app %s", a.ID)
	}
	a.Collaborators = make([]model.Collaborator, 0, len(rows))
	for _, r := range rows {
		a.Collaborators = append(a.Collaborators, model.Collaborator{
			AppID:      a.ID,
			AccountID:  r.AccountID,
			Permission: model.Permission(r.Permission),
			Email:      r.Email,
		})
	}
	var names []string
	if _, err := q.Select(&names, `SELECT name FROM deployment WHERE app_id = $1 AND deleted_at IS NULL ORDER BY created_time`, a.ID); err != nil {
		return apierrors.WrapError(err, "store: load deployment names for app %s", a.ID)
	}
	a.DeploymentNames = names
	return nil
}

func init() {
	gorpmapping.Register(
		gorpmapping.New(accountRow{}, "account", false, "id"),
		gorpmapping.New(accessKeyRow{}, "access_key", false, "id"),
		gorpmapping.New(appRow{}, "app", false, "id"),
		gorpmapping.New(collaboratorRow{}, "collaborator", false, "app_id", "account_id"),
		gorpmapping.New(deploymentRow{}, "deployment", false, "id"),
		gorpmapping.New(packageRow{}, "package", false, "id"),
		gorpmapping.New(packageDiffRow{}, "package_diff", false, "id"),
		gorpmapping.New(metricRow{}, "metric", false, "deployment_key", "label", "type"),
		gorpmapping.New(clientLabelRow{}, "client_label", false, "deployment_key", "client_id"),
	)
}
