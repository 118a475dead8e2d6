package store

import (
	"context"
	"database/sql"

	"github.com/yplabs-ltd/codepush-server/apierrors"
	"github.com/yplabs-ltd/codepush-server/model"
)

// GetClientLabel returns the label a device last reported running, or nil if
// it has never reported (spec §4.7: decrementing the old label's active
// count needs to know what that label was).
func GetClientLabel(ctx context.Context, q Querier, deploymentKey, clientID string) (*model.ClientLabel, error) {
	var row clientLabelRow
	err := q.SelectOne(&row, `SELECT * FROM client_label WHERE deployment_key = $1 AND client_id = $2`, deploymentKey, clientID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apierrors.WithStack(err)
	}
	cl := model.ClientLabel(row)
	return &cl, nil
}

// SetClientLabel upserts the label a device currently runs.
func SetClientLabel(ctx context.Context, q Querier, deploymentKey, clientID, label string) error {
	_, err := q.Exec(`
		INSERT INTO client_label (deployment_key, client_id, label) VALUES ($1, $2, $3)
		ON CONFLICT (deployment_key, client_id) DO UPDATE SET label = EXCLUDED.label`,
		deploymentKey, clientID, label)
	if err != nil {
		return apierrors.WrapError(err, "store: set client label for %s/%s", deploymentKey, clientID)
	}
	return nil
}
