package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/yplabs-ltd/codepush-server/apierrors"
	"github.com/yplabs-ltd/codepush-server/model"
)

// InsertAccessKey persists a new key.
func InsertAccessKey(ctx context.Context, q Querier, k *model.AccessKey) error {
	row := accessKeyRow(*k)
	if err := q.Insert(&row); err != nil {
		return apierrors.WrapError(err, "store: insert access key")
	}
	return nil
}

// ListAccessKeysByAccount returns every non-deleted key for an account,
// ordered by creation time. Callers must mask Name before returning these to
// a client (spec §4.8).
func ListAccessKeysByAccount(ctx context.Context, q Querier, accountID string) ([]model.AccessKey, error) {
	var rows []accessKeyRow
	if _, err := q.Select(&rows, `SELECT * FROM access_key WHERE account_id = $1 AND deleted_at IS NULL ORDER BY created_time`, accountID); err != nil {
		return nil, apierrors.WrapError(err, "store: list access keys for account %s", accountID)
	}
	out := make([]model.AccessKey, len(rows))
	for i, r := range rows {
		out[i] = model.AccessKey(r)
	}
	return out, nil
}

// GetAccessKeyByFriendlyName finds a key by its per-account-unique display
// name.
func GetAccessKeyByFriendlyName(ctx context.Context, q Querier, accountID, friendlyName string) (*model.AccessKey, error) {
	var row accessKeyRow
	err := q.SelectOne(&row, `SELECT * FROM access_key WHERE account_id = $1 AND friendly_name = $2 AND deleted_at IS NULL`, accountID, friendlyName)
	if err == sql.ErrNoRows {
		return nil, apierrors.New(apierrors.KindNotFound, "access key not found")
	}
	if err != nil {
		return nil, apierrors.WithStack(err)
	}
	k := model.AccessKey(row)
	return &k, nil
}

// UpdateAccessKey persists changes to an existing key (e.g. a new expiry).
func UpdateAccessKey(ctx context.Context, q Querier, k *model.AccessKey) error {
	row := accessKeyRow(*k)
	n, err := q.Update(&row)
	if err != nil {
		return apierrors.WithStack(err)
	}
	if n == 0 {
		return apierrors.New(apierrors.KindNotFound, "access key not found")
	}
	return nil
}

// RemoveAccessKey soft-deletes a key (spec §4.4: removeAccessKey sets
// deletedAt = now).
func RemoveAccessKey(ctx context.Context, q Querier, id string) error {
	res, err := q.Exec(`UPDATE access_key SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL`, time.Now(), id)
	if err != nil {
		return apierrors.WrapError(err, "store: remove access key %s", id)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apierrors.New(apierrors.KindNotFound, "access key not found")
	}
	return nil
}
