package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/yplabs-ltd/codepush-server/apierrors"
	"github.com/yplabs-ltd/codepush-server/idutil"
	"github.com/yplabs-ltd/codepush-server/model"
)

// GetAccountByID loads a non-deleted account by id.
func GetAccountByID(ctx context.Context, q Querier, id string) (*model.Account, error) {
	var row accountRow
	err := q.SelectOne(&row, `SELECT * FROM account WHERE id = $1 AND deleted_at IS NULL`, id)
	if err == sql.ErrNoRows {
		return nil, apierrors.New(apierrors.KindNotFound, "account not found")
	}
	if err != nil {
		return nil, apierrors.WithStack(err)
	}
	acc := model.Account(row)
	return &acc, nil
}

// GetAccountByEmail looks up an account by case-folded email without
// creating one, for routes (e.g. removing a collaborator) that must fail
// NotFound rather than provision a stranger's account.
func GetAccountByEmail(ctx context.Context, q Querier, email string) (*model.Account, error) {
	var row accountRow
	err := q.SelectOne(&row, `SELECT * FROM account WHERE email = $1 AND deleted_at IS NULL`, strings.ToLower(email))
	if err == sql.ErrNoRows {
		return nil, apierrors.New(apierrors.KindNotFound, "account not found")
	}
	if err != nil {
		return nil, apierrors.WithStack(err)
	}
	acc := model.Account(row)
	return &acc, nil
}

// GetOrCreateAccountByEmail looks up an account by case-folded email,
// creating one if absent. It is how transferApp upserts a target account
// (spec §4.4) and how the (out-of-scope) external auth collaborator would
// provision a first-seen account.
func GetOrCreateAccountByEmail(ctx context.Context, q Querier, email, name string) (*model.Account, error) {
	folded := strings.ToLower(email)
	var row accountRow
	err := q.SelectOne(&row, `SELECT * FROM account WHERE email = $1 AND deleted_at IS NULL`, folded)
	if err == nil {
		acc := model.Account(row)
		return &acc, nil
	}
	if err != sql.ErrNoRows {
		return nil, apierrors.WithStack(err)
	}

	acc := model.Account{
		ID:          idutil.NewID(),
		Email:       folded,
		Name:        name,
		CreatedTime: time.Now(),
	}
	newRow := accountRow(acc)
	if err := q.Insert(&newRow); err != nil {
		return nil, apierrors.WithStack(err)
	}
	return &acc, nil
}

// GetAccountIDFromAccessKey resolves the account id that owns the presented
// token, or Expired/NotFound, per spec §4.4.
func GetAccountIDFromAccessKey(ctx context.Context, q Querier, token string) (string, error) {
	var row accessKeyRow
	err := q.SelectOne(&row, `SELECT * FROM access_key WHERE name = $1 AND deleted_at IS NULL`, token)
	if err == sql.ErrNoRows {
		return "", apierrors.New(apierrors.KindNotFound, "access key not found")
	}
	if err != nil {
		return "", apierrors.WithStack(err)
	}
	if time.Now().After(row.Expires) {
		return "", apierrors.New(apierrors.KindExpired, "access key has expired")
	}
	return row.AccountID, nil
}
