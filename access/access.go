// Package access implements component C8: collaborator permission checks and
// access-key authentication. Grounded on the teacher's
// engine/api/group/group_permission.go CheckGroupPermission shape — walking
// an in-memory membership list rather than issuing a query per check.
package access

import (
	"context"
	"time"

	"github.com/yplabs-ltd/codepush-server/apierrors"
	"github.com/yplabs-ltd/codepush-server/model"
	"github.com/yplabs-ltd/codepush-server/store"
)

// RequirePermission throws Forbidden unless accountID appears in app's
// collaborator list with permission >= required (Owner >= Collaborator).
func RequirePermission(app model.App, accountID string, required model.Permission) error {
	for _, c := range app.Collaborators {
		if c.AccountID == accountID {
			if c.Permission >= required {
				return nil
			}
			return apierrors.New(apierrors.KindForbidden, "insufficient permission on this app")
		}
	}
	return apierrors.New(apierrors.KindForbidden, "not a collaborator on this app")
}

// CollaboratorOf returns accountID's membership on app, if any.
func CollaboratorOf(app model.App, accountID string) (model.Collaborator, bool) {
	for _, c := range app.Collaborators {
		if c.AccountID == accountID {
			return c, true
		}
	}
	return model.Collaborator{}, false
}

// RequireCollaboratorRemovable enforces the self-removal rule (spec §4.8): a
// collaborator may always remove themselves; nobody may remove the Owner.
func RequireCollaboratorRemovable(app model.App, requesterID, targetID string) error {
	target, ok := CollaboratorOf(app, targetID)
	if !ok {
		return apierrors.New(apierrors.KindNotFound, "not a collaborator on this app")
	}
	if target.Permission == model.PermissionOwner {
		return apierrors.New(apierrors.KindForbidden, "the app owner cannot be removed")
	}
	if requesterID == targetID {
		return nil
	}
	return RequirePermission(app, requesterID, model.PermissionOwner)
}

// AddCollaborator invites an account by email (case-folded), resolving or
// creating the target account, then granting Collaborator permission — the
// supplemented operation SPEC_FULL §9 calls out, reusing transferApp's
// lookup-or-create shape for its own end.
func AddCollaborator(ctx context.Context, q store.Querier, appID, email string) error {
	target, err := store.GetOrCreateAccountByEmail(ctx, q, email, email)
	if err != nil {
		return err
	}
	return store.AddCollaborator(ctx, q, appID, target.ID, model.PermissionCollaborator)
}

// AuthenticateAccessKey resolves the account id that owns the presented
// token, or Expired/NotFound (spec §4.8: "reject if expired").
func AuthenticateAccessKey(ctx context.Context, q store.Querier, token string) (string, error) {
	accountID, err := store.GetAccountIDFromAccessKey(ctx, q, token)
	if err != nil {
		return "", err
	}
	return accountID, nil
}

// MaskKeys returns a copy of keys with every Name field redacted, the
// required shape for any access-key listing (spec §4.8).
func MaskKeys(keys []model.AccessKey) []model.AccessKey {
	out := make([]model.AccessKey, len(keys))
	for i, k := range keys {
		out[i] = k.Masked()
	}
	return out
}

// IsExpired reports whether an access key has passed its expiry.
func IsExpired(k model.AccessKey) bool {
	return time.Now().After(k.Expires)
}
