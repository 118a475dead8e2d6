package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yplabs-ltd/codepush-server/apierrors"
	"github.com/yplabs-ltd/codepush-server/model"
)

func appWith(collabs ...model.Collaborator) model.App {
	return model.App{ID: "app1", Collaborators: collabs}
}

func TestRequirePermissionOwnerSatisfiesCollaboratorRequirement(t *testing.T) {
	app := appWith(model.Collaborator{AccountID: "u1", Permission: model.PermissionOwner})
	assert.NoError(t, RequirePermission(app, "u1", model.PermissionCollaborator))
}

func TestRequirePermissionCollaboratorCannotActAsOwner(t *testing.T) {
	app := appWith(model.Collaborator{AccountID: "u1", Permission: model.PermissionCollaborator})
	err := RequirePermission(app, "u1", model.PermissionOwner)
	assert.True(t, apierrors.Is(err, apierrors.KindForbidden))
}

func TestRequirePermissionNonCollaboratorForbidden(t *testing.T) {
	app := appWith(model.Collaborator{AccountID: "u1", Permission: model.PermissionOwner})
	err := RequirePermission(app, "stranger", model.PermissionCollaborator)
	assert.True(t, apierrors.Is(err, apierrors.KindForbidden))
}

func TestRequireCollaboratorRemovableSelfRemovalAlwaysAllowed(t *testing.T) {
	app := appWith(
		model.Collaborator{AccountID: "owner", Permission: model.PermissionOwner},
		model.Collaborator{AccountID: "u1", Permission: model.PermissionCollaborator},
	)
	assert.NoError(t, RequireCollaboratorRemovable(app, "u1", "u1"))
}

func TestRequireCollaboratorRemovableOwnerNeverRemovable(t *testing.T) {
	app := appWith(model.Collaborator{AccountID: "owner", Permission: model.PermissionOwner})
	err := RequireCollaboratorRemovable(app, "owner", "owner")
	assert.True(t, apierrors.Is(err, apierrors.KindForbidden))
}

func TestRequireCollaboratorRemovableRequiresOwnerToRemoveOthers(t *testing.T) {
	app := appWith(
		model.Collaborator{AccountID: "owner", Permission: model.PermissionOwner},
		model.Collaborator{AccountID: "u1", Permission: model.PermissionCollaborator},
		model.Collaborator{AccountID: "u2", Permission: model.PermissionCollaborator},
	)
	err := RequireCollaboratorRemovable(app, "u1", "u2")
	assert.True(t, apierrors.Is(err, apierrors.KindForbidden))
	assert.NoError(t, RequireCollaboratorRemovable(app, "owner", "u2"))
}

func TestMaskKeysRedactsName(t *testing.T) {
	keys := []model.AccessKey{{Name: "ck_secret", FriendlyName: "laptop"}}
	masked := MaskKeys(keys)
	assert.Equal(t, "(hidden)", masked[0].Name)
	assert.Equal(t, "laptop", masked[0].FriendlyName)
}
