package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/yplabs-ltd/codepush-server/access"
	"github.com/yplabs-ltd/codepush-server/model"
	"github.com/yplabs-ltd/codepush-server/release"
	"github.com/yplabs-ltd/codepush-server/store"
)

const maxReleaseBody = 200 << 20 // 200MiB held in memory while parsing; larger parts spill to temp files, the body size is not capped

type packageInfoBody struct {
	AppVersion  string `json:"appVersion"`
	Description string `json:"description"`
	IsMandatory bool   `json:"isMandatory"`
	IsDisabled  bool   `json:"isDisabled"`
	Rollout     *int   `json:"rollout"`
}

// handleRelease serves POST /apps/:name/deployments/:dep/release: a
// multipart body with a `package` ZIP part and a `packageInfo` JSON part
// (§6).
func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	app, d, accountID, err := s.loadDeploymentForCaller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := access.RequirePermission(*app, accountID, model.PermissionCollaborator); err != nil {
		writeError(w, err)
		return
	}

	if err := r.ParseMultipartForm(maxReleaseBody); err != nil {
		writeError(w, badRequest("malformed multipart body"))
		return
	}

	file, _, err := r.FormFile("package")
	if err != nil {
		writeError(w, badRequest("missing package part"))
		return
	}
	defer file.Close()
	bundle, err := io.ReadAll(file)
	if err != nil {
		writeError(w, badRequest("unable to read package part"))
		return
	}

	var info packageInfoBody
	if raw := r.FormValue("packageInfo"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &info); err != nil {
			writeError(w, badRequest("malformed packageInfo part"))
			return
		}
	}

	pkg, err := s.engine.CommitPackage(r.Context(), app.ID, d.ID, bundle, release.UploadInfo{
		AppVersion:  info.AppVersion,
		Description: info.Description,
		IsDisabled:  info.IsDisabled,
		IsMandatory: info.IsMandatory,
		Rollout:     info.Rollout,
		ReleasedBy:  accountID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]*model.Package{"package": pkg})
}

// handlePromote serves POST /apps/:name/deployments/:src/promote/:dst.
func (s *Server) handlePromote(w http.ResponseWriter, r *http.Request) {
	app, accountID, err := s.loadAppForCaller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := access.RequirePermission(*app, accountID, model.PermissionCollaborator); err != nil {
		writeError(w, err)
		return
	}

	var src, dst *model.Deployment
	err = s.db.Exec(func(q store.Querier) error {
		var err error
		src, err = store.GetDeploymentByName(r.Context(), q, app.ID, routeVar(r, "src"))
		if err != nil {
			return err
		}
		dst, err = store.GetDeploymentByName(r.Context(), q, app.ID, routeVar(r, "dst"))
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}

	var body struct {
		AppVersion  *string `json:"appVersion"`
		Description *string `json:"description"`
		IsMandatory *bool   `json:"isMandatory"`
		IsDisabled  *bool   `json:"isDisabled"`
		Rollout     *int    `json:"rollout"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body) // overrides are optional

	var overrides release.UploadInfo
	var set release.OverrideSet
	if body.Description != nil {
		overrides.Description = *body.Description
		set.Description = true
	}
	if body.IsMandatory != nil {
		overrides.IsMandatory = *body.IsMandatory
		set.IsMandatory = true
	}
	if body.IsDisabled != nil {
		overrides.IsDisabled = *body.IsDisabled
		set.IsDisabled = true
	}
	if body.Rollout != nil {
		overrides.Rollout = body.Rollout
		set.Rollout = true
	}
	overrides.ReleasedBy = accountID

	pkg, err := s.engine.Promote(r.Context(), src, dst, overrides, set)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]*model.Package{"package": pkg})
}

// handleRollback serves POST /apps/:name/deployments/:dep/rollback[/:target].
func (s *Server) handleRollback(w http.ResponseWriter, r *http.Request) {
	app, d, accountID, err := s.loadDeploymentForCaller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := access.RequirePermission(*app, accountID, model.PermissionCollaborator); err != nil {
		writeError(w, err)
		return
	}

	pkg, err := s.engine.Rollback(r.Context(), d.ID, routeVar(r, "target"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]*model.Package{"package": pkg})
}
