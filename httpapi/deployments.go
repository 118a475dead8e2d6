package httpapi

import (
	"fmt"
	"net/http"

	"github.com/yplabs-ltd/codepush-server/access"
	"github.com/yplabs-ltd/codepush-server/model"
	"github.com/yplabs-ltd/codepush-server/store"
)

func (s *Server) handleListDeployments(w http.ResponseWriter, r *http.Request) {
	app, _, err := s.loadAppForCaller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var deployments []model.Deployment
	err = s.db.Exec(func(q store.Querier) error {
		var err error
		deployments, err = store.ListDeploymentsForApp(r.Context(), q, app.ID)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]model.Deployment{"deployments": deployments})
}

func (s *Server) handleCreateDeployment(w http.ResponseWriter, r *http.Request) {
	app, accountID, err := s.loadAppForCaller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := access.RequirePermission(*app, accountID, model.PermissionCollaborator); err != nil {
		writeError(w, err)
		return
	}

	var body struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Name == "" {
		writeError(w, badRequest("name is required"))
		return
	}

	var d *model.Deployment
	err = s.db.WithTransaction(r.Context(), func(q store.Querier) error {
		var err error
		d, err = store.AddDeployment(r.Context(), q, app.ID, body.Name)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/apps/%s/deployments/%s", app.Name, d.Name))
	writeJSON(w, http.StatusCreated, map[string]*model.Deployment{"deployment": d})
}

func (s *Server) loadDeploymentForCaller(r *http.Request) (*model.App, *model.Deployment, string, error) {
	app, accountID, err := s.loadAppForCaller(r)
	if err != nil {
		return nil, nil, "", err
	}
	var d *model.Deployment
	err = s.db.Exec(func(q store.Querier) error {
		var err error
		d, err = store.GetDeploymentByName(r.Context(), q, app.ID, routeVar(r, "dep"))
		return err
	})
	return app, d, accountID, err
}

func (s *Server) handlePatchDeployment(w http.ResponseWriter, r *http.Request) {
	app, d, accountID, err := s.loadDeploymentForCaller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := access.RequirePermission(*app, accountID, model.PermissionOwner); err != nil {
		writeError(w, err)
		return
	}

	var body struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Name != "" {
		err = s.db.WithTransaction(r.Context(), func(q store.Querier) error {
			return store.RenameDeployment(r.Context(), q, d.ID, body.Name)
		})
		if err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDeleteDeployment(w http.ResponseWriter, r *http.Request) {
	app, d, accountID, err := s.loadDeploymentForCaller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := access.RequirePermission(*app, accountID, model.PermissionOwner); err != nil {
		writeError(w, err)
		return
	}

	err = s.db.WithTransaction(r.Context(), func(q store.Querier) error {
		return store.RemoveDeployment(r.Context(), q, d.ID)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleHistory serves GET /apps/:name/deployments/:dep/history.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	_, d, _, err := s.loadDeploymentForCaller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var history []model.Package
	err = s.db.Exec(func(q store.Querier) error {
		var err error
		history, err = store.ListPackageHistory(r.Context(), q, d.ID)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]model.Package{"history": history})
}
