package httpapi

import (
	"fmt"
	"net/http"

	"github.com/yplabs-ltd/codepush-server/access"
	"github.com/yplabs-ltd/codepush-server/model"
	"github.com/yplabs-ltd/codepush-server/store"
)

func (s *Server) handleListApps(w http.ResponseWriter, r *http.Request) {
	var apps []model.App
	err := s.db.Exec(func(q store.Querier) error {
		var err error
		apps, err = store.ListAppsForAccount(r.Context(), q, accountIDFromContext(r))
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]model.App{"apps": apps})
}

func (s *Server) handleCreateApp(w http.ResponseWriter, r *http.Request) {
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

	var app *model.App
	err := s.db.WithTransaction(r.Context(), func(q store.Querier) error {
		var err error
		app, err = store.AddApp(r.Context(), q, accountIDFromContext(r), body.Name)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/apps/%s", app.Name))
	writeJSON(w, http.StatusCreated, map[string]*model.App{"app": app})
}

func (s *Server) loadAppForCaller(r *http.Request) (*model.App, string, error) {
	accountID := accountIDFromContext(r)
	var app *model.App
	err := s.db.Exec(func(q store.Querier) error {
		var err error
		app, err = store.GetAppByName(r.Context(), q, accountID, routeVar(r, "name"))
		return err
	})
	return app, accountID, err
}

func (s *Server) handleGetApp(w http.ResponseWriter, r *http.Request) {
	app, _, err := s.loadAppForCaller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]*model.App{"app": app})
}

func (s *Server) handlePatchApp(w http.ResponseWriter, r *http.Request) {
	app, accountID, err := s.loadAppForCaller(r)
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

	err = s.db.WithTransaction(r.Context(), func(q store.Querier) error {
		if body.Name != "" {
			return store.RenameApp(r.Context(), q, app.ID, body.Name)
		}
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDeleteApp(w http.ResponseWriter, r *http.Request) {
	app, accountID, err := s.loadAppForCaller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := access.RequirePermission(*app, accountID, model.PermissionOwner); err != nil {
		writeError(w, err)
		return
	}

	err = s.db.WithTransaction(r.Context(), func(q store.Querier) error {
		return store.RemoveApp(r.Context(), q, app.ID)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTransferApp(w http.ResponseWriter, r *http.Request) {
	app, accountID, err := s.loadAppForCaller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := access.RequirePermission(*app, accountID, model.PermissionOwner); err != nil {
		writeError(w, err)
		return
	}

	email := routeVar(r, "email")
	err = s.db.WithTransaction(r.Context(), func(q store.Querier) error {
		return store.TransferApp(r.Context(), q, accountID, app.ID, email)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "ok"})
}
