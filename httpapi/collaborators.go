package httpapi

import (
	"net/http"

	"github.com/yplabs-ltd/codepush-server/access"
	"github.com/yplabs-ltd/codepush-server/model"
	"github.com/yplabs-ltd/codepush-server/store"
)

func (s *Server) handleListCollaborators(w http.ResponseWriter, r *http.Request) {
	app, _, err := s.loadAppForCaller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]model.Collaborator{"collaborators": app.Collaborators})
}

func (s *Server) handleAddCollaborator(w http.ResponseWriter, r *http.Request) {
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
		return access.AddCollaborator(r.Context(), q, app.ID, email)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "ok"})
}

func (s *Server) handleRemoveCollaborator(w http.ResponseWriter, r *http.Request) {
	app, accountID, err := s.loadAppForCaller(r)
	if err != nil {
		writeError(w, err)
		return
	}

	email := routeVar(r, "email")
	err = s.db.WithTransaction(r.Context(), func(q store.Querier) error {
		target, err := store.GetAccountByEmail(r.Context(), q, email)
		if err != nil {
			return err
		}
		if err := access.RequireCollaboratorRemovable(*app, accountID, target.ID); err != nil {
			return err
		}
		return store.RemoveCollaborator(r.Context(), q, app.ID, target.ID)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
