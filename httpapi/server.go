// Package httpapi is the thin HTTP adapter described in §6: it parses each
// request, calls exactly one engine method, and maps the typed error back to
// a status code via apierrors.ExtractHTTPError. No invariant from §3-§8 lives
// here — it is all enforced by the engine packages this adapter calls.
// Routing is github.com/gorilla/mux, grounded on the teacher's own
// dependency on it.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/yplabs-ltd/codepush-server/apierrors"
	"github.com/yplabs-ltd/codepush-server/blobstore"
	"github.com/yplabs-ltd/codepush-server/metrics"
	"github.com/yplabs-ltd/codepush-server/release"
	"github.com/yplabs-ltd/codepush-server/resolver"
	"github.com/yplabs-ltd/codepush-server/store"
)

// Server bundles the engine collaborators every handler needs.
type Server struct {
	db       *store.Store
	bs       *blobstore.Service
	engine   *release.Engine
	resolver *resolver.Service
	counter  *metrics.Counter
}

// NewServer constructs the HTTP adapter over already-wired engine
// components.
func NewServer(db *store.Store, bs *blobstore.Service, engine *release.Engine, resolverSvc *resolver.Service, counter *metrics.Counter) *Server {
	return &Server{db: db, bs: bs, engine: engine, resolver: resolverSvc, counter: counter}
}

// Router builds the route table from §6.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/updateCheck", s.handleUpdateCheck).Methods(http.MethodGet)
	r.HandleFunc("/v0.1/public/codepush/update_check", s.handleLegacyUpdateCheck).Methods(http.MethodGet)
	r.HandleFunc("/reportStatus/deploy", s.handleReportStatusDeploy).Methods(http.MethodPost)
	r.HandleFunc("/reportStatus/download", s.handleReportStatusDownload).Methods(http.MethodPost)

	authed := r.NewRoute().Subrouter()
	authed.Use(s.authMiddleware)

	authed.HandleFunc("/apps", s.handleListApps).Methods(http.MethodGet)
	authed.HandleFunc("/apps", s.handleCreateApp).Methods(http.MethodPost)
	authed.HandleFunc("/apps/{name}", s.handleGetApp).Methods(http.MethodGet)
	authed.HandleFunc("/apps/{name}", s.handlePatchApp).Methods(http.MethodPatch)
	authed.HandleFunc("/apps/{name}", s.handleDeleteApp).Methods(http.MethodDelete)
	authed.HandleFunc("/apps/{name}/transfer/{email}", s.handleTransferApp).Methods(http.MethodPost)
	authed.HandleFunc("/apps/{name}/collaborators", s.handleListCollaborators).Methods(http.MethodGet)
	authed.HandleFunc("/apps/{name}/collaborators/{email}", s.handleAddCollaborator).Methods(http.MethodPost)
	authed.HandleFunc("/apps/{name}/collaborators/{email}", s.handleRemoveCollaborator).Methods(http.MethodDelete)

	authed.HandleFunc("/apps/{name}/deployments", s.handleListDeployments).Methods(http.MethodGet)
	authed.HandleFunc("/apps/{name}/deployments", s.handleCreateDeployment).Methods(http.MethodPost)
	authed.HandleFunc("/apps/{name}/deployments/{dep}", s.handlePatchDeployment).Methods(http.MethodPatch)
	authed.HandleFunc("/apps/{name}/deployments/{dep}", s.handleDeleteDeployment).Methods(http.MethodDelete)
	authed.HandleFunc("/apps/{name}/deployments/{dep}/release", s.handleRelease).Methods(http.MethodPost)
	authed.HandleFunc("/apps/{name}/deployments/{src}/promote/{dst}", s.handlePromote).Methods(http.MethodPost)
	authed.HandleFunc("/apps/{name}/deployments/{dep}/rollback/{target}", s.handleRollback).Methods(http.MethodPost)
	authed.HandleFunc("/apps/{name}/deployments/{dep}/rollback", s.handleRollback).Methods(http.MethodPost)
	authed.HandleFunc("/apps/{name}/deployments/{dep}/metrics", s.handleMetrics).Methods(http.MethodGet)
	authed.HandleFunc("/apps/{name}/deployments/{dep}/history", s.handleHistory).Methods(http.MethodGet)

	authed.HandleFunc("/accessKeys", s.handleListAccessKeys).Methods(http.MethodGet)
	authed.HandleFunc("/accessKeys", s.handleCreateAccessKey).Methods(http.MethodPost)
	authed.HandleFunc("/accessKeys/{name}", s.handlePatchAccessKey).Methods(http.MethodPatch)
	authed.HandleFunc("/accessKeys/{name}", s.handleDeleteAccessKey).Methods(http.MethodDelete)

	return r
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	status, body := apierrors.ExtractHTTPError(err)
	writeJSON(w, status, body)
}
