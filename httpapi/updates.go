package httpapi

import (
	"net/http"
	"strconv"

	"github.com/yplabs-ltd/codepush-server/apierrors"
	"github.com/yplabs-ltd/codepush-server/model"
	"github.com/yplabs-ltd/codepush-server/resolver"
	"github.com/yplabs-ltd/codepush-server/store"
)

func queryToResolverQuery(r *http.Request) resolver.Query {
	q := r.URL.Query()
	isCompanion, _ := strconv.ParseBool(q.Get("isCompanion"))
	return resolver.Query{
		DeploymentKey:  q.Get("deploymentKey"),
		AppVersion:     q.Get("appVersion"),
		PackageHash:    q.Get("packageHash"),
		Label:          q.Get("label"),
		ClientUniqueID: q.Get("clientUniqueId"),
		IsCompanion:    isCompanion,
	}
}

// handleUpdateCheck serves GET /updateCheck. A NotFound deployment key is a
// 404; any other resolver error (e.g. a blob-store outage) degrades to a
// 200 {isAvailable:false} response rather than a 5xx, since client SDKs loop
// on failures and a 200-no-update preserves app stability (spec §5).
func (s *Server) handleUpdateCheck(w http.ResponseWriter, r *http.Request) {
	query := queryToResolverQuery(r)
	if query.DeploymentKey == "" || query.AppVersion == "" {
		writeError(w, badRequest("deploymentKey and appVersion are required"))
		return
	}

	info, err := s.resolver.Resolve(r.Context(), query)
	if err != nil {
		if apierrors.Is(err, apierrors.KindNotFound) {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]resolver.UpdateInfo{"updateInfo": {IsAvailable: false}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]resolver.UpdateInfo{"updateInfo": info})
}

// handleLegacyUpdateCheck serves GET /v0.1/public/codepush/update_check,
// returning the snake_case variant under the same NotFound-is-404,
// everything-else-degrades-to-200 rule as handleUpdateCheck.
func (s *Server) handleLegacyUpdateCheck(w http.ResponseWriter, r *http.Request) {
	query := queryToResolverQuery(r)
	info, err := s.resolver.Resolve(r.Context(), query)
	if err != nil {
		if apierrors.Is(err, apierrors.KindNotFound) {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]resolver.LegacyUpdateInfo{
			"update_info": {IsAvailable: false},
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]resolver.LegacyUpdateInfo{"update_info": resolver.ToLegacyJSON(info)})
}

type statusReport struct {
	DeploymentKey string `json:"deploymentKey"`
	Label         string `json:"label"`
	ClientUniqueID string `json:"clientUniqueId"`
	Status        string `json:"status"`
	PreviousDeploymentKey string `json:"previousDeploymentKey"`
	PreviousLabelOrAppVersion string `json:"previousLabelOrAppVersion"`
}

// handleReportStatusDeploy serves POST /reportStatus/deploy: the SDK's
// recordDeploymentStatus / recordDeployment call (spec §4.7).
func (s *Server) handleReportStatusDeploy(w http.ResponseWriter, r *http.Request) {
	var body statusReport
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.DeploymentKey == "" || body.Label == "" {
		writeError(w, badRequest("deploymentKey and label are required"))
		return
	}

	var err error
	switch model.DeploymentStatus(body.Status) {
	case model.DeploymentStatusSucceeded, model.DeploymentStatusFailed:
		err = s.counter.RecordDeploymentStatus(r.Context(), body.DeploymentKey, body.Label, body.ClientUniqueID, model.DeploymentStatus(body.Status))
	default:
		err = s.counter.RecordDeployment(r.Context(), body.DeploymentKey, body.Label, body.ClientUniqueID, body.PreviousDeploymentKey, body.PreviousLabelOrAppVersion)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReportStatusDownload serves POST /reportStatus/download.
func (s *Server) handleReportStatusDownload(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DeploymentKey string `json:"deploymentKey"`
		Label         string `json:"label"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.DeploymentKey == "" || body.Label == "" {
		writeError(w, badRequest("deploymentKey and label are required"))
		return
	}
	if err := s.counter.RecordDownload(r.Context(), body.DeploymentKey, body.Label); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) metricsDeploymentKey(r *http.Request, appName, depName string) (string, error) {
	var key string
	err := s.db.Exec(func(q store.Querier) error {
		app, err := store.GetAppByName(r.Context(), q, accountIDFromContext(r), appName)
		if err != nil {
			return err
		}
		d, err := store.GetDeploymentByName(r.Context(), q, app.ID, depName)
		if err != nil {
			return err
		}
		key = d.Key
		return nil
	})
	return key, err
}

// handleMetrics serves GET /apps/:name/deployments/:dep/metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	name, dep := routeVar(r, "name"), routeVar(r, "dep")
	key, err := s.metricsDeploymentKey(r, name, dep)
	if err != nil {
		writeError(w, err)
		return
	}
	m, err := s.counter.Get(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"metrics": m})
}
