// Package model holds the plain entity types described in the data model: the
// things stored in Postgres and passed between the engine packages. It mirrors the
// teacher's flat sdk package of plain structs — entities carry db and json tags and
// no behavior beyond small predicates.
package model

import (
	"time"
)

// Permission is a collaborator's role on an App.
type Permission int

const (
	// PermissionCollaborator can release, promote and rollback.
	PermissionCollaborator Permission = iota
	// PermissionOwner can additionally manage collaborators, rename, and delete.
	PermissionOwner
)

// ReleaseMethod records how a Package came to exist.
type ReleaseMethod string

const (
	ReleaseMethodUpload   ReleaseMethod = "Upload"
	ReleaseMethodPromote  ReleaseMethod = "Promote"
	ReleaseMethodRollback ReleaseMethod = "Rollback"
)

// MetricType is one of the four deployment metric counters.
type MetricType string

const (
	MetricActive               MetricType = "active"
	MetricDownloaded           MetricType = "downloaded"
	MetricDeploymentSucceeded  MetricType = "deployment_succeeded"
	MetricDeploymentFailed     MetricType = "deployment_failed"
)

// DeploymentStatus is what a client reports after attempting an update.
type DeploymentStatus string

const (
	DeploymentStatusSucceeded DeploymentStatus = "DeploymentSucceeded"
	DeploymentStatusFailed    DeploymentStatus = "DeploymentFailed"
)

// Account is created and owned by the external auth collaborator; the core only
// ever attaches a new linked provider to it.
type Account struct {
	ID              string     `db:"id" json:"id"`
	Email           string     `db:"email" json:"email"`
	Name            string     `db:"name" json:"name"`
	LinkedProviders []string   `db:"-" json:"linkedProviders,omitempty"`
	CreatedTime     time.Time  `db:"created_time" json:"createdTime"`
	DeletedAt       *time.Time `db:"deleted_at" json:"-"`
}

// AccessKey authenticates a single account. Name is the secret opaque token and
// must be masked ("(hidden)") in every listing.
type AccessKey struct {
	ID           string     `db:"id" json:"id"`
	AccountID    string     `db:"account_id" json:"accountId"`
	Name         string     `db:"name" json:"name"`
	FriendlyName string     `db:"friendly_name" json:"friendlyName"`
	CreatedBy    string     `db:"created_by" json:"createdBy"`
	CreatedTime  time.Time  `db:"created_time" json:"createdTime"`
	Expires      time.Time  `db:"expires" json:"expires"`
	IsSession    bool       `db:"is_session" json:"isSession"`
	DeletedAt    *time.Time `db:"deleted_at" json:"-"`
}

// Masked returns a copy of the key with Name redacted, for listings.
func (a AccessKey) Masked() AccessKey {
	a.Name = "(hidden)"
	return a
}

// App groups deployments under collaborators, exactly one of whom is Owner.
type App struct {
	ID          string         `db:"id" json:"id"`
	Name        string         `db:"name" json:"name"`
	CreatedTime time.Time      `db:"created_time" json:"createdTime"`
	DeletedAt   *time.Time     `db:"deleted_at" json:"-"`
	// aggregates, populated by the store layer
	Collaborators   []Collaborator `db:"-" json:"collaborators,omitempty"`
	DeploymentNames []string       `db:"-" json:"deployments,omitempty"`
}

// Owner returns the app's single Owner collaborator, or false if none is loaded.
func (a App) Owner() (Collaborator, bool) {
	for _, c := range a.Collaborators {
		if c.Permission == PermissionOwner {
			return c, true
		}
	}
	return Collaborator{}, false
}

// Collaborator is a (appId, accountId) membership row.
type Collaborator struct {
	AppID      string     `db:"app_id" json:"-"`
	AccountID  string     `db:"account_id" json:"accountId"`
	Email      string     `db:"-" json:"email,omitempty"`
	Permission Permission `db:"permission" json:"permission"`
}

// Deployment is a named channel within an app; Key is the public identifier
// client SDKs present.
type Deployment struct {
	ID          string     `db:"id" json:"id"`
	AppID       string     `db:"app_id" json:"-"`
	Name        string     `db:"name" json:"name"`
	Key         string     `db:"key" json:"key"`
	CreatedTime time.Time  `db:"created_time" json:"createdTime"`
	DeletedAt   *time.Time `db:"deleted_at" json:"-"`
}

// Package is a single release within a deployment's history.
type Package struct {
	ID                  string        `db:"id" json:"id"`
	DeploymentID        string        `db:"deployment_id" json:"-"`
	Label               string        `db:"label" json:"label"`
	AppVersion          string        `db:"app_version" json:"appVersion"`
	Description         string        `db:"description" json:"description"`
	IsDisabled          bool          `db:"is_disabled" json:"isDisabled"`
	IsMandatory         bool          `db:"is_mandatory" json:"isMandatory"`
	Rollout             *int          `db:"rollout" json:"rollout,omitempty"`
	Size                int64         `db:"size" json:"size"`
	PackageHash         string        `db:"package_hash" json:"packageHash"`
	BlobPath            string        `db:"blob_path" json:"-"`
	ManifestBlobPath    string        `db:"manifest_blob_path" json:"-"`
	ReleaseMethod       ReleaseMethod `db:"release_method" json:"releaseMethod"`
	OriginalLabel       string        `db:"original_label" json:"originalLabel,omitempty"`
	OriginalDeployment  string        `db:"original_deployment" json:"originalDeployment,omitempty"`
	ReleasedBy          string        `db:"released_by" json:"releasedBy,omitempty"`
	UploadTime          time.Time     `db:"upload_time" json:"uploadTime"`
	DeletedAt           *time.Time    `db:"deleted_at" json:"-"`
}

// IsRolloutComplete reports whether this release has finished its rollout: nil
// or 100 both count as "complete". The release engine's P3 check does not use
// it; that check also treats a rollout of 0 as not in progress.
func (p Package) IsRolloutComplete() bool {
	return p.Rollout == nil || *p.Rollout >= 100
}

// PackageDiff is a binary-diff archive from an older package's hash to this one.
type PackageDiff struct {
	ID                string `db:"id" json:"-"`
	PackageID         string `db:"package_id" json:"-"`
	SourcePackageHash string `db:"source_package_hash" json:"-"`
	Size              int64  `db:"size" json:"size"`
	BlobPath          string `db:"blob_path" json:"-"`
}

// Metric is one (deploymentKey, label, type) counter.
type Metric struct {
	DeploymentKey string     `db:"deployment_key" json:"-"`
	Label         string     `db:"label" json:"-"`
	Type          MetricType `db:"type" json:"-"`
	Count         int64      `db:"count" json:"count"`
}

// ClientLabel records which label a device currently runs, so the metrics
// counter can decrement the old "active" count on rollover.
type ClientLabel struct {
	DeploymentKey string `db:"deployment_key" json:"-"`
	ClientID      string `db:"client_id" json:"-"`
	Label         string `db:"label" json:"label"`
}

// DeploymentMetrics is the per-label aggregation returned by metric reads.
type DeploymentMetrics map[string]LabelMetrics

// LabelMetrics is one label's aggregated counters.
type LabelMetrics struct {
	Active    int64 `json:"active"`
	Downloads int64 `json:"downloads"`
	Installed int64 `json:"installed"`
	Failed    int64 `json:"failed"`
}
