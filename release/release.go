// Package release implements component C5, the release engine: the
// transactional operations that create and mutate a deployment's package
// history (upload, promote, rollback, patch). Each public operation assumes
// its caller already ran the permission check from component C8.
package release

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/yplabs-ltd/codepush-server/apierrors"
	"github.com/yplabs-ltd/codepush-server/blobstore"
	"github.com/yplabs-ltd/codepush-server/idutil"
	"github.com/yplabs-ltd/codepush-server/manifest"
	"github.com/yplabs-ltd/codepush-server/model"
	"github.com/yplabs-ltd/codepush-server/store"
)

// maxDiffCandidates bounds how many prior matching-version releases get a
// diff computed against the newly committed package (spec §4.5 step 7).
const maxDiffCandidates = 5

// Engine bundles the collaborators a release operation needs: the relational
// store and the blob service. Constructed once in cmd/codepush-server/main.go
// and injected, per spec §9's "ambient singletons become explicit
// dependencies".
type Engine struct {
	db *store.Store
	bs *blobstore.Service
}

// NewEngine constructs a release Engine.
func NewEngine(db *store.Store, bs *blobstore.Service) *Engine {
	return &Engine{db: db, bs: bs}
}

// UploadInfo carries the client-supplied release metadata for CommitPackage.
type UploadInfo struct {
	AppVersion  string
	Description string
	IsDisabled  bool
	IsMandatory bool
	Rollout     *int
	ReleasedBy  string
}

func requireNoInFlightRollout(latest *model.Package) error {
	if latest == nil {
		return nil
	}
	if latest.Rollout != nil && *latest.Rollout > 0 && *latest.Rollout < 100 && !latest.IsDisabled {
		return apierrors.New(apierrors.KindConflict, "a release with an in-progress rollout already exists; finish or disable it first")
	}
	return nil
}

// CommitPackage uploads a new release into a deployment (spec §4.5, "upload").
func (e *Engine) CommitPackage(ctx context.Context, appID, deploymentID string, bundle []byte, info UploadInfo) (*model.Package, error) {
	var created *model.Package

	err := e.db.WithTransaction(ctx, func(q store.Querier) error {
		latest, err := store.LockLatestPackage(ctx, q, deploymentID)
		if err != nil {
			return err
		}
		if err := requireNoInFlightRollout(latest); err != nil {
			return err
		}

		m, err := manifest.Generate(bundle)
		if err != nil {
			return apierrors.WrapError(err, "release: generate manifest")
		}
		packageHash, err := manifest.PackageHash(m)
		if err != nil {
			return apierrors.WrapError(err, "release: compute package hash")
		}
		if latest != nil && latest.PackageHash == packageHash {
			return apierrors.New(apierrors.KindAlreadyExists, "this package is identical to the current release")
		}

		label, err := store.NextLabel(ctx, q, deploymentID)
		if err != nil {
			return err
		}

		id := idutil.NewID()
		blobPath := fmt.Sprintf("apps/%s/deployments/%s/%s.zip", appID, deploymentID, id)
		if _, err := e.bs.AddBlob(ctx, blobPath, bytes.NewReader(bundle), int64(len(bundle))); err != nil {
			return err
		}

		manifestPath := ""
		if len(m) > 0 {
			manifestBytes, err := json.Marshal(m)
			if err != nil {
				return apierrors.WrapError(err, "release: marshal manifest")
			}
			manifestPath = fmt.Sprintf("apps/%s/deployments/%s/%s-manifest.json", appID, deploymentID, id)
			if _, err := e.bs.AddBlob(ctx, manifestPath, bytes.NewReader(manifestBytes), int64(len(manifestBytes))); err != nil {
				return err
			}
		}

		p := model.Package{
			ID:               id,
			DeploymentID:     deploymentID,
			Label:            label,
			AppVersion:       info.AppVersion,
			Description:      info.Description,
			IsDisabled:       info.IsDisabled,
			IsMandatory:      info.IsMandatory,
			Rollout:          info.Rollout,
			Size:             int64(len(bundle)),
			PackageHash:      packageHash,
			BlobPath:         blobPath,
			ManifestBlobPath: manifestPath,
			ReleaseMethod:    model.ReleaseMethodUpload,
			ReleasedBy:       info.ReleasedBy,
			UploadTime:       time.Now(),
		}
		if err := store.InsertPackage(ctx, q, &p); err != nil {
			return err
		}

		if err := e.generateDiffs(ctx, q, &p, bundle, m); err != nil {
			return err
		}

		created = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// generateDiffs computes binary diffs from the new package's bundle against
// up to maxDiffCandidates prior releases sharing a compatible appVersion
// (spec §4.5 step 7, §4.3's diffing policy).
func (e *Engine) generateDiffs(ctx context.Context, q store.Querier, dst *model.Package, bundle []byte, newManifest manifest.Manifest) error {
	history, err := store.ListPackageHistory(ctx, q, dst.DeploymentID)
	if err != nil {
		return err
	}

	candidates := 0
	for i := len(history) - 1; i >= 0 && candidates < maxDiffCandidates; i-- {
		src := history[i]
		if src.ID == dst.ID {
			continue
		}
		if !idutil.MutuallySatisfying(src.AppVersion, dst.AppVersion) {
			continue
		}
		candidates++

		rc, err := e.bs.GetBlob(ctx, src.BlobPath)
		if err != nil {
			continue
		}
		srcBytes, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		srcManifest, err := manifest.Generate(srcBytes)
		if err != nil {
			continue
		}

		diff := manifest.DiffManifests(srcManifest, newManifest)
		archive, err := manifest.BuildDiffArchive(bundle, diff)
		if err != nil {
			continue
		}

		diffPath := fmt.Sprintf("apps/%s/diffs/%s-from-%s.zip", dst.DeploymentID, dst.ID, src.PackageHash)
		if _, err := e.bs.AddBlob(ctx, diffPath, bytes.NewReader(archive), int64(len(archive))); err != nil {
			return err
		}

		pd := model.PackageDiff{
			PackageID:         dst.ID,
			SourcePackageHash: src.PackageHash,
			Size:              int64(len(archive)),
			BlobPath:          diffPath,
		}
		if err := store.InsertPackageDiff(ctx, q, &pd); err != nil {
			return err
		}
	}
	return nil
}

// Promote creates a new release in dst that reuses src's bundle by reference
// (spec §4.5, "promote").
func (e *Engine) Promote(ctx context.Context, src, dst *model.Deployment, overrides UploadInfo, overrideSet OverrideSet) (*model.Package, error) {
	var created *model.Package

	err := e.db.WithTransaction(ctx, func(q store.Querier) error {
		srcPkg, err := store.GetLatestPackage(ctx, q, src.ID)
		if err != nil {
			return err
		}
		if srcPkg == nil {
			return apierrors.New(apierrors.KindInvalid, "source deployment has no releases to promote")
		}

		dstLatest, err := store.LockLatestPackage(ctx, q, dst.ID)
		if err != nil {
			return err
		}
		if err := requireNoInFlightRollout(dstLatest); err != nil {
			return err
		}

		label, err := store.NextLabel(ctx, q, dst.ID)
		if err != nil {
			return err
		}

		p := model.Package{
			ID:                 idutil.NewID(),
			DeploymentID:       dst.ID,
			Label:              label,
			AppVersion:         srcPkg.AppVersion,
			Description:        srcPkg.Description,
			IsDisabled:         srcPkg.IsDisabled,
			IsMandatory:        srcPkg.IsMandatory,
			Rollout:            srcPkg.Rollout,
			Size:               srcPkg.Size,
			PackageHash:        srcPkg.PackageHash,
			BlobPath:           srcPkg.BlobPath,
			ManifestBlobPath:   srcPkg.ManifestBlobPath,
			ReleaseMethod:      model.ReleaseMethodPromote,
			OriginalLabel:      srcPkg.Label,
			OriginalDeployment: src.Name,
			ReleasedBy:         overrides.ReleasedBy,
			UploadTime:         time.Now(),
		}
		if overrideSet.IsDisabled {
			p.IsDisabled = overrides.IsDisabled
		}
		if overrideSet.IsMandatory {
			p.IsMandatory = overrides.IsMandatory
		}
		if overrideSet.Description {
			p.Description = overrides.Description
		}
		if overrideSet.Rollout {
			p.Rollout = overrides.Rollout
		}

		if err := store.InsertPackage(ctx, q, &p); err != nil {
			return err
		}
		created = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// OverrideSet marks which UploadInfo fields Promote's caller actually
// supplied, so unset fields fall back to src's values instead of zero values.
type OverrideSet struct {
	IsDisabled  bool
	IsMandatory bool
	Description bool
	Rollout     bool
}

// Rollback inserts a new release that restores an earlier package's bytes
// (spec §4.5, "rollback").
func (e *Engine) Rollback(ctx context.Context, deploymentID, targetLabel string) (*model.Package, error) {
	var created *model.Package

	err := e.db.WithTransaction(ctx, func(q store.Querier) error {
		history, err := store.ListPackageHistory(ctx, q, deploymentID)
		if err != nil {
			return err
		}
		if len(history) < 1 {
			return apierrors.New(apierrors.KindInvalid, "no releases to roll back")
		}
		current := history[len(history)-1]

		var target model.Package
		if targetLabel == "" {
			if len(history) < 2 {
				return apierrors.New(apierrors.KindInvalid, "no prior release to roll back to")
			}
			target = history[len(history)-2]
		} else {
			found := false
			for _, p := range history {
				if p.Label == targetLabel {
					target = p
					found = true
					break
				}
			}
			if !found {
				return apierrors.Newf(apierrors.KindNotFound, "release %s not found", targetLabel)
			}
			if target.Label == current.Label {
				return apierrors.New(apierrors.KindInvalid, "cannot roll back to the current release")
			}
		}

		if target.AppVersion != current.AppVersion {
			return apierrors.New(apierrors.KindConflict, "cannot rollback across binary versions")
		}

		label, err := store.NextLabel(ctx, q, deploymentID)
		if err != nil {
			return err
		}

		p := model.Package{
			ID:               idutil.NewID(),
			DeploymentID:     deploymentID,
			Label:            label,
			AppVersion:       target.AppVersion,
			Description:      target.Description,
			IsDisabled:       target.IsDisabled,
			IsMandatory:      target.IsMandatory,
			Rollout:          target.Rollout,
			Size:             target.Size,
			PackageHash:      target.PackageHash,
			BlobPath:         target.BlobPath,
			ManifestBlobPath: target.ManifestBlobPath,
			ReleaseMethod:    model.ReleaseMethodRollback,
			OriginalLabel:    target.Label,
			UploadTime:       time.Now(),
		}
		if err := store.InsertPackage(ctx, q, &p); err != nil {
			return err
		}
		created = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdatePatch lists the fields updateRelease may modify; a nil pointer leaves
// the corresponding column unchanged.
type UpdatePatch struct {
	AppVersion  *string
	Description *string
	IsDisabled  *bool
	IsMandatory *bool
	Rollout     *int
}

// UpdateRelease patches an existing release in place, emitting no new blob
// (spec §4.5, "updateRelease"). An empty label patches the latest release.
func (e *Engine) UpdateRelease(ctx context.Context, deploymentID, label string, patch UpdatePatch) (*model.Package, error) {
	var updated *model.Package

	err := e.db.WithTransaction(ctx, func(q store.Querier) error {
		var p *model.Package
		var err error
		if label == "" {
			p, err = store.GetLatestPackage(ctx, q, deploymentID)
			if err == nil && p == nil {
				err = apierrors.New(apierrors.KindNotFound, "deployment has no releases")
			}
		} else {
			p, err = store.GetPackageByLabel(ctx, q, deploymentID, label)
		}
		if err != nil {
			return err
		}

		if patch.AppVersion != nil {
			p.AppVersion = *patch.AppVersion
		}
		if patch.Description != nil {
			p.Description = *patch.Description
		}
		if patch.IsDisabled != nil {
			p.IsDisabled = *patch.IsDisabled
		}
		if patch.IsMandatory != nil {
			p.IsMandatory = *patch.IsMandatory
		}
		if patch.Rollout != nil {
			p.Rollout = patch.Rollout
		}

		if err := store.UpdatePackage(ctx, q, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
