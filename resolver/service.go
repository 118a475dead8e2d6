package resolver

import (
	"context"

	"github.com/yplabs-ltd/codepush-server/apierrors"
	"github.com/yplabs-ltd/codepush-server/blobstore"
	"github.com/yplabs-ltd/codepush-server/store"
)

// Service loads a deployment's history from the relational store and turns a
// resolved blob key into a signed URL via the blob service, wrapping the pure
// Resolve function for callers that only have a deployment key and a query.
type Service struct {
	db *store.Store
	bs *blobstore.Service
}

// NewService constructs a resolver Service.
func NewService(db *store.Store, bs *blobstore.Service) *Service {
	return &Service{db: db, bs: bs}
}

// Resolve answers an update-check request (spec §4.6 steps 1-10).
func (s *Service) Resolve(ctx context.Context, query Query) (UpdateInfo, error) {
	q := s.db.DBMap()

	deployment, err := store.GetDeploymentByKey(ctx, q, query.DeploymentKey)
	if err != nil {
		if apierrors.Is(err, apierrors.KindNotFound) {
			return UpdateInfo{}, apierrors.New(apierrors.KindNotFound, "unknown deployment key")
		}
		return UpdateInfo{}, err
	}

	history, err := store.ListPackageHistory(ctx, q, deployment.ID)
	if err != nil {
		return UpdateInfo{}, err
	}
	if len(history) == 0 {
		return notAvailable(query.AppVersion), nil
	}

	entries := make([]Entry, len(history))
	for i, p := range history {
		diffs, err := store.ListPackageDiffs(ctx, q, p.ID)
		if err != nil {
			return UpdateInfo{}, err
		}
		entries[i] = Entry{Package: p, Diffs: diffs}
	}

	info := Resolve(entries, query)
	if info.IsAvailable && info.DownloadURL != "" {
		url, err := s.bs.GetBlobURL(ctx, info.DownloadURL)
		if err != nil {
			return UpdateInfo{}, err
		}
		info.DownloadURL = url
	}
	return info, nil
}
