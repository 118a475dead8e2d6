// Package blobstore implements component C2: the content-addressed blob
// service wrapping objectstore.Driver, with a process-local cache of signed
// URLs. The cache uses github.com/patrickmn/go-cache, the same in-memory TTL
// cache the teacher reaches for in engine/api/repositoriesmanager and
// engine/cdn/cdn_log_tcp.go ("gocache") for exactly this "lose it, it's fine"
// shape described in spec §5.
package blobstore

import (
	"context"
	"io"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/yplabs-ltd/codepush-server/apierrors"
	"github.com/yplabs-ltd/codepush-server/corelog"
	"github.com/yplabs-ltd/codepush-server/objectstore"
)

const (
	signedURLTTL      = time.Hour
	urlCacheTTL       = 30 * time.Minute
	urlCacheCleanup   = 5 * time.Minute
	deleteBatchSize   = 1000
)

// Service wraps an objectstore.Driver with the put/get/move/delete operations
// the release engine and the update resolver need (spec §4.2).
type Service struct {
	driver   objectstore.Driver
	urlCache *gocache.Cache
}

// New constructs a blob Service over driver.
func New(driver objectstore.Driver) *Service {
	return &Service{
		driver:   driver,
		urlCache: gocache.New(urlCacheTTL, urlCacheCleanup),
	}
}

// AddBlob writes bytes under the caller-supplied key, with metadata
// {"size": "<n>"}, and returns that key.
func (s *Service) AddBlob(ctx context.Context, key string, data io.Reader, size int64) (string, error) {
	meta := objectstore.Metadata{"size": strconv.FormatInt(size, 10)}
	if err := s.driver.Put(ctx, key, data, meta); err != nil {
		return "", apierrors.NewError(apierrors.KindConnectionFailed, err)
	}
	return key, nil
}

// GetBlob opens the blob at key for reading.
func (s *Service) GetBlob(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := s.driver.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return rc, nil
}

// GetBlobURL produces a short-lived signed URL for key, caching it for
// urlCacheTTL so repeated update-check requests for the same release don't
// each re-sign (spec §4.2, §5: "process-local mapping ... safe under parallel
// access").
func (s *Service) GetBlobURL(ctx context.Context, key string) (string, error) {
	if cached, ok := s.urlCache.Get(key); ok {
		return cached.(string), nil
	}
	url, err := s.driver.SignURL(ctx, key, signedURLTTL)
	if err != nil {
		corelog.Error(ctx, "blobstore: sign url for %s: %v", key, err)
		return "", apierrors.NewError(apierrors.KindConnectionFailed, err)
	}
	s.urlCache.Set(key, url, urlCacheTTL)
	return url, nil
}

// MoveBlob copies bytes from src to dst, then best-effort deletes src. If the
// destination write succeeds, failure to delete src does not fail the call:
// the delete is attempted once, the failure is logged, and the source is left
// in place as an orphan; nothing retries it.
func (s *Service) MoveBlob(ctx context.Context, src, dst string) error {
	rc, err := s.driver.Get(ctx, src)
	if err != nil {
		return err
	}
	defer rc.Close()

	meta, err := s.driver.Head(ctx, src)
	if err != nil {
		meta = nil
	}
	if err := s.driver.Put(ctx, dst, rc, meta); err != nil {
		return apierrors.NewError(apierrors.KindConnectionFailed, err)
	}

	if err := s.driver.Delete(ctx, src); err != nil {
		corelog.Error(ctx, "blobstore: best-effort delete of %s after move to %s failed: %v", src, dst, err)
	}
	s.urlCache.Delete(src)
	return nil
}

// RemoveBlob deletes a single key.
func (s *Service) RemoveBlob(ctx context.Context, key string) error {
	if err := s.driver.Delete(ctx, key); err != nil {
		return err
	}
	s.urlCache.Delete(key)
	return nil
}

// DeletePath deletes every key under prefix, in batches of at most 1000 (spec
// §4.2's deletePath contract).
func (s *Service) DeletePath(ctx context.Context, prefix string) error {
	keys, err := s.driver.List(ctx, prefix)
	if err != nil {
		return err
	}
	for start := 0; start < len(keys); start += deleteBatchSize {
		end := start + deleteBatchSize
		if end > len(keys) {
			end = len(keys)
		}
		if err := s.driver.Delete(ctx, keys[start:end]...); err != nil {
			return err
		}
		for _, k := range keys[start:end] {
			s.urlCache.Delete(k)
		}
	}
	return nil
}

// Status forwards to the underlying driver's health check.
func (s *Service) Status(ctx context.Context) objectstore.MonitoringStatus {
	return s.driver.Status(ctx)
}
