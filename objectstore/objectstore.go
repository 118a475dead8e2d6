// Package objectstore implements component C1: bytes in, bytes out, presigned
// URLs. It is modeled on the teacher's engine/api/objectstore package — same
// Driver-interface-with-two-implementations shape (there filesystem/Swift/S3,
// here filesystem/S3, since the spec names "S3-compatible HTTPS or a
// Cloudflare-style bucket binding" as the only two acceptable variants).
package objectstore

import (
	"context"
	"io"
	"time"

	"github.com/yplabs-ltd/codepush-server/apierrors"
)

// Metadata is the small key/value bag stored alongside an object; the engine
// only ever sets "size".
type Metadata map[string]string

// MonitoringStatus reports whether a Driver is healthy, grounded on the
// teacher's sdk.MonitoringStatusLine / Driver.Status() contract.
type MonitoringStatus struct {
	Component string
	Value     string
	OK        bool
}

// Driver is the contract every object-store backend implements (spec §4.1).
type Driver interface {
	Put(ctx context.Context, key string, data io.Reader, meta Metadata) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Head(ctx context.Context, key string) (Metadata, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, keys ...string) error
	SignURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Status(ctx context.Context) MonitoringStatus
}

// wrapNotFound and wrapTransient are shared by drivers to classify backend
// errors: a backend-specific "not found" condition becomes
// apierrors.KindNotFound, and the other read/list/delete failures they wrap
// become KindConnectionFailed. No driver error is classified as fatal here.
func wrapNotFound(err error, format string, args ...interface{}) error {
	return apierrors.Newf(apierrors.KindNotFound, format+": %v", append(args, err)...)
}

func wrapTransient(err error, format string, args ...interface{}) error {
	return apierrors.Newf(apierrors.KindConnectionFailed, format+": %v", append(args, err)...)
}
