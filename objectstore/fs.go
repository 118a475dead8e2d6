package objectstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yplabs-ltd/codepush-server/apierrors"
	"github.com/yplabs-ltd/codepush-server/corelog"
)

// FilesystemDriver implements Driver over a local directory, grounded on the
// teacher's FilesystemStore (objectstore/fs.go). It has no native temporary-URL
// support, so SignURL returns a file:// reference instead.
type FilesystemDriver struct {
	basedir string
}

// NewFilesystemDriver creates a Driver rooted at basedir, which must already
// exist or be creatable.
func NewFilesystemDriver(ctx context.Context, basedir string) (*FilesystemDriver, error) {
	corelog.Info(ctx, "objectstore> initializing filesystem driver on directory: %s", basedir)
	if basedir == "" {
		return nil, apierrors.New(apierrors.KindInvalid, "filesystem object store requires a base directory")
	}
	if err := os.MkdirAll(basedir, 0o755); err != nil {
		return nil, apierrors.WrapError(err, "objectstore: create base directory %s", basedir)
	}
	return &FilesystemDriver{basedir: basedir}, nil
}

func (d *FilesystemDriver) path(key string) string {
	return filepath.Join(d.basedir, filepath.FromSlash(key))
}

// Put writes data to disk at key, recording meta as a sidecar ".meta" file.
func (d *FilesystemDriver) Put(ctx context.Context, key string, data io.Reader, meta Metadata) error {
	dst := d.path(key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return apierrors.WrapError(err, "objectstore: mkdir for %s", key)
	}
	f, err := os.OpenFile(dst, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return apierrors.WrapError(err, "objectstore: open %s", key)
	}
	defer f.Close()

	if _, err := io.Copy(f, data); err != nil {
		return apierrors.WrapError(err, "objectstore: write %s", key)
	}
	return writeMeta(dst+".meta", meta)
}

// Get opens the object at key for reading.
func (d *FilesystemDriver) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(d.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, wrapNotFound(err, "objectstore: %s", key)
		}
		return nil, wrapTransient(err, "objectstore: read %s", key)
	}
	return f, nil
}

// Head returns the sidecar metadata for key.
func (d *FilesystemDriver) Head(ctx context.Context, key string) (Metadata, error) {
	b, err := os.ReadFile(d.path(key) + ".meta")
	if err != nil {
		if os.IsNotExist(err) {
			return nil, wrapNotFound(err, "objectstore: %s", key)
		}
		return nil, wrapTransient(err, "objectstore: head %s", key)
	}
	return parseMeta(string(b)), nil
}

// List returns every key under prefix.
func (d *FilesystemDriver) List(ctx context.Context, prefix string) ([]string, error) {
	root := d.path(prefix)
	var keys []string
	err := filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		if info.IsDir() || strings.HasSuffix(p, ".meta") {
			return nil
		}
		rel, err := filepath.Rel(d.basedir, p)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, wrapTransient(err, "objectstore: list %s", prefix)
	}
	return keys, nil
}

// Delete removes the given keys, ignoring ones that are already absent.
func (d *FilesystemDriver) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		if err := os.Remove(d.path(k)); err != nil && !os.IsNotExist(err) {
			return wrapTransient(err, "objectstore: delete %s", k)
		}
		_ = os.Remove(d.path(k) + ".meta")
	}
	return nil
}

// SignURL has no native meaning on disk; it returns a local file:// reference
// and ignores ttl. The blob service calls it for every driver, so with this
// driver update checks hand out file:// URLs.
func (d *FilesystemDriver) SignURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "file://" + d.path(key), nil
}

// Status reports whether the base directory is reachable.
func (d *FilesystemDriver) Status(ctx context.Context) MonitoringStatus {
	if _, err := os.Stat(d.basedir); err != nil {
		return MonitoringStatus{Component: "Object-Store", Value: "filesystem storage KO (" + err.Error() + ")", OK: false}
	}
	return MonitoringStatus{Component: "Object-Store", Value: "filesystem storage OK", OK: true}
}

func writeMeta(path string, meta Metadata) error {
	var b strings.Builder
	for k, v := range meta {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(v)
		b.WriteByte('\n')
	}
	return os.WriteFile(path, []byte(b.String()), 0o600)
}

func parseMeta(s string) Metadata {
	m := Metadata{}
	for _, line := range strings.Split(s, "\n") {
		if line == "" {
			continue
		}
		kv := strings.SplitN(line, "=", 2)
		if len(kv) == 2 {
			m[kv[0]] = kv[1]
		}
	}
	return m
}
