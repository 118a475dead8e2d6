package objectstore

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yplabs-ltd/codepush-server/apierrors"
)

func newTestDriver(t *testing.T) *FilesystemDriver {
	t.Helper()
	ctx := context.Background()
	d, err := NewFilesystemDriver(ctx, t.TempDir())
	require.NoError(t, err)
	return d
}

func TestFilesystemDriverPutGet(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t)

	err := d.Put(ctx, "apps/app1/bundle.zip", strings.NewReader("bundle-bytes"), Metadata{"size": "12"})
	require.NoError(t, err)

	rc, err := d.Get(ctx, "apps/app1/bundle.zip")
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "bundle-bytes", string(b))

	meta, err := d.Head(ctx, "apps/app1/bundle.zip")
	require.NoError(t, err)
	assert.Equal(t, "12", meta["size"])
}

func TestFilesystemDriverGetNotFound(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t)
	_, err := d.Get(ctx, "missing.zip")
	require.Error(t, err)
	assert.True(t, apierrors.Is(err, apierrors.KindNotFound))
}

func TestFilesystemDriverListAndDelete(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t)

	require.NoError(t, d.Put(ctx, "apps/app1/a.zip", strings.NewReader("a"), nil))
	require.NoError(t, d.Put(ctx, "apps/app1/b.zip", strings.NewReader("b"), nil))
	require.NoError(t, d.Put(ctx, "apps/app2/c.zip", strings.NewReader("c"), nil))

	keys, err := d.List(ctx, "apps/app1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"apps/app1/a.zip", "apps/app1/b.zip"}, keys)

	require.NoError(t, d.Delete(ctx, "apps/app1/a.zip"))
	keys, err = d.List(ctx, "apps/app1")
	require.NoError(t, err)
	assert.Equal(t, []string{"apps/app1/b.zip"}, keys)
}

func TestFilesystemDriverStatus(t *testing.T) {
	d := newTestDriver(t)
	st := d.Status(context.Background())
	assert.True(t, st.OK)
}
