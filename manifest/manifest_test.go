package manifest

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestGenerateIgnoresMacAndDSStore(t *testing.T) {
	z := buildZip(t, map[string]string{
		"index.js":            "console.log(1)",
		"__MACOSX/index.js":   "junk",
		".DS_Store":           "junk",
		"assets/.DS_Store":    "junk",
		"assets/logo.png":     "binarydata",
	})
	m, err := Generate(z)
	require.NoError(t, err)
	assert.Contains(t, m, "index.js")
	assert.Contains(t, m, "assets/logo.png")
	assert.NotContains(t, m, "__MACOSX/index.js")
	assert.NotContains(t, m, ".DS_Store")
	assert.NotContains(t, m, "assets/.DS_Store")
	assert.Len(t, m, 2)
}

func TestGenerateFallsBackForNonZip(t *testing.T) {
	m, err := Generate([]byte("not a zip file"))
	require.NoError(t, err)
	assert.Len(t, m, 1)
	assert.Contains(t, m, "/")
}

func TestPackageHashExcludesReleaseMetadata(t *testing.T) {
	z := buildZip(t, map[string]string{
		"index.js":         "console.log(1)",
		".codepushrelease": `{"appVersion":"1.0.0"}`,
	})
	withMeta, err := Generate(z)
	require.NoError(t, err)

	z2 := buildZip(t, map[string]string{
		"index.js": "console.log(1)",
	})
	withoutMeta, err := Generate(z2)
	require.NoError(t, err)

	h1, err := PackageHash(withMeta)
	require.NoError(t, err)
	h2, err := PackageHash(withoutMeta)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestPackageHashDeterministicRegardlessOfMapOrder(t *testing.T) {
	m := Manifest{"a.js": "1", "b.js": "2", "c.js": "3"}
	h1, err := PackageHash(m)
	require.NoError(t, err)
	h2, err := PackageHash(m)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestPackageHashChangesWithContent(t *testing.T) {
	z1 := buildZip(t, map[string]string{"index.js": "v1"})
	z2 := buildZip(t, map[string]string{"index.js": "v2"})
	m1, _ := Generate(z1)
	m2, _ := Generate(z2)
	h1, err := PackageHash(m1)
	require.NoError(t, err)
	h2, err := PackageHash(m2)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestDiffManifests(t *testing.T) {
	old := Manifest{"a.js": "1", "b.js": "2", "gone.js": "9"}
	newM := Manifest{"a.js": "1", "b.js": "3", "new.js": "4"}
	d := DiffManifests(old, newM)
	assert.ElementsMatch(t, []string{"gone.js"}, d.DeletedFiles)
	assert.ElementsMatch(t, []string{"b.js", "new.js"}, d.ChangedFiles)
}

func TestBuildDiffArchiveRoundTrip(t *testing.T) {
	oldZip := buildZip(t, map[string]string{
		"index.js":  "console.log('v1')",
		"stale.js":  "to be removed",
		"shared.js": "unchanged",
	})
	newZip := buildZip(t, map[string]string{
		"index.js":  "console.log('v2')",
		"shared.js": "unchanged",
	})

	oldManifest, err := Generate(oldZip)
	require.NoError(t, err)
	newManifest, err := Generate(newZip)
	require.NoError(t, err)

	diff := DiffManifests(oldManifest, newManifest)
	diffZip, err := BuildDiffArchive(newZip, diff)
	require.NoError(t, err)

	files, err := ExtractFiles(diffZip)
	require.NoError(t, err)

	assert.Contains(t, files, "hotcodepush.json")
	assert.JSONEq(t, `{"deletedFiles":["stale.js"]}`, string(files["hotcodepush.json"]))

	// Applying the diff semantically: start from old's file set, remove
	// deletions, overlay changed-file bytes from the diff archive. Result
	// must equal new's actual file set.
	applied := map[string][]byte{
		"index.js":  []byte("console.log('v1')"),
		"stale.js":  []byte("to be removed"),
		"shared.js": []byte("unchanged"),
	}
	for _, deleted := range diff.DeletedFiles {
		delete(applied, deleted)
	}
	for name, content := range files {
		if name == "hotcodepush.json" {
			continue
		}
		applied[name] = content
	}

	newFiles, err := ExtractFiles(newZip)
	require.NoError(t, err)
	assert.Equal(t, len(newFiles), len(applied))
	for name, content := range newFiles {
		assert.Equal(t, content, applied[name], name)
	}
}
