package idutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateKeyFormat(t *testing.T) {
	k, err := GenerateDeploymentKey()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(k, "dk_"))
	assert.Len(t, k, len("dk_")+32)

	k2, err := GenerateAccessKey()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(k2, "ck_"))
	assert.NotEqual(t, k, k2)
}

func TestNormalizeVersion(t *testing.T) {
	cases := map[string]string{
		"1":          "1.0.0",
		"1.0":        "1.0.0",
		"1.0+build":  "1.0.0+build",
		"1.2.3":      "1.2.3",
		"1.2.3-beta": "1.2.3-beta",
		"1-beta":     "1.0.0-beta",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeVersion(in), "input %q", in)
	}
}

func TestIsPreRelease(t *testing.T) {
	assert.True(t, IsPreRelease("1.2.3-beta"))
	assert.False(t, IsPreRelease("1.2.3"))
}

func TestSatisfiesRange(t *testing.T) {
	assert.True(t, SatisfiesRange("1.2.3", "1.2.3"))
	assert.False(t, SatisfiesRange("1.2.4", "1.2.3"))
	assert.True(t, SatisfiesRange("1.5.0", ">=1.0.0 <2.0.0"))
	assert.False(t, SatisfiesRange("2.0.0", ">=1.0.0 <2.0.0"))
	assert.False(t, SatisfiesRange("not-a-version", "1.2.3"))
}

func TestMutuallySatisfying(t *testing.T) {
	assert.True(t, MutuallySatisfying("1.0.0", "1.0.0"))
	assert.True(t, MutuallySatisfying("1.0.0", ">=1.0.0 <2.0.0"))
	assert.True(t, MutuallySatisfying(">=1.0.0 <2.0.0", "1.5.0"))
	assert.False(t, MutuallySatisfying("1.0.0", "2.0.0"))
}

func TestRolloutBucketDeterministic(t *testing.T) {
	b1 := RolloutBucket("client-1", "hash-a")
	b2 := RolloutBucket("client-1", "hash-a")
	assert.Equal(t, b1, b2)
	assert.GreaterOrEqual(t, b1, 0)
	assert.Less(t, b1, 100)
}

func TestInRolloutBoundaries(t *testing.T) {
	assert.False(t, InRollout("any-client", "any-hash", 0))
	assert.True(t, InRollout("any-client", "any-hash", 100))
}

func TestInRolloutConsistentWithBucket(t *testing.T) {
	bucket := RolloutBucket("c1", "h1")
	assert.Equal(t, bucket < 50, InRollout("c1", "h1", 50))
}

func TestCanonicalManifestJSONSorted(t *testing.T) {
	s, err := CanonicalManifestJSON([]string{"b.js:222", "a.js:111"})
	require.NoError(t, err)
	assert.Equal(t, `["a.js:111","b.js:222"]`, s)
}
