package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yplabs-ltd/codepush-server/model"
)

func pkg(label, appVersion, hash string, disabled, mandatory bool) Entry {
	return Entry{Package: model.Package{
		Label:       label,
		AppVersion:  appVersion,
		PackageHash: hash,
		IsDisabled:  disabled,
		IsMandatory: mandatory,
		BlobPath:    "blob/" + label,
		Size:        100,
	}}
}

func TestResolveEmptyHistory(t *testing.T) {
	info := Resolve(nil, Query{AppVersion: "1.0.0"})
	assert.False(t, info.IsAvailable)
	assert.True(t, info.ShouldRunBinaryVersion)
}

func TestResolveUnknownClientGetsLatest(t *testing.T) {
	history := []Entry{
		pkg("v1", "1.0.0", "h1", false, false),
		pkg("v2", "1.0.0", "h2", false, false),
	}
	info := Resolve(history, Query{AppVersion: "1.0.0"})
	assert.True(t, info.IsAvailable)
	assert.Equal(t, "v2", info.Label)
	assert.Equal(t, "h2", info.PackageHash)
}

func TestResolveClientAlreadyCurrent(t *testing.T) {
	history := []Entry{
		pkg("v1", "1.0.0", "h1", false, false),
	}
	info := Resolve(history, Query{AppVersion: "1.0.0", PackageHash: "h1"})
	assert.False(t, info.IsAvailable)
	assert.True(t, info.ShouldRunBinaryVersion)
	assert.Equal(t, "1.0.0", info.AppVersion)
}

func TestResolveSkipsDisabledReleases(t *testing.T) {
	history := []Entry{
		pkg("v1", "1.0.0", "h1", false, false),
		pkg("v2", "1.0.0", "h2", true, false),
	}
	info := Resolve(history, Query{AppVersion: "1.0.0"})
	assert.True(t, info.IsAvailable)
	assert.Equal(t, "v1", info.Label)
}

func TestResolveVersionMismatchReturnsUnavailable(t *testing.T) {
	history := []Entry{
		pkg("v1", "2.0.0", "h1", false, false),
	}
	info := Resolve(history, Query{AppVersion: "1.0.0"})
	assert.False(t, info.IsAvailable)
	assert.True(t, info.ShouldRunBinaryVersion)
}

func TestResolvePreReleaseAdmitsLatest(t *testing.T) {
	history := []Entry{
		pkg("v1", "2.0.0", "h1", false, false),
	}
	info := Resolve(history, Query{AppVersion: "1.0.0-beta"})
	assert.True(t, info.IsAvailable)
	assert.Equal(t, "h1", info.PackageHash)
}

func TestResolveRolloutGatesUnavailableWithoutClientID(t *testing.T) {
	rollout := 10
	e := pkg("v1", "1.0.0", "h1", false, false)
	e.Rollout = &rollout
	info := Resolve([]Entry{e}, Query{AppVersion: "1.0.0"})
	assert.False(t, info.IsAvailable)
}

func TestResolveDiffSubstitution(t *testing.T) {
	e := pkg("v2", "1.0.0", "h2", false, false)
	e.Diffs = []model.PackageDiff{{SourcePackageHash: "h1", BlobPath: "diff/v2-from-h1", Size: 5}}
	history := []Entry{
		pkg("v1", "1.0.0", "h1", false, false),
		e,
	}
	info := Resolve(history, Query{AppVersion: "1.0.0", PackageHash: "h1"})
	assert.True(t, info.IsAvailable)
	assert.Equal(t, "diff/v2-from-h1", info.DownloadURL)
	assert.EqualValues(t, 5, info.PackageSize)
}

func TestResolveMandatoryPromotion(t *testing.T) {
	history := []Entry{
		pkg("v1", "1.0.0", "h1", false, false),
		pkg("v2", "1.0.0", "h2", false, true),
	}
	info := Resolve(history, Query{AppVersion: "1.0.0", PackageHash: "h1"})
	assert.True(t, info.IsMandatory)
}

func TestToLegacyJSONPreservesFields(t *testing.T) {
	info := UpdateInfo{IsAvailable: true, Label: "v3", PackageHash: "abc"}
	legacy := ToLegacyJSON(info)
	assert.True(t, legacy.IsAvailable)
	assert.Equal(t, "v3", legacy.Label)
	assert.Equal(t, "abc", legacy.PackageHash)
}
