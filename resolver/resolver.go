// Package resolver implements component C6, the update resolver: the
// deterministic algorithm a client's update-check request is run through to
// decide whether a new release is available and, if so, which bytes to hand
// back. Resolve is a pure function over an already-loaded history slice, the
// shape spec §4.6 calls for so it can be unit tested without a database.
package resolver

import (
	"github.com/yplabs-ltd/codepush-server/idutil"
	"github.com/yplabs-ltd/codepush-server/model"
)

// Entry is one release in the history Resolve walks, carrying the diff
// archives available FROM some client's current hash TO this release.
type Entry struct {
	model.Package
	Diffs []model.PackageDiff
}

// Query is an update-check request (spec §4.6).
type Query struct {
	DeploymentKey  string
	AppVersion     string
	PackageHash    string
	Label          string
	ClientUniqueID string
	IsCompanion    bool
}

// UpdateInfo is the resolver's answer.
type UpdateInfo struct {
	IsAvailable            bool
	IsMandatory            bool
	AppVersion             string
	PackageHash            string
	Label                  string
	PackageSize            int64
	Description            string
	DownloadURL            string
	ShouldRunBinaryVersion bool
	UpdateAppVersion       bool
}

func notAvailable(appVersion string) UpdateInfo {
	return UpdateInfo{IsAvailable: false, ShouldRunBinaryVersion: true, AppVersion: appVersion}
}

// Resolve runs the §4.6 algorithm against a deployment's full history,
// ascending by uploadTime, exactly as loaded from store.ListPackageHistory.
func Resolve(history []Entry, query Query) UpdateInfo {
	if len(history) == 0 {
		return notAvailable(query.AppVersion)
	}

	normalized := idutil.NormalizeVersion(query.AppVersion)
	preRelease := idutil.IsPreRelease(normalized)

	var (
		foundRequest       bool
		latestEnabled      *Entry
		latestSatisfying   *Entry
		mandatoryPromotion bool
	)

	// Treat "client presents neither label nor packageHash" as an automatic
	// match against the newest entry — an unknown client is assumed to be
	// running whatever is newest, per step 4's match rule.
	matchUnknown := query.Label == "" && query.PackageHash == ""

	for i := len(history) - 1; i >= 0; i-- {
		e := history[i]

		matchesThis := false
		if matchUnknown {
			matchesThis = i == len(history)-1
		} else if query.Label != "" {
			matchesThis = e.Label == query.Label
		} else {
			matchesThis = e.PackageHash == query.PackageHash
		}
		if matchesThis {
			foundRequest = true
		}

		if !e.IsDisabled {
			if latestEnabled == nil {
				ee := e
				latestEnabled = &ee
			}
			if latestSatisfying == nil {
				satisfies := query.IsCompanion || idutil.SatisfiesRange(normalized, e.AppVersion) || preRelease
				if satisfies {
					ee := e
					latestSatisfying = &ee
				}
			}
		}

		// Stop the scan once foundRequest is satisfied and both latest values
		// are filled, or immediately upon hitting a mandatory entry that
		// satisfies the client's version (spec §4.6 step 4).
		if e.IsMandatory && (query.IsCompanion || idutil.SatisfiesRange(normalized, e.AppVersion)) {
			mandatoryPromotion = true
			break
		}
		if foundRequest && latestEnabled != nil && latestSatisfying != nil {
			break
		}
	}

	if latestEnabled == nil {
		return notAvailable(query.AppVersion)
	}
	if latestSatisfying == nil {
		return notAvailable(query.AppVersion)
	}

	// Step 7: the client already holds the release that would otherwise be
	// served. It is current, not behind — report not-available, with the two
	// appVersion/updateAppVersion override sub-cases spec'd for a binary
	// version that has since drifted from latestEnabled's range.
	if query.PackageHash != "" && latestSatisfying.PackageHash == query.PackageHash {
		info := notAvailable(query.AppVersion)
		switch {
		case idutil.CompareVersions(normalized, latestEnabled.AppVersion) > 0:
			info.AppVersion = latestEnabled.AppVersion
		case !idutil.SatisfiesRange(normalized, latestEnabled.AppVersion):
			info.UpdateAppVersion = true
			info.AppVersion = latestEnabled.AppVersion
		}
		return info
	}

	info := UpdateInfo{
		IsAvailable: true,
		IsMandatory: mandatoryPromotion || latestSatisfying.IsMandatory,
		PackageHash: latestSatisfying.PackageHash,
		Label:       latestSatisfying.Label,
		PackageSize: latestSatisfying.Size,
		Description: latestSatisfying.Description,
		AppVersion:  query.AppVersion,
	}

	// DownloadURL carries the blob *key* here, not a signed URL — Resolve is a
	// pure function with no object-store access. Service.Resolve swaps this
	// for an actual signed URL via blobstore before returning to callers.
	info.DownloadURL = latestSatisfying.BlobPath
	for _, d := range latestSatisfying.Diffs {
		if query.PackageHash != "" && d.SourcePackageHash == query.PackageHash {
			info.DownloadURL = d.BlobPath
			info.PackageSize = d.Size
			break
		}
	}

	if latestSatisfying.Rollout != nil && *latestSatisfying.Rollout < 100 {
		if query.ClientUniqueID == "" {
			info.IsAvailable = false
		} else if !idutil.InRollout(query.ClientUniqueID, latestSatisfying.PackageHash, *latestSatisfying.Rollout) {
			info.IsAvailable = false
		}
	}

	return info
}

// LegacyUpdateInfo is the snake_case transport variant some client SDKs
// expect; semantics are identical to UpdateInfo.
type LegacyUpdateInfo struct {
	IsAvailable            bool   `json:"is_available"`
	IsMandatory            bool   `json:"is_mandatory"`
	AppVersion             string `json:"target_binary_range"`
	PackageHash            string `json:"package_hash,omitempty"`
	Label                  string `json:"label,omitempty"`
	PackageSize            int64  `json:"package_size,omitempty"`
	Description            string `json:"description,omitempty"`
	DownloadURL            string `json:"download_url,omitempty"`
	ShouldRunBinaryVersion bool   `json:"should_run_binary_version,omitempty"`
	UpdateAppVersion       bool   `json:"update_app_version,omitempty"`
}

// ToLegacyJSON re-cases a resolver result for the legacy transport variant.
func ToLegacyJSON(info UpdateInfo) LegacyUpdateInfo {
	return LegacyUpdateInfo{
		IsAvailable:            info.IsAvailable,
		IsMandatory:            info.IsMandatory,
		AppVersion:             info.AppVersion,
		PackageHash:            info.PackageHash,
		Label:                  info.Label,
		PackageSize:            info.PackageSize,
		Description:            info.Description,
		DownloadURL:            info.DownloadURL,
		ShouldRunBinaryVersion: info.ShouldRunBinaryVersion,
		UpdateAppVersion:       info.UpdateAppVersion,
	}
}
