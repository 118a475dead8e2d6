// Package idutil provides the key/hash utilities of component C9: random opaque
// tokens, semver normalization, and the stable rollout predicate.
package idutil

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/blang/semver"
	"github.com/pborman/uuid"
)

// NewID returns a fresh entity primary key. Entity ids are plain UUIDs
// (github.com/pborman/uuid, a direct teacher dependency); they are never
// presented by a client, unlike the opaque tokens GenerateKey produces.
func NewID() string {
	return uuid.New()
}

// GenerateKey returns prefix + 32 hex characters drawn from a cryptographic RNG,
// the spec-pinned exact algorithm for deployment keys and access keys.
func GenerateKey(prefix string) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("idutil: unable to read random bytes: %w", err)
	}
	return prefix + hex.EncodeToString(buf), nil
}

// GenerateDeploymentKey returns "dk_" + 32 hex.
func GenerateDeploymentKey() (string, error) { return GenerateKey("dk_") }

// GenerateAccessKey returns "ck_" + 32 hex.
func GenerateAccessKey() (string, error) { return GenerateKey("ck_") }

// NormalizeVersion applies the client-version normalization rule from §4.6 step 3:
// "N" -> "N.0.0"; "N.M" or "N.M±tag" -> "N.M.0±tag"; anything else is unchanged.
func NormalizeVersion(v string) string {
	core, rest := splitVersionCore(v)
	parts := strings.Split(core, ".")
	switch len(parts) {
	case 1:
		return core + ".0.0" + rest
	case 2:
		return core + ".0" + rest
	default:
		return v
	}
}

// splitVersionCore separates the leading dot-numeric run ("1", "1.2") from
// everything after it (a pre-release/build tag, which may start with '-' or '+').
func splitVersionCore(v string) (core string, rest string) {
	i := 0
	for i < len(v) && (v[i] == '.' || (v[i] >= '0' && v[i] <= '9')) {
		i++
	}
	return v[:i], v[i:]
}

// IsPreRelease reports whether a (normalized or raw) version string carries a
// pre-release tag, i.e. contains a '-' — §4.6 step 4's admission rule for
// latestSatisfying keys off exactly this.
func IsPreRelease(v string) bool {
	return strings.Contains(v, "-")
}

// SatisfiesRange reports whether version satisfies the given appVersion
// specifier, which may be an exact semver ("1.2.3") or a range expression
// ("1.x", ">=1.0.0 <2.0.0"). Malformed specifiers never match.
func SatisfiesRange(version, spec string) bool {
	v, err := semver.ParseTolerant(version)
	if err != nil {
		return false
	}
	if sv, err := semver.ParseTolerant(spec); err == nil {
		return v.EQ(sv)
	}
	rng, err := semver.ParseRange(spec)
	if err != nil {
		return false
	}
	return rng(v)
}

// MutuallySatisfying reports whether two appVersion specifiers (exact versions or
// ranges) describe the same binary version population, used by the diffing
// policy (§4.3) to decide which prior releases are diff candidates.
func MutuallySatisfying(a, b string) bool {
	if a == b {
		return true
	}
	if av, err := semver.ParseTolerant(a); err == nil {
		if SatisfiesRange(av.String(), b) {
			return true
		}
	}
	if bv, err := semver.ParseTolerant(b); err == nil {
		if SatisfiesRange(bv.String(), a) {
			return true
		}
	}
	return false
}

// CompareVersions returns -1, 0 or 1 the way semver.Version.Compare does,
// treating unparseable input conservatively as equal. Its caller is the strict
// "normalized > latestEnabled.appVersion" check in §4.6 step 7; when that
// appVersion is a range rather than a single version, the result is 0.
func CompareVersions(a, b string) int {
	av, errA := semver.ParseTolerant(a)
	bv, errB := semver.ParseTolerant(b)
	if errA != nil || errB != nil {
		return 0
	}
	return av.Compare(bv)
}

// RolloutBucket computes the Java-string-hash-derived bucket in [0,100) for a
// (clientUniqueId, packageHash) pair. It must be bit-exact with the original
// implementation's `h = ((h<<5)-h) + codepoint(c)` recurrence over 32-bit signed
// arithmetic, since device inclusion must be stable across servers (spec §4.9).
func RolloutBucket(clientUniqueID, packageHash string) int {
	s := clientUniqueID + packageHash
	var h int32
	for _, r := range s {
		h = (h << 5) - h + int32(r)
	}
	abs := int64(h)
	if abs < 0 {
		abs = -abs
	}
	return int(abs % 100)
}

// InRollout reports whether a client is included in a partial rollout of the
// given percentage, per the rollout predicate in §4.9: bucket < percentage.
func InRollout(clientUniqueID, packageHash string, percentage int) bool {
	if percentage >= 100 {
		return true
	}
	if percentage <= 0 {
		return false
	}
	return RolloutBucket(clientUniqueID, packageHash) < percentage
}

// CanonicalManifestJSON renders a manifest's sorted "path:hash" entries as the
// canonical JSON array string that PackageHash hashes, i.e.
// JSON.stringify(sorted(["<path>:<hex>", ...])).
func CanonicalManifestJSON(entries []string) (string, error) {
	sorted := append([]string(nil), entries...)
	sort.Strings(sorted)
	b, err := json.Marshal(sorted)
	if err != nil {
		return "", fmt.Errorf("idutil: unable to marshal manifest entries: %w", err)
	}
	return string(b), nil
}
