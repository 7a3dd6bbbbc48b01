package choco

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/osbridge/pkgmgr-mcp/pkg/types"
)

// packageLine matches one --limit-output record: "<id>|<version>". Versions
// may carry multiple segments and pre-release suffixes; the first pipe is the
// only delimiter that matters.
var packageLine = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*\|\S+$`)

// versionLine pulls "<id> v<version>" out of installation prose, used when
// no version was requested explicitly.
var versionLine = regexp.MustCompile(`(?mi)^\s*(\S+)\s+v([0-9][\w.+-]*)`)

// noPackagesMarkers are the messages choco emits for an empty result set.
// They mean "zero records", not malformed output.
var noPackagesMarkers = []string{
	"No packages found",
	"0 packages installed",
	"0 packages found",
}

// parsePackages parses --limit-output package listings. Unrecognized lines
// are skipped; recovering zero records from non-empty output that is not a
// recognized empty-set message is a parse failure.
func parsePackages(raw string) ([]types.PackageInfo, error) {
	packages := []types.PackageInfo{}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return packages, nil
	}

	for _, line := range strings.Split(trimmed, "\n") {
		line = strings.TrimSpace(line)
		if !packageLine.MatchString(line) {
			continue
		}
		id, version, _ := strings.Cut(line, "|")
		packages = append(packages, types.PackageInfo{ID: id, InstalledVersion: version})
	}

	if len(packages) == 0 && !isEmptySetMessage(trimmed) {
		return nil, &types.MCPError{
			Kind:    types.ErrKindMalformedOutput,
			Message: "could not recover any package records from choco output",
		}
	}
	return packages, nil
}

// parseSources parses `choco source list --limit-output`:
// Name|Source|Disabled|UserName|Certificate|Priority|BypassProxy|AllowSelfService|VisibleToAdmins
func parseSources(raw string) ([]types.SourceSpec, error) {
	sources := []types.SourceSpec{}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return sources, nil
	}

	for _, line := range strings.Split(trimmed, "\n") {
		line = strings.TrimSpace(line)
		parts := strings.Split(line, "|")
		if len(parts) < 3 || parts[0] == "" {
			continue
		}
		src := types.SourceSpec{Name: parts[0], URL: parts[1]}
		if len(parts) > 5 {
			if p, err := strconv.Atoi(parts[5]); err == nil {
				src.Priority = p
			}
		}
		sources = append(sources, src)
	}

	if len(sources) == 0 {
		return nil, &types.MCPError{
			Kind:    types.ErrKindMalformedOutput,
			Message: "could not recover any source records from choco output",
		}
	}
	return sources, nil
}

func isEmptySetMessage(output string) bool {
	for _, marker := range noPackagesMarkers {
		if strings.Contains(output, marker) {
			return true
		}
	}
	return false
}

// extractVersion scavenges an installed version for id from install/upgrade
// prose. Empty when nothing matches; the caller tolerates that.
func extractVersion(stdout, id string) string {
	for _, m := range versionLine.FindAllStringSubmatch(stdout, -1) {
		if strings.EqualFold(m[1], id) {
			return m[2]
		}
	}
	return ""
}
