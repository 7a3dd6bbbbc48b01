package winget

import (
	"strings"

	"github.com/osbridge/pkgmgr-mcp/pkg/types"
)

// winget prints aligned column tables:
//
//	Name              Id             Version  Available  Source
//	-----------------------------------------------------------
//	Git               Git.Git        2.39.1   2.40.0     winget
//
// Column boundaries come from the header, which keeps multi-word names and
// multi-segment versions intact. Progress-spinner fragments and any line
// shorter than the Id column are skipped.

// findTable locates the header/separator pair and returns the header line and
// the data rows below it. ok is false when no table is present.
func findTable(raw string, required []string) (header string, rows []string, ok bool) {
	lines := strings.Split(raw, "\n")
	for i := 0; i < len(lines)-1; i++ {
		if !strings.HasPrefix(strings.TrimSpace(lines[i+1]), "---") {
			continue
		}
		candidate := lines[i]
		valid := true
		for _, col := range required {
			if !strings.Contains(candidate, col) {
				valid = false
				break
			}
		}
		if !valid {
			continue
		}
		return candidate, lines[i+2:], true
	}
	return "", nil, false
}

// column slices row between two offsets, tolerating short rows. An end of -1
// means "to end of line".
func column(row string, start, end int) string {
	if start < 0 || start >= len(row) {
		return ""
	}
	if end < 0 || end > len(row) {
		end = len(row)
	}
	if end <= start {
		return ""
	}
	return strings.TrimSpace(row[start:end])
}

func isSpinnerLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return true
	}
	switch trimmed[0] {
	case '-', '\\', '|', '/':
		return true
	}
	return false
}

// parsePackages extracts package records from a winget list/search table.
func parsePackages(raw string) ([]types.PackageInfo, error) {
	packages := []types.PackageInfo{}
	if strings.TrimSpace(raw) == "" {
		return packages, nil
	}

	header, rows, ok := findTable(raw, []string{"Id", "Version"})
	if ok {
		idStart := strings.Index(header, "Id")
		verStart := strings.Index(header, "Version")
		availStart := strings.Index(header, "Available")
		srcStart := strings.Index(header, "Source")

		verEnd := availStart
		if verEnd < 0 {
			verEnd = srcStart
		}
		for _, row := range rows {
			if isSpinnerLine(row) {
				continue
			}
			pkg := types.PackageInfo{
				ID:               column(row, idStart, verStart),
				InstalledVersion: column(row, verStart, verEnd),
			}
			if availStart >= 0 {
				pkg.AvailableVersion = column(row, availStart, srcStart)
			}
			if pkg.ID == "" {
				continue
			}
			packages = append(packages, pkg)
		}
	}

	if len(packages) == 0 {
		return nil, &types.MCPError{
			Kind:    types.ErrKindMalformedOutput,
			Message: "could not recover any package records from winget output",
		}
	}
	return packages, nil
}

// parseSources extracts source records from a `winget source list` table
// (columns Name and Argument). A host with every source removed answers with
// a message instead of a table; that is an empty set, not malformed output.
func parseSources(raw string) ([]types.SourceSpec, error) {
	sources := []types.SourceSpec{}
	if strings.TrimSpace(raw) == "" {
		return sources, nil
	}
	if strings.Contains(raw, "There are no sources configured") {
		return sources, nil
	}

	header, rows, ok := findTable(raw, []string{"Name", "Argument"})
	if ok {
		nameStart := strings.Index(header, "Name")
		argStart := strings.Index(header, "Argument")
		for _, row := range rows {
			if isSpinnerLine(row) {
				continue
			}
			name := column(row, nameStart, argStart)
			url := column(row, argStart, -1)
			if name == "" {
				continue
			}
			sources = append(sources, types.SourceSpec{Name: name, URL: url})
		}
	}

	if len(sources) == 0 {
		return nil, &types.MCPError{
			Kind:    types.ErrKindMalformedOutput,
			Message: "could not recover any source records from winget output",
		}
	}
	return sources, nil
}
