package choco

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osbridge/pkgmgr-mcp/pkg/types"
)

func TestParsePackages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    []types.PackageInfo
		wantErr string
	}{
		{
			name: "limit output records",
			raw:  "git|2.40.0\n7zip|23.1.0\nnodejs|20.11.1\n",
			want: []types.PackageInfo{
				{ID: "git", InstalledVersion: "2.40.0"},
				{ID: "7zip", InstalledVersion: "23.1.0"},
				{ID: "nodejs", InstalledVersion: "20.11.1"},
			},
		},
		{
			name: "pre-release and multi-segment versions survive",
			raw:  "mytool|1.2.3-beta.4+build5\n",
			want: []types.PackageInfo{{ID: "mytool", InstalledVersion: "1.2.3-beta.4+build5"}},
		},
		{
			name: "unrecognized lines are skipped",
			raw:  "Chocolatey v2.2.2\ngit|2.40.0\n3 packages installed.\n",
			want: []types.PackageInfo{{ID: "git", InstalledVersion: "2.40.0"}},
		},
		{
			name: "empty output",
			raw:  "",
			want: []types.PackageInfo{},
		},
		{
			name: "no packages message is an empty set",
			raw:  "Chocolatey v2.2.2\nNo packages found.\n",
			want: []types.PackageInfo{},
		},
		{
			name:    "non-empty garbage is malformed",
			raw:     "!!! totally unexpected vendor banner !!!\n### ???\n",
			wantErr: types.ErrKindMalformedOutput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := parsePackages(tt.raw)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, err.(*types.MCPError).Kind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePackagesIsIdempotent(t *testing.T) {
	t.Parallel()

	raw := "git|2.40.0\n7zip|23.1.0\n"
	first, err := parsePackages(raw)
	require.NoError(t, err)
	second, err := parsePackages(raw)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestParseSources(t *testing.T) {
	t.Parallel()

	raw := "chocolatey|https://community.chocolatey.org/api/v2/|False|||0|False|False|False\n" +
		"internal|https://pkg.example/|False|svc||1|False|False|False\n"
	got, err := parseSources(raw)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "chocolatey", got[0].Name)
	assert.Equal(t, "https://community.chocolatey.org/api/v2/", got[0].URL)
	assert.Equal(t, 0, got[0].Priority)
	assert.Equal(t, "internal", got[1].Name)
	assert.Equal(t, 1, got[1].Priority)
}

func TestParseSourcesMalformed(t *testing.T) {
	t.Parallel()

	_, err := parseSources("some banner without pipes\n")
	require.Error(t, err)
	assert.Equal(t, types.ErrKindMalformedOutput, err.(*types.MCPError).Kind)
}

func TestExtractVersion(t *testing.T) {
	t.Parallel()

	stdout := "Installing the following packages:\ngit\n\ngit v2.40.0\n git package files install completed.\n"
	assert.Equal(t, "2.40.0", extractVersion(stdout, "git"))
	assert.Equal(t, "", extractVersion(stdout, "7zip"))
}
