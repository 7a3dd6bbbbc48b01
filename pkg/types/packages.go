package types

// NoOpNote marks an OpResult where the requested end-state already held.
// It is surfaced as a successful response, never as an error.
const NoOpNote = "NO_OP_COMPLETED"

// PackageInfo is one package record recovered from backend output.
type PackageInfo struct {
	ID               string `json:"id"`
	InstalledVersion string `json:"installed_version,omitempty"`
	AvailableVersion string `json:"available_version,omitempty"`
}

// PackageSpec is the caller-supplied identification of a package plus
// optional version and source constraints. Immutable once built from a
// request; the version constraint is passed through to the backend unparsed.
type PackageSpec struct {
	ID      string
	Version string
	Source  string
}

// SourceSpec describes a package source. Credentials, when present, are
// forwarded to the backend as native authentication arguments and are
// excluded from JSON output, logs, and error text.
type SourceSpec struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Type     string `json:"type,omitempty"`
	Username string `json:"-"`
	Password string `json:"-"`
	Priority int    `json:"priority,omitempty"`
}

// OpResult is the success payload of a state-changing operation. NoOp is set
// when the backend reported that nothing needed to change; Note carries the
// human-readable explanation in that case.
type OpResult struct {
	Status  string       `json:"status"`
	NoOp    bool         `json:"no_op,omitempty"`
	Note    string       `json:"note,omitempty"`
	Package *PackageInfo `json:"package,omitempty"`
}

// OKResult returns an OpResult for an operation that changed state.
func OKResult(pkg *PackageInfo) *OpResult {
	return &OpResult{Status: "ok", Package: pkg}
}

// NoOpResult returns an OpResult for an operation that found the requested
// end-state already in place.
func NoOpResult(note string, pkg *PackageInfo) *OpResult {
	return &OpResult{Status: "ok", NoOp: true, Note: NoOpNote + ": " + note, Package: pkg}
}
