// Package dist builds the deployable distributions of a release: a
// source tarball of the module tree and a binary tarball for the
// platform the cell built. Artifacts land in a staging directory
// together with a SHA256SUMS manifest.
package dist

// Distribution kinds a deploy may request.
const (
	KindSource = "source"
	KindBinary = "binary"
)

// Artifact is one built distribution, the unit handed to the registry.
type Artifact struct {
	Kind    string `json:"kind"`
	Name    string `json:"name"`
	Path    string `json:"path"`
	Version string `json:"version"`
	SHA256  string `json:"sha256"`
	Size    int64  `json:"size"`
}
