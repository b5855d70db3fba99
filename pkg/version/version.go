// Package version reports how the wikigraph binary was built.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"
)

// Set with -ldflags "-X github.com/Aman-CERP/wikigraph/pkg/version.Version=v1.2.3".
// When unset, Commit and Date fall back to the VCS stamp the Go toolchain
// embeds in module builds.
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// backends are the modules whose versions matter when comparing two
// installations: they decide the on-disk index formats and the Neo4j protocol.
var backends = []string{
	"github.com/neo4j/neo4j-go-driver/v5",
	"github.com/coder/hnsw",
	"github.com/blevesearch/bleve/v2",
	"modernc.org/sqlite",
	"github.com/modelcontextprotocol/go-sdk",
}

// BuildInfo is the JSON form printed by `wikigraph version --json`.
type BuildInfo struct {
	Version   string            `json:"version"`
	Commit    string            `json:"commit"`
	Date      string            `json:"date"`
	GoVersion string            `json:"go_version"`
	Platform  string            `json:"platform"`
	Backends  map[string]string `json:"backends,omitempty"`
}

// readBuildInfo is replaced in tests.
var readBuildInfo = debug.ReadBuildInfo

// GetInfo collects build information.
func GetInfo() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	bi, ok := readBuildInfo()
	if !ok {
		return info.withUnknowns()
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "" {
				info.Commit = shortRevision(s.Value)
			}
		case "vcs.time":
			if info.Date == "" {
				info.Date = s.Value
			}
		}
	}
	for _, dep := range bi.Deps {
		for _, want := range backends {
			if dep.Path == want {
				if info.Backends == nil {
					info.Backends = make(map[string]string)
				}
				info.Backends[dep.Path] = dep.Version
			}
		}
	}
	return info.withUnknowns()
}

func (b BuildInfo) withUnknowns() BuildInfo {
	if b.Commit == "" {
		b.Commit = "unknown"
	}
	if b.Date == "" {
		b.Date = "unknown"
	}
	return b
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}

// String is the one-line summary.
func String() string {
	info := GetInfo()
	return fmt.Sprintf("wikigraph %s (commit: %s, built: %s, go: %s, %s)",
		info.Version, info.Commit, info.Date, info.GoVersion, info.Platform)
}

// Short returns the bare version.
func Short() string { return Version }

// BackendLines renders the backend versions sorted by module path, one per line.
func (b BuildInfo) BackendLines() []string {
	paths := make([]string, 0, len(b.Backends))
	for p := range b.Backends {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	lines := make([]string, 0, len(paths))
	for _, p := range paths {
		lines = append(lines, fmt.Sprintf("%-40s %s", strings.TrimSuffix(p, "/v2"), b.Backends[p]))
	}
	return lines
}
