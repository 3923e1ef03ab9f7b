package version

import (
	"encoding/json"
	"runtime"
	"runtime/debug"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// Info describes a build of an executable
type Info struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Compiler  string `json:"compiler"`
	Source    string `json:"source,omitempty"`
	Tag       string `json:"tag,omitempty"`
	Branch    string `json:"branch,omitempty"`
	Hash      string `json:"hash,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
	Platform  string `json:"platform,omitempty"`
	Modified  bool   `json:"modified,omitempty"`
}

///////////////////////////////////////////////////////////////////////////////
// GLOBALS

// Set with -ldflags -X at build time
var (
	GitSource   string
	GitTag      string
	GitBranch   string
	GitHash     string
	GoBuildTime string
)

const shortHash = 12

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Version returns the git tag, then the branch, then the short VCS revision
// from the embedded build info, and finally "dev".
func Version() string {
	if GitTag != "" {
		return GitTag
	}
	if GitBranch != "" {
		return GitBranch
	}
	if hash := setting("vcs.revision"); hash != "" {
		return hash[:min(len(hash), shortHash)]
	}
	return "dev"
}

// Build returns the build information for the given executable name. Values
// set at build time take precedence over the embedded build info.
func Build(execName string) Info {
	info := Info{
		Name:      execName,
		Version:   Version(),
		Compiler:  runtime.Version(),
		Source:    GitSource,
		Tag:       GitTag,
		Branch:    GitBranch,
		Hash:      GitHash,
		BuildTime: GoBuildTime,
	}
	if build, ok := debug.ReadBuildInfo(); ok && info.Source == "" {
		info.Source = build.Main.Path
	}
	if info.Hash == "" {
		info.Hash = setting("vcs.revision")
	}
	if info.BuildTime == "" {
		info.BuildTime = setting("vcs.time")
	}
	if goos, goarch := setting("GOOS"), setting("GOARCH"); goos != "" && goarch != "" {
		info.Platform = goos + "/" + goarch
	}
	info.Modified = setting("vcs.modified") == "true"
	return info
}

// JSON returns the indented build information for the given executable name.
func JSON(execName string) []byte {
	data, err := json.MarshalIndent(Build(execName), "", "  ")
	if err != nil {
		panic(err)
	}
	return data
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func setting(key string) string {
	if build, ok := debug.ReadBuildInfo(); ok {
		for _, s := range build.Settings {
			if s.Key == key {
				return s.Value
			}
		}
	}
	return ""
}
