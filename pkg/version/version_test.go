package version

import (
	"encoding/json"
	"runtime"
	"testing"

	// Packages
	assert "github.com/stretchr/testify/assert"
)

func Test_Version(t *testing.T) {
	assert := assert.New(t)

	t.Cleanup(func() { GitTag, GitBranch = "", "" })

	GitBranch = "main"
	assert.Equal("main", Version())

	GitTag = "v1.2.3"
	assert.Equal("v1.2.3", Version())
}

func Test_Build(t *testing.T) {
	assert := assert.New(t)

	t.Cleanup(func() { GitHash, GoBuildTime = "", "" })
	GitHash = "abcdef"
	GoBuildTime = "2026-01-01T00:00:00Z"

	info := Build("formdata")
	assert.Equal("formdata", info.Name)
	assert.Equal(runtime.Version(), info.Compiler)
	assert.Equal("abcdef", info.Hash)
	assert.Equal("2026-01-01T00:00:00Z", info.BuildTime)

	var out map[string]any
	assert.NoError(json.Unmarshal(JSON("formdata"), &out))
	assert.Equal("formdata", out["name"])
	assert.Equal("abcdef", out["hash"])
}
