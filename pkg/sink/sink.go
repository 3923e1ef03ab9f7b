package sink

import (
	"path"
	"strings"
	"time"

	// Packages
	uuid "github.com/google/uuid"
)

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	// Layout of the timestamp which prefixes every artifact name
	timestampLayout = "2006_01_02_15_04_05"
)

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// artifactName returns a collision-resistant name for a stored part
func artifactName(now time.Time) string {
	return now.UTC().Format(timestampLayout) + "_" + uuid.NewString()
}

// preservedDir returns the directory component of a client filename, cleaned
// so it cannot escape the provider root. Returns empty string when there is
// no directory component.
func preservedDir(filename string) string {
	filename = strings.ReplaceAll(filename, "\\", "/")
	dir := path.Dir(path.Clean("/" + filename))
	dir = strings.TrimPrefix(dir, "/")
	if dir == "." {
		return ""
	}
	return dir
}
