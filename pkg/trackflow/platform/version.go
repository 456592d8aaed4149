package platform

import (
	"fmt"
	"runtime/debug"
	"sync"
)

// Release version, overridable at link time with
// -ldflags "-X github.com/randalmurphal/trackflow/pkg/trackflow/platform.major=..."
var (
	major    = "1"
	minor    = "0"
	revision = "0"
)

// Version describes the running build.
type Version struct {
	Major     int
	Minor     int
	Revision  int
	Hash      string
	Timestamp string
}

// String returns "major.minor.revision".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Revision)
}

var current = sync.OnceValue(func() Version {
	v := Version{}
	fmt.Sscan(major, &v.Major)
	fmt.Sscan(minor, &v.Minor)
	fmt.Sscan(revision, &v.Revision)
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				v.Hash = s.Value
			case "vcs.time":
				v.Timestamp = s.Value
			}
		}
	}
	return v
})

// CurrentVersion returns the version of the running build.
func CurrentVersion() Version {
	return current()
}
