package version

import "fmt"

// set via ldflags
var (
	Version   = "dev"
	GitHash   = "unknown"
	BuildDate = "unknown"
)

var FullVersion = fmt.Sprintf("%s (%s, built %s)", Version, GitHash, BuildDate)
