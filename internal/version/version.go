package version

// Set with -ldflags "-X framescope/internal/version.VERSION=..."
var (
	VERSION = "dev"
	COMMIT  = "unknown"
)
