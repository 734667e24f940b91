package conventions

import (
	"fmt"
	"path/filepath"
	"time"
)

const (
	// DefaultDataDir is the default ecx data directory name (relative to home).
	DefaultDataDir = ".ecx"
	// DBFile is the SQLite database filename.
	DBFile = "ecx.db"
	// FleetConfigFile is the default box fleet configuration filename.
	FleetConfigFile = "fleet.yaml"

	// DefaultRequestTimeout bounds regular box calls when the fleet config
	// does not set one.
	DefaultRequestTimeout = 15 * time.Second
	// DefaultDownloadTimeout bounds result downloads when the fleet config
	// does not set one.
	DefaultDownloadTimeout = 5 * time.Minute
)

// DBPath returns the SQLite database path inside a data directory.
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, DBFile)
}

// FleetConfigPath returns the fleet configuration path inside a data directory.
func FleetConfigPath(dataDir string) string {
	return filepath.Join(dataDir, FleetConfigFile)
}

// ResultArchiveFile returns the deterministic filename of one run's result
// archive.
func ResultArchiveFile(groupID, boxID, runID string) string {
	return fmt.Sprintf("%s_%s_%s.zip", groupID, boxID, runID)
}
