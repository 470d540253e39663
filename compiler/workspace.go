package compiler

import (
	"os"
	"path/filepath"
)

// stdlibMarker is the file every Bish standard-library directory carries,
// used the same way the teacher's repository.Detector walks up looking for
// a project marker (inspector/repository/detector.go's findProjectRoot).
const stdlibMarker = "stdlib.bish"

// ResolveStdlibPath finds the Bish standard-library directory: cfg's
// StdlibPath if set, else walking up from startDir looking for a directory
// containing stdlibMarker, else "" if none is found.
func ResolveStdlibPath(cfg *Config, startDir string) string {
	if cfg.StdlibPath != "" {
		return cfg.StdlibPath
	}

	abs, err := filepath.Abs(startDir)
	if err != nil {
		return ""
	}
	if fi, err := os.Stat(abs); err == nil && !fi.IsDir() {
		abs = filepath.Dir(abs)
	}

	dir := abs
	for {
		candidate := filepath.Join(dir, "stdlib")
		if markerExists(candidate) {
			return candidate
		}
		if markerExists(dir) {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

func markerExists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, stdlibMarker))
	return err == nil
}
