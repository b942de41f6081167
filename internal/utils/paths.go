package utils

import "path/filepath"

// ResolvePath anchors a relative path at baseDir. Absolute and empty paths
// are returned unchanged.
func ResolvePath(baseDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
