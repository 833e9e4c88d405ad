package watchfs

import (
	"path/filepath"
	"strings"
)

var tempSuffixes = []string{".tmp", ".partial", ".part", ".crdownload"}

// Leading "." also covers hidden files on unix.
var tempPrefixes = []string{".~", "~$", "."}

// IsCandidate reports whether path names a CSV file the watcher should track:
// a .csv extension and none of the in-progress/temporary name markers writers
// and browsers use while a file is still being produced.
func IsCandidate(path string) bool {
	name := filepath.Base(path)
	if !strings.EqualFold(filepath.Ext(name), ".csv") {
		return false
	}
	return !IsProbablyTemp(name)
}

// IsProbablyTemp reports whether a bare file name carries a temporary-file
// marker (suffix or prefix).
func IsProbablyTemp(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range tempSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	for _, prefix := range tempPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
