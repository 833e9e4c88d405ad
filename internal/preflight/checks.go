package preflight

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"csvwatch/internal/convert"
)

// CheckWatchDirectory verifies that a watch root exists, is a directory, and
// can be listed. Watch roots are never created on the user's behalf.
func CheckWatchDirectory(path string) Result {
	name := "Watch directory"
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (readable)", path)}
}

// CheckOutputDirectory verifies that the output directory exists and is
// writable. The directory is created when missing; failing to create it is
// the check failure.
func CheckOutputDirectory(path string) Result {
	name := "Output directory"
	if err := os.MkdirAll(path, 0o755); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: create: %v)", path, err)}
	}
	if err := unix.Access(path, unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (writable)", path)}
}

// minFreeBytes is the least free space the output filesystem must offer at
// startup. Conversions on a full disk would fail on every job.
const minFreeBytes = 64 << 20

// statfs reports the free bytes on the filesystem holding path. Swapped in
// tests.
var statfs = func(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}

// CheckFreeSpace verifies the output filesystem has room for new documents.
func CheckFreeSpace(path string) Result {
	name := "Output free space"
	free, err := statfs(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	if free < minFreeBytes {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: only %d MiB free, need %d MiB)", path, free>>20, minFreeBytes>>20)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d MiB free)", path, free>>20)}
}

// CheckEncoding verifies the configured input encoding resolves to a known
// decoder.
func CheckEncoding(name string) Result {
	const checkName = "Input encoding"
	if _, err := convert.ResolveEncoding(name); err != nil {
		return Result{Name: checkName, Detail: err.Error()}
	}
	display := name
	if display == "" {
		display = convert.EncodingUTF8SIG
	}
	return Result{Name: checkName, Passed: true, Detail: display}
}
