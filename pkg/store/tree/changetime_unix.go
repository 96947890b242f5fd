//go:build linux || darwin

package tree

import (
	"io/fs"
	"time"

	"golang.org/x/sys/unix"
)

// updatedAt is the later of the content-modify and metadata-change times.
func updatedAt(abs string, info fs.FileInfo) time.Time {
	modified := info.ModTime()

	var st unix.Stat_t
	if err := unix.Stat(abs, &st); err != nil {
		return modified
	}

	changed := time.Unix(st.Ctim.Unix())
	if changed.After(modified) {
		return changed
	}
	return modified
}
