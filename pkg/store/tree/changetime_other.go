//go:build !linux && !darwin

package tree

import (
	"io/fs"
	"time"
)

// updatedAt falls back to the modification time where the metadata-change
// time is not exposed.
func updatedAt(abs string, info fs.FileInfo) time.Time {
	return info.ModTime()
}
