//go:build !linux && !darwin && !windows

package scanner

import (
	"io/fs"
	"time"
)

func fileTimes(info fs.FileInfo) (created, accessed time.Time) {
	return info.ModTime(), info.ModTime()
}
