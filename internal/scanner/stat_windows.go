//go:build windows

package scanner

import (
	"io/fs"
	"syscall"
	"time"
)

func fileTimes(info fs.FileInfo) (created, accessed time.Time) {
	d, ok := info.Sys().(*syscall.Win32FileAttributeData)
	if !ok {
		return info.ModTime(), info.ModTime()
	}
	return time.Unix(0, d.CreationTime.Nanoseconds()),
		time.Unix(0, d.LastAccessTime.Nanoseconds())
}
