//go:build linux

package scanner

import (
	"io/fs"
	"syscall"
	"time"
)

// fileTimes returns the created and accessed times of info. Linux exposes no
// portable birth time through stat(2), so the inode change time stands in.
func fileTimes(info fs.FileInfo) (created, accessed time.Time) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return info.ModTime(), info.ModTime()
	}
	return time.Unix(int64(st.Ctim.Sec), int64(st.Ctim.Nsec)),
		time.Unix(int64(st.Atim.Sec), int64(st.Atim.Nsec))
}
