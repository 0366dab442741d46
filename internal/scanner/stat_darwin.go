//go:build darwin

package scanner

import (
	"io/fs"
	"syscall"
	"time"
)

func fileTimes(info fs.FileInfo) (created, accessed time.Time) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return info.ModTime(), info.ModTime()
	}
	return time.Unix(st.Birthtimespec.Sec, st.Birthtimespec.Nsec),
		time.Unix(st.Atimespec.Sec, st.Atimespec.Nsec)
}
