//go:build windows

package fs

import (
	"os"
	"syscall"
	"time"
)

func fileTimes(_ string, info os.FileInfo) (created, accessed time.Time) {
	d, ok := info.Sys().(*syscall.Win32FileAttributeData)
	if !ok {
		return created, accessed
	}
	created = time.Unix(0, d.CreationTime.Nanoseconds())
	accessed = time.Unix(0, d.LastAccessTime.Nanoseconds())
	return created, accessed
}
