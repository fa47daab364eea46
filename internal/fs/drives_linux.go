//go:build linux

package fs

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/justyntemme/chex/internal/debug"
)

// virtualFSTypes never hold user files.
var virtualFSTypes = map[string]bool{
	"tmpfs": true, "devtmpfs": true, "cgroup": true, "cgroup2": true,
	"proc": true, "sysfs": true, "overlay": true, "squashfs": true,
}

// ListDrives returns the root plus real mounts from /proc/mounts.
func ListDrives() []Drive {
	drives := []Drive{{Name: "/ (Root)", Path: "/"}}

	f, err := os.Open("/proc/mounts")
	if err != nil {
		debug.Log(debug.FS, "drives: %v", err)
		return drives
	}
	defer f.Close()
	return append(drives, parseMounts(bufio.NewScanner(f))...)
}

func parseMounts(sc *bufio.Scanner) []Drive {
	var drives []Drive
	seen := map[string]bool{"/": true}
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 3 {
			continue
		}
		mount, fsType := fields[1], fields[2]
		if seen[mount] || virtualFSTypes[fsType] || isSystemMount(mount) {
			continue
		}
		seen[mount] = true

		name := mount
		switch {
		case strings.HasPrefix(mount, "/media/"), strings.HasPrefix(mount, "/mnt/"):
			name = filepath.Base(mount)
		case mount == "/home":
			name = "Home"
		}
		drives = append(drives, Drive{Name: name, Path: mount})
	}
	return drives
}

func isSystemMount(mount string) bool {
	for _, prefix := range []string{"/sys", "/proc", "/dev", "/run", "/snap", "/boot"} {
		if mount == prefix || strings.HasPrefix(mount, prefix+"/") {
			return true
		}
	}
	return false
}
