//go:build darwin

package fs

import (
	iofs "io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/charlievieth/fastwalk"
)

const volumesDir = "/Volumes"

// ListDrives returns the volumes mounted under /Volumes. The volume that
// links to / is listed first.
func ListDrives() []Drive {
	var (
		mu     sync.Mutex
		drives []Drive
	)

	conf := &fastwalk.Config{Follow: false}
	err := fastwalk.Walk(conf, volumesDir, func(path string, d iofs.DirEntry, err error) error {
		if err != nil || path == volumesDir {
			return nil
		}
		if filepath.Dir(path) != volumesDir {
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}

		name := d.Name()
		if target, err := os.Readlink(path); err == nil && target == "/" {
			mu.Lock()
			drives = append([]Drive{{Name: name, Path: "/"}}, drives...)
			mu.Unlock()
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if _, err := os.Stat(path); err != nil {
			return fastwalk.SkipDir
		}

		mu.Lock()
		drives = append(drives, Drive{Name: name, Path: path})
		mu.Unlock()
		return fastwalk.SkipDir
	})

	if err != nil || len(drives) == 0 {
		return []Drive{{Name: "Macintosh HD", Path: "/"}}
	}
	return drives
}
