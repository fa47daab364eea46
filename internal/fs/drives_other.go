//go:build !linux && !darwin && !windows

package fs

// ListDrives returns the filesystem root.
func ListDrives() []Drive {
	return []Drive{{Name: "/ (Root)", Path: "/"}}
}
