//go:build windows

package fs

import "golang.org/x/sys/windows"

// ListDrivePaths returns drive roots from GetLogicalDrives without touching
// the volumes, so it never blocks on disconnected drives.
func ListDrivePaths() []string {
	mask, err := windows.GetLogicalDrives()
	if err != nil {
		return nil
	}
	var paths []string
	for i := 0; i < 26; i++ {
		if mask&(1<<uint(i)) != 0 {
			paths = append(paths, string(rune('A'+i))+":\\")
		}
	}
	return paths
}

// ListDrives returns drives with volume labels. GetVolumeInformation can block
// on slow network or optical drives.
func ListDrives() []Drive {
	var drives []Drive
	for _, root := range ListDrivePaths() {
		letter := root[:2]
		p, err := windows.UTF16PtrFromString(root)
		if err != nil {
			continue
		}

		driveType := windows.GetDriveType(p)
		if driveType == windows.DRIVE_UNKNOWN || driveType == windows.DRIVE_NO_ROOT_DIR {
			continue
		}

		name := letter
		label := make([]uint16, windows.MAX_PATH+1)
		if err := windows.GetVolumeInformation(p, &label[0], uint32(len(label)), nil, nil, nil, nil, 0); err == nil {
			if v := windows.UTF16ToString(label); v != "" {
				name = v + " (" + letter + ")"
			}
		}
		if name == letter {
			switch driveType {
			case windows.DRIVE_REMOVABLE:
				name = "Removable (" + letter + ")"
			case windows.DRIVE_CDROM:
				name = "CD/DVD (" + letter + ")"
			case windows.DRIVE_REMOTE:
				name = "Network (" + letter + ")"
			}
		}
		drives = append(drives, Drive{Name: name, Path: root})
	}
	return drives
}
