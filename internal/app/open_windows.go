//go:build windows

package app

func openLauncher(path string) launcher {
	// The empty argument is the window title start expects before a quoted path.
	return launcher{name: "cmd", args: []string{"/c", "start", "", path}}
}

func revealLauncher(path string) launcher {
	return launcher{name: "explorer", args: []string{"/select,", path}}
}
