//go:build darwin

package app

func openLauncher(path string) launcher {
	return launcher{name: "open", args: []string{path}}
}

func revealLauncher(path string) launcher {
	return launcher{name: "open", args: []string{"-R", path}}
}
