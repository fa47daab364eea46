package fs

// Drive is a mounted volume the user can navigate to.
type Drive struct {
	Name string
	Path string
}
