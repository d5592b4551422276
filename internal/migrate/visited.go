package migrate

// versionSet tracks the versions one migration walk has already left.
//
// Revisiting a version means a migrator sent the state back to an earlier
// schema, so the walk would never terminate. Each walk owns its own set;
// it is not shared between goroutines.
type versionSet struct {
	versions map[string]bool
}

func newVersionSet() *versionSet {
	return &versionSet{versions: make(map[string]bool)}
}

func (s *versionSet) seen(version string) bool {
	return s.versions[version]
}

func (s *versionSet) add(version string) {
	s.versions[version] = true
}
