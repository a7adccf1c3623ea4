package ebuild

import (
	"errors"
	"path/filepath"
	"strings"
)

var (
	ErrInvalidEbuildPath = errors.New("invalid ebuild path format")
)

// Ebuild identifies a single ebuild file inside a repository
type Ebuild struct {
	Category string // e.g., "app-misc"
	Package  string // e.g., "hello"
	Version  string // e.g., "1.0", "1.0_rc1", "1.0-r1"
}

// ParsePath parses a repository-relative ebuild path.
// Expected format: category/package/package-version.ebuild
func ParsePath(path string) (*Ebuild, error) {
	path = filepath.ToSlash(path)
	path = strings.TrimPrefix(path, "./")

	parts := strings.Split(path, "/")
	if len(parts) != 3 || !strings.HasSuffix(parts[2], ".ebuild") {
		return nil, ErrInvalidEbuildPath
	}

	category, pkg := parts[0], parts[1]
	m := versionedNameRegex.FindStringSubmatch(strings.TrimSuffix(parts[2], ".ebuild"))
	if m == nil || m[1] != pkg || category == "" {
		return nil, ErrInvalidEbuildPath
	}

	return &Ebuild{
		Category: category,
		Package:  pkg,
		Version:  m[2],
	}, nil
}

// FullName returns the category/package format
func (e *Ebuild) FullName() string {
	return e.Category + "/" + e.Package
}

// CPV returns the category/package-version format used in atoms and commit messages
func (e *Ebuild) CPV() string {
	return e.FullName() + "-" + e.Version
}

// String returns the repository-relative path: category/package/package-version.ebuild
func (e *Ebuild) String() string {
	return e.Category + "/" + e.Package + "/" + e.Package + "-" + e.Version + ".ebuild"
}
