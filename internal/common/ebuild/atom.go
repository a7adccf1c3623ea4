package ebuild

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrInvalidAtom is returned when a string is not a syntactically valid atom
	ErrInvalidAtom = errors.New("invalid package atom")
	// ErrMissingVersion is returned when an operator is used without a version
	ErrMissingVersion = errors.New("version operator requires a version")
)

// Supported atom operators, longest first so prefixes match correctly
var atomOperators = []string{">=", "<=", "=", ">", "<", "~"}

var (
	categoryRegex = regexp.MustCompile(`^[A-Za-z0-9+_][A-Za-z0-9+_.-]*$`)
	packageRegex  = regexp.MustCompile(`^[A-Za-z0-9+_][A-Za-z0-9+_-]*$`)
	// versionedNameRegex splits "name-1.2.3_rc1-r1" into name and version
	versionedNameRegex = regexp.MustCompile(`^(.+)-(\d+(?:\.\d+)*[a-z]?(?:_(?:alpha|beta|pre|rc|p)\d*)*(?:-r\d+)?)$`)
)

// Atom is a parsed package atom, e.g. "=dev-libs/foo-1.0-r1" or "dev-libs/foo".
type Atom struct {
	Operator string // "", "=", ">=", "<=", ">", "<" or "~"
	Category string // e.g., "dev-libs"
	Package  string // e.g., "foo"
	Version  string // e.g., "1.0-r1", empty for unversioned atoms
}

// ParseAtom parses a package atom. A version may follow the package name with
// or without the "=" operator; the other operators require one.
func ParseAtom(s string) (*Atom, error) {
	atom := &Atom{}
	rest := s
	for _, op := range atomOperators {
		if strings.HasPrefix(rest, op) {
			atom.Operator = op
			rest = rest[len(op):]
			break
		}
	}

	category, name, ok := strings.Cut(rest, "/")
	if !ok || strings.Contains(name, "/") {
		return nil, fmt.Errorf("%w: expected category/package", ErrInvalidAtom)
	}
	if !categoryRegex.MatchString(category) {
		return nil, fmt.Errorf("%w: bad category %q", ErrInvalidAtom, category)
	}
	atom.Category = category

	if m := versionedNameRegex.FindStringSubmatch(name); m != nil {
		atom.Package = m[1]
		atom.Version = m[2]
	} else {
		atom.Package = name
	}

	if !packageRegex.MatchString(atom.Package) {
		return nil, fmt.Errorf("%w: bad package name %q", ErrInvalidAtom, atom.Package)
	}
	if atom.Operator != "" && atom.Version == "" {
		return nil, ErrMissingVersion
	}

	return atom, nil
}

// Key returns the category/package form
func (a *Atom) Key() string {
	return a.Category + "/" + a.Package
}

// Versioned reports whether the atom names a single version
func (a *Atom) Versioned() bool {
	return a.Version != ""
}

// String renders the atom back into its textual form
func (a *Atom) String() string {
	if a.Version == "" {
		return a.Operator + a.Key()
	}
	return a.Operator + a.Key() + "-" + a.Version
}
