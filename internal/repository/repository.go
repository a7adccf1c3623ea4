// Package repository resolves package atoms to ebuilds in an ebuild
// repository and persists keyword changes.
package repository

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/obentoo/nattka/internal/common/config"
	"github.com/obentoo/nattka/internal/common/ebuild"
)

var (
	// ErrUnresolvedAtom is matched by every atom resolution failure
	ErrUnresolvedAtom = errors.New("unable to resolve atom")
	// ErrPackageNotFound indicates no ebuild matches the atom
	ErrPackageNotFound = errors.New("no ebuild matches atom")
	// ErrUnsupportedAtom indicates an atom operator that cannot select one ebuild
	ErrUnsupportedAtom = errors.New("atom operator not supported for stabilization")
)

// ResolveError wraps a resolution failure with the atom that caused it
type ResolveError struct {
	Atom string
	Err  error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("%s: %v", e.Atom, e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrUnresolvedAtom) match.
func (e *ResolveError) Is(target error) bool {
	return target == ErrUnresolvedAtom
}

// AmbiguousAtomError indicates an unversioned atom matching several ebuilds
type AmbiguousAtomError struct {
	Candidates []string
}

func (e *AmbiguousAtomError) Error() string {
	return "atom matches multiple ebuilds: " + strings.Join(e.Candidates, ", ")
}

// Package is a resolved ebuild together with its keyword state
type Package struct {
	ebuild.Ebuild
	// Path is the absolute path of the ebuild file
	Path string
	// Keywords are the KEYWORDS entries in file order
	Keywords []string
	// original is the file content read at resolve time, used by Restore
	original []byte
}

// Repository is an ebuild repository on disk
type Repository struct {
	path string
}

// Open returns a Repository rooted at path after validating its layout.
func Open(path string) (*Repository, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, config.ErrRepoPathNotFound
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, config.ErrRepoPathNotFound
	}

	result := config.ValidateRepoStructure(path)
	if !result.Valid {
		return nil, &config.RepoValidationError{Path: path, Errors: result.Errors}
	}

	return &Repository{path: path}, nil
}

// Path returns the repository root
func (r *Repository) Path() string {
	return r.path
}

// Resolve maps an atom to exactly one ebuild.
//
// A versioned atom ("cat/pkg-1.0" or "=cat/pkg-1.0") selects that ebuild. An
// unversioned atom selects the package's only non-live ebuild. Every failure
// is a *ResolveError matching ErrUnresolvedAtom.
func (r *Repository) Resolve(atomStr string) (*Package, error) {
	fail := func(err error) (*Package, error) {
		return nil, &ResolveError{Atom: atomStr, Err: err}
	}

	atom, err := ebuild.ParseAtom(atomStr)
	if err != nil {
		return fail(err)
	}
	if atom.Operator != "" && atom.Operator != "=" {
		return fail(fmt.Errorf("%w: %q", ErrUnsupportedAtom, atom.Operator))
	}

	versions, err := packageVersions(r.path, atom.Category, atom.Package)
	if err != nil {
		return fail(err)
	}

	var version string
	if atom.Versioned() {
		for _, v := range versions {
			if v == atom.Version {
				version = v
				break
			}
		}
	} else {
		candidates := filterLiveVersions(versions)
		if len(candidates) > 1 {
			cpvs := make([]string, len(candidates))
			for i, v := range candidates {
				cpvs[i] = atom.Key() + "-" + v
			}
			return fail(&AmbiguousAtomError{Candidates: cpvs})
		}
		if len(candidates) == 1 {
			version = candidates[0]
		}
	}
	if version == "" {
		return fail(ErrPackageNotFound)
	}

	pkg := &Package{
		Ebuild: ebuild.Ebuild{
			Category: atom.Category,
			Package:  atom.Package,
			Version:  version,
		},
	}
	pkg.Path = filepath.Join(r.path, filepath.FromSlash(pkg.Ebuild.String()))

	content, err := os.ReadFile(pkg.Path)
	if err != nil {
		return fail(err)
	}
	keywords, err := ebuild.ParseKeywords(content)
	if err != nil {
		return fail(err)
	}
	pkg.Keywords = keywords
	pkg.original = content

	return pkg, nil
}

// WriteKeywords rewrites the KEYWORDS assignment of pkg on disk and updates
// pkg.Keywords. Only the KEYWORDS value changes.
func (r *Repository) WriteKeywords(pkg *Package, keywords []string) error {
	content, err := os.ReadFile(pkg.Path)
	if err != nil {
		return err
	}

	updated, err := ebuild.ReplaceKeywords(content, keywords)
	if err != nil {
		return fmt.Errorf("%s: %w", pkg.CPV(), err)
	}

	if err := writeFileAtomic(pkg.Path, updated); err != nil {
		return fmt.Errorf("%s: %w", pkg.CPV(), err)
	}

	pkg.Keywords = append([]string(nil), keywords...)
	return nil
}

// Restore writes back the content pkg had when it was resolved.
func (r *Repository) Restore(pkg *Package) error {
	if pkg.original == nil {
		return nil
	}
	if err := writeFileAtomic(pkg.Path, pkg.original); err != nil {
		return fmt.Errorf("restoring %s: %w", pkg.CPV(), err)
	}
	keywords, err := ebuild.ParseKeywords(pkg.original)
	if err != nil {
		return err
	}
	pkg.Keywords = keywords
	return nil
}

// RelPath returns the ebuild path relative to the repository root
func (r *Repository) RelPath(pkg *Package) string {
	return pkg.Ebuild.String()
}

// writeFileAtomic writes to a temp file first, then renames it into place,
// keeping the original file mode
func writeFileAtomic(path string, data []byte) error {
	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, mode); err != nil {
		return fmt.Errorf("failed to write ebuild: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename ebuild: %w", err)
	}

	return nil
}
