package repository

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/obentoo/nattka/internal/common/ebuild"
)

// PackageInfo lists the ebuild versions of one package
type PackageInfo struct {
	Category string   // e.g., "dev-lang"
	Package  string   // e.g., "python"
	Versions []string // ascending
}

// FullName returns the category/package format
func (p PackageInfo) FullName() string {
	return p.Category + "/" + p.Package
}

// isCategory checks if a directory name can be a package category
func isCategory(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}

	skipDirs := map[string]bool{
		"profiles":  true,
		"metadata":  true,
		"eclass":    true,
		"licenses":  true,
		"scripts":   true,
		"distfiles": true,
		"packages":  true,
	}

	return !skipDirs[name]
}

// ScanPackages walks the repository and returns every package that has at
// least one ebuild, sorted by category/package.
func (r *Repository) ScanPackages() ([]PackageInfo, error) {
	entries, err := os.ReadDir(r.path)
	if err != nil {
		return nil, err
	}

	var packages []PackageInfo
	for _, entry := range entries {
		if !entry.IsDir() || !isCategory(entry.Name()) {
			continue
		}

		category := entry.Name()
		pkgEntries, err := os.ReadDir(filepath.Join(r.path, category))
		if err != nil {
			return nil, err
		}

		for _, pkgEntry := range pkgEntries {
			if !pkgEntry.IsDir() || strings.HasPrefix(pkgEntry.Name(), ".") {
				continue
			}

			versions, err := packageVersions(r.path, category, pkgEntry.Name())
			if err != nil {
				return nil, err
			}
			if len(versions) == 0 {
				continue
			}

			packages = append(packages, PackageInfo{
				Category: category,
				Package:  pkgEntry.Name(),
				Versions: versions,
			})
		}
	}

	sort.Slice(packages, func(i, j int) bool {
		if packages[i].Category != packages[j].Category {
			return packages[i].Category < packages[j].Category
		}
		return packages[i].Package < packages[j].Package
	})

	return packages, nil
}

// packageVersions returns every ebuild version found in a package directory,
// sorted ascending. A missing directory yields no versions and no error.
func packageVersions(repoPath, category, pkgName string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(repoPath, category, pkgName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var versions []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".ebuild") {
			continue
		}

		eb, err := ebuild.ParsePath(category + "/" + pkgName + "/" + entry.Name())
		if err != nil {
			// Not a valid ebuild, skip silently
			continue
		}

		// Validate package name matches directory
		if eb.Package != pkgName {
			continue
		}

		versions = append(versions, eb.Version)
	}

	ebuild.SortVersions(versions)
	return versions, nil
}

// isLiveVersion checks if a version is a live ebuild (9999, 99999999, 3.0.9999)
func isLiveVersion(version string) bool {
	return strings.Contains(version, "9999")
}

// filterLiveVersions removes live ebuild versions from a list
func filterLiveVersions(versions []string) []string {
	var filtered []string
	for _, v := range versions {
		if !isLiveVersion(v) {
			filtered = append(filtered, v)
		}
	}
	return filtered
}
