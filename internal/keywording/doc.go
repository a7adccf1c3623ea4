// Package keywording implements the bug-driven keyword synchronization core.
//
// The package implements:
//   - Parsing of a bug's free-text package list into package requests
//   - Promotion of testing keywords (~arch) to stable for requested arches
//   - Reconciliation of a bug's sanity-check flag against a computed outcome
//
// Everything in this package is pure: it never touches the bug tracker or
// the repository. The processor package wires it to both.
//
// Usage:
//
//	reqs, err := keywording.ParsePackageList(bug.RawPackageList)
//	for _, req := range reqs {
//	    kw, changed, err := keywording.Apply(pkg.Keywords, req.Arches)
//	    ...
//	}
//	action := keywording.Reconcile(bug.Sanity, outcome, reasons)
package keywording
