package keywording

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/obentoo/nattka/internal/common/ebuild"
)

// ErrMalformedRequest is matched by every error produced for an unparseable
// package list line.
var ErrMalformedRequest = errors.New("malformed package list line")

// archTokenRegex matches a bare architecture name (amd64, hppa, x64-macos)
var archTokenRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// MalformedRequestError describes a package list line that could not be parsed.
type MalformedRequestError struct {
	Line   int
	Text   string
	Reason string
}

func (e *MalformedRequestError) Error() string {
	return fmt.Sprintf("line %d: %s: %q", e.Line, e.Reason, e.Text)
}

// Is makes errors.Is(err, ErrMalformedRequest) match.
func (e *MalformedRequestError) Is(target error) bool {
	return target == ErrMalformedRequest
}

// ParsePackageList splits a bug's package list into requests.
// Malformed lines are skipped and reported through the returned error, which
// joins one *MalformedRequestError per bad line. The requests parsed from the
// remaining lines are returned regardless.
func ParsePackageList(raw string) ([]PackageRequest, error) {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")

	var requests []PackageRequest
	var errs []error

	for i, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		req, err := parseLine(i+1, line)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		requests = append(requests, req)
	}

	return requests, errors.Join(errs...)
}

// parseLine parses "<atom> <arch> [<arch> ...]"
func parseLine(lineNo int, line string) (PackageRequest, error) {
	fields := strings.Fields(line)
	text := strings.TrimSpace(line)

	if len(fields) < 2 {
		return PackageRequest{}, &MalformedRequestError{
			Line:   lineNo,
			Text:   text,
			Reason: "expected a package atom followed by at least one architecture",
		}
	}

	if _, err := ebuild.ParseAtom(fields[0]); err != nil {
		return PackageRequest{}, &MalformedRequestError{
			Line:   lineNo,
			Text:   text,
			Reason: fmt.Sprintf("invalid atom %q: %v", fields[0], err),
		}
	}

	seen := make(map[string]bool, len(fields)-1)
	arches := make([]string, 0, len(fields)-1)
	for _, arch := range fields[1:] {
		if !archTokenRegex.MatchString(arch) {
			return PackageRequest{}, &MalformedRequestError{
				Line:   lineNo,
				Text:   text,
				Reason: fmt.Sprintf("invalid architecture %q", arch),
			}
		}
		if seen[arch] {
			continue
		}
		seen[arch] = true
		arches = append(arches, arch)
	}

	return PackageRequest{
		Atom:   fields[0],
		Arches: arches,
		Line:   lineNo,
	}, nil
}

// FormatRequest renders a package list line that ParsePackageList reads back
// as the same atom and arches.
func FormatRequest(atom string, arches []string) string {
	return strings.Join(append([]string{atom}, arches...), " ")
}
