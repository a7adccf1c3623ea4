package keywording

// Category is the kind of request a bug represents.
type Category int

const (
	CategoryOther Category = iota
	CategoryStableReq
	CategoryKeywordReq
)

var categoryNames = map[Category]string{
	CategoryOther:      "OTHER",
	CategoryStableReq:  "STABLEREQ",
	CategoryKeywordReq: "KEYWORDREQ",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "OTHER"
}

// Actionable reports whether bugs of this category carry a package list
// the processor should act on.
func (c Category) Actionable() bool {
	return c == CategoryStableReq || c == CategoryKeywordReq
}

// SanityFlag is the tri-state sanity-check flag stored on a bug.
type SanityFlag int

const (
	// SanityUnknown means the bug was never checked (flag unset)
	SanityUnknown SanityFlag = iota
	// SanityPassed means the last recorded check passed (flag "+")
	SanityPassed
	// SanityFailed means the last recorded check failed (flag "-")
	SanityFailed
)

func (f SanityFlag) String() string {
	switch f {
	case SanityPassed:
		return "passed"
	case SanityFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// BugInfo describes one bug-tracker entry. It is produced by the tracker
// client and treated as read-only.
type BugInfo struct {
	Category       Category
	RawPackageList string
	CC             []string
	DependsOn      []int
	Blocks         []int
	Sanity         SanityFlag
}

// PackageRequest is a single line of a bug's package list.
type PackageRequest struct {
	// Atom is the package atom as written on the bug
	Atom string
	// Arches are the requested architectures, de-duplicated, in first-seen order
	Arches []string
	// Line is the 1-based line number in the raw package list
	Line int
}

// Outcome is the result of processing one bug.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomePassed
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomePassed:
		return "passed"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}
