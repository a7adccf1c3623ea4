package keywording

import "strings"

// RecoveryMessage is posted when a bug that previously failed passes again.
const RecoveryMessage = "All sanity-check issues have been resolved"

// ActionKind is the change to apply to a bug's sanity-check flag.
type ActionKind int

const (
	ActionNoOp ActionKind = iota
	ActionSetPassed
	ActionSetFailed
)

func (k ActionKind) String() string {
	switch k {
	case ActionSetPassed:
		return "set-passed"
	case ActionSetFailed:
		return "set-failed"
	default:
		return "no-op"
	}
}

// Action is the result of reconciling a bug's flag. An empty Message means
// the flag is changed without a comment.
type Action struct {
	Kind    ActionKind
	Message string
}

// NoOp reports whether the action requires no tracker write.
func (a Action) NoOp() bool {
	return a.Kind == ActionNoOp
}

// Passed is the flag value the tracker should record.
func (a Action) Passed() bool {
	return a.Kind == ActionSetPassed
}

// Reconcile decides how a bug's sanity flag must change given the outcome of
// the current pass. It returns a no-op whenever the tracker already records
// the outcome or the outcome is unknown, so every non-no-op action is a real
// state transition.
func Reconcile(previous SanityFlag, outcome Outcome, reasons []string) Action {
	switch outcome {
	case OutcomePassed:
		switch previous {
		case SanityPassed:
			return Action{Kind: ActionNoOp}
		case SanityFailed:
			return Action{Kind: ActionSetPassed, Message: RecoveryMessage}
		default:
			return Action{Kind: ActionSetPassed}
		}
	case OutcomeFailed:
		if previous == SanityFailed {
			return Action{Kind: ActionNoOp}
		}
		return Action{Kind: ActionSetFailed, Message: FailureMessage(reasons)}
	default:
		return Action{Kind: ActionNoOp}
	}
}

// FailureMessage renders failure reasons as a tracker comment.
func FailureMessage(reasons []string) string {
	if len(reasons) == 0 {
		return "Sanity check failed"
	}

	var b strings.Builder
	b.WriteString("Sanity check failed:\n")
	for _, reason := range reasons {
		for _, line := range strings.Split(strings.TrimRight(reason, "\n"), "\n") {
			b.WriteString("\n> ")
			b.WriteString(line)
		}
	}
	return b.String()
}
