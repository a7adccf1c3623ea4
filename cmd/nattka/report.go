package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/obentoo/nattka/internal/common/output"
	"github.com/obentoo/nattka/internal/keywording"
	"github.com/obentoo/nattka/internal/processor"
	"github.com/olekukonko/tablewriter"
)

// errBugsFailed is returned by commands whose run left failed bugs
var errBugsFailed = errors.New("one or more bugs failed")

// renderReports prints the results table followed by failure reasons
func renderReports(w io.Writer, reports []processor.BugReport) {
	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Bug", "Request", "Packages", "Outcome", "Flag", "Action"}),
	)

	for _, r := range reports {
		id := strconv.Itoa(r.ID)
		if r.Cached {
			id += " (cached)"
		}

		var pkgs []string
		for _, pkg := range r.Packages {
			pkgs = append(pkgs, pkg.CPV())
		}

		action := r.Action.Kind.String()
		switch {
		case r.Written:
			action += " (written)"
		case r.DryRun:
			action += " (dry run)"
		}

		_ = table.Append([]string{
			id,
			r.Category.String(),
			strings.Join(pkgs, "\n"),
			output.FormatStatus(r.Outcome.String()),
			output.FormatStatus(r.Previous.String()),
			output.FormatStatus(action),
		})
	}
	_ = table.Render()

	for _, r := range reports {
		if len(r.Reasons) == 0 && r.Err == nil {
			continue
		}
		fmt.Fprintf(w, "\n%s\n", output.Header.Sprintf("Bug %d", r.ID))
		for _, reason := range r.Reasons {
			fmt.Fprintf(w, "  %s\n", output.Failed.Sprint(reason))
		}
		if r.Err != nil {
			fmt.Fprintf(w, "  %s\n", output.Error.Sprintf("error: %v", r.Err))
		}
	}

	fmt.Fprintf(w, "\n%s\n", summary(reports))
}

// renderChanges prints the keyword change of every package per bug
func renderChanges(w io.Writer, reports []processor.BugReport) {
	for _, r := range reports {
		fmt.Fprintf(w, "%s %s\n", output.Header.Sprintf("Bug %d", r.ID), output.FormatStatus(r.Outcome.String()))

		if !r.Found {
			fmt.Fprintln(w, output.Dim.Sprint("  not found"))
		} else if !r.Category.Actionable() {
			fmt.Fprintln(w, output.Dim.Sprintf("  %s bugs carry no package list", r.Category))
		}

		for _, pkg := range r.Packages {
			switch {
			case pkg.Err != nil:
				fmt.Fprintf(w, "  %s: %s\n", output.FormatPackage(pkg.Atom), output.Error.Sprint(pkg.Err))
			case pkg.Changed():
				fmt.Fprintf(w, "  %s: %s -> %s\n", output.FormatPackage(pkg.CPV()),
					output.FormatKeywords(pkg.Before), output.FormatKeywords(pkg.After))
			default:
				fmt.Fprintf(w, "  %s: %s\n", output.FormatPackage(pkg.CPV()), output.Dim.Sprint("unchanged"))
			}
			if len(pkg.NotTesting) > 0 {
				fmt.Fprintf(w, "    %s\n", output.Warning.Sprintf("not keyworded: %s", strings.Join(pkg.NotTesting, " ")))
			}
		}

		shown := make(map[string]bool)
		for _, pkg := range r.Packages {
			if pkg.Err != nil {
				shown[pkg.Err.Error()] = true
			}
		}
		for _, reason := range r.Reasons {
			if !shown[reason] {
				fmt.Fprintf(w, "  %s\n", output.Warning.Sprint(reason))
			}
		}
	}
}

// summary counts outcomes, e.g. "3 bugs: 2 passed, 1 failed, 0 unknown"
func summary(reports []processor.BugReport) string {
	counts := make(map[keywording.Outcome]int)
	for _, r := range reports {
		counts[r.Outcome]++
	}
	return fmt.Sprintf("%d bugs: %s, %s, %s",
		len(reports),
		output.Passed.Sprintf("%d passed", counts[keywording.OutcomePassed]),
		output.Failed.Sprintf("%d failed", counts[keywording.OutcomeFailed]),
		output.Unknown.Sprintf("%d unknown", counts[keywording.OutcomeUnknown]),
	)
}

// anyFailed reports whether a run should exit non-zero
func anyFailed(reports []processor.BugReport) bool {
	for _, r := range reports {
		if r.Outcome == keywording.OutcomeFailed || r.Err != nil {
			return true
		}
	}
	return false
}
