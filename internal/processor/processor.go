// Package processor runs the bug-driven keyword pipeline: it fetches bugs,
// applies their package lists to the repository, runs sanity checks and
// reconciles the tracker's sanity-check flag.
package processor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/obentoo/nattka/internal/common/logger"
	"github.com/obentoo/nattka/internal/keywording"
	"github.com/obentoo/nattka/internal/repository"
)

// BugSource supplies bug data by ID
type BugSource interface {
	FetchPackageList(ctx context.Context, ids []int) (map[int]keywording.BugInfo, error)
}

// BugSink records a bug's sanity-check result
type BugSink interface {
	UpdateStatus(ctx context.Context, id int, passed bool, comment string) error
}

// PackageStore resolves atoms and persists keyword changes
type PackageStore interface {
	Path() string
	Resolve(atom string) (*repository.Package, error)
	WriteKeywords(pkg *repository.Package, keywords []string) error
	Restore(pkg *repository.Package) error
}

// Mode selects what happens to the repository after keywords are applied
type Mode int

const (
	// ModeProcess applies, runs checks, restores the repository and
	// reconciles the tracker flag
	ModeProcess Mode = iota
	// ModeApply applies keywords and keeps the changes
	ModeApply
)

func (m Mode) String() string {
	if m == ModeApply {
		return "apply"
	}
	return "process"
}

// MalformedPolicy decides the outcome of a bug whose package list has
// unparseable lines
type MalformedPolicy int

const (
	// MalformedFails marks the bug failed
	MalformedFails MalformedPolicy = iota
	// MalformedIgnored skips bad lines and leaves the bug unknown
	MalformedIgnored
)

// ParseMalformedPolicy maps the config value to a policy
func ParseMalformedPolicy(s string) (MalformedPolicy, error) {
	switch s {
	case "", "failed":
		return MalformedFails, nil
	case "unknown":
		return MalformedIgnored, nil
	default:
		return MalformedFails, fmt.Errorf("unknown malformed policy %q", s)
	}
}

// PackageResult describes what happened to one package request
type PackageResult struct {
	Atom   string
	Arches []string
	// Key, Version and RelPath are set once the atom resolved
	Key     string
	Version string
	RelPath string
	Before  []string
	After   []string
	// Promoted lists the arches that went from ~arch to arch
	Promoted []string
	// NotTesting lists requested arches with no keyword at all
	NotTesting []string
	Err        error
}

// CPV returns category/package-version, or the atom if it did not resolve
func (r PackageResult) CPV() string {
	if r.Key == "" {
		return r.Atom
	}
	return r.Key + "-" + r.Version
}

// Changed reports whether the request altered KEYWORDS
func (r PackageResult) Changed() bool {
	return len(r.Promoted) > 0
}

// BugReport is the result of processing one bug
type BugReport struct {
	ID       int
	Found    bool
	Category keywording.Category
	Previous keywording.SanityFlag
	Outcome  keywording.Outcome
	Reasons  []string
	Action   keywording.Action
	Packages []PackageResult
	// Cached is set when the outcome came from the check cache
	Cached bool
	// Written is set when the tracker accepted the action
	Written bool
	// DryRun is set when a non-NoOp action was withheld by dry run
	DryRun bool
	// Err holds a tracker write or infrastructure error
	Err error
}

// Processor runs the per-bug pipeline
type Processor struct {
	source BugSource
	sink   BugSink
	store  PackageStore
	mode   Mode
	dryRun bool
	jobs   int
	policy MalformedPolicy
	checks []Check
	cache  *Cache
	force  bool
	log    *logger.Logger
	locks  *pathLocks
	tree   sync.Mutex
}

// Option is a functional option for configuring Processor
type Option func(*Processor)

// WithMode sets apply or process mode
func WithMode(mode Mode) Option {
	return func(p *Processor) {
		p.mode = mode
	}
}

// WithDryRun computes everything without writing to the tracker, and in
// apply mode without writing files
func WithDryRun(dryRun bool) Option {
	return func(p *Processor) {
		p.dryRun = dryRun
	}
}

// WithJobs sets how many bugs are processed concurrently
func WithJobs(jobs int) Option {
	return func(p *Processor) {
		if jobs > 0 {
			p.jobs = jobs
		}
	}
}

// WithMalformedPolicy sets the handling of malformed package lists
func WithMalformedPolicy(policy MalformedPolicy) Option {
	return func(p *Processor) {
		p.policy = policy
	}
}

// WithChecks sets the sanity checks run in process mode
func WithChecks(checks []Check) Option {
	return func(p *Processor) {
		p.checks = checks
	}
}

// WithCache enables the check cache; force bypasses lookups
func WithCache(cache *Cache, force bool) Option {
	return func(p *Processor) {
		p.cache = cache
		p.force = force
	}
}

// WithLogger sets the logger
func WithLogger(l *logger.Logger) Option {
	return func(p *Processor) {
		p.log = l
	}
}

// New creates a Processor. sink may be nil in apply mode.
func New(source BugSource, sink BugSink, store PackageStore, opts ...Option) *Processor {
	p := &Processor{
		source: source,
		sink:   sink,
		store:  store,
		jobs:   1,
		log:    logger.Default(),
		locks:  newPathLocks(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes the given bugs and returns one report per ID, in input
// order. The error joins every tracker write failure; a fetch failure
// aborts the run. Cancelling ctx stops scheduling further bugs.
func (p *Processor) Run(ctx context.Context, ids []int) ([]BugReport, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	bugs, err := p.source.FetchPackageList(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetching bugs: %w", err)
	}

	reports := make([]BugReport, len(ids))
	var g errgroup.Group
	g.SetLimit(p.jobs)

	for i, id := range ids {
		if ctx.Err() != nil {
			reports[i] = BugReport{ID: id, Err: ctx.Err()}
			continue
		}
		info, found := bugs[id]
		i, id := i, id
		g.Go(func() error {
			reports[i] = p.processBug(ctx, id, info, found)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, r := range reports {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("bug %d: %w", r.ID, r.Err))
		}
	}
	return reports, errors.Join(errs...)
}

// processBug runs the whole pipeline for one bug
func (p *Processor) processBug(ctx context.Context, id int, info keywording.BugInfo, found bool) BugReport {
	log := p.log.With("bug %d", id)
	report := BugReport{
		ID:       id,
		Found:    found,
		Category: info.Category,
		Previous: info.Sanity,
	}

	switch {
	case !found:
		log.Warn("not returned by the tracker")
		return report
	case !info.Category.Actionable():
		log.Debug("skipping %s bug", info.Category)
		return report
	}

	reqs, parseErr := keywording.ParsePackageList(info.RawPackageList)
	if len(reqs) == 0 && parseErr == nil {
		log.Info("empty package list")
		return report
	}

	var reasons, ignored []string
	if parseErr != nil {
		for _, e := range splitJoined(parseErr) {
			log.Warn("%v", e)
			if p.policy == MalformedFails {
				reasons = append(reasons, e.Error())
			} else {
				ignored = append(ignored, e.Error())
			}
		}
		// An ignored malformed line leaves the bug Unknown; apply mode
		// still applies the valid lines.
		if len(ignored) > 0 && (len(reqs) == 0 || p.mode == ModeProcess) {
			report.Reasons = ignored
			report.Packages = requestResults(reqs)
			p.reconcile(ctx, log, &report)
			return report
		}
	}

	digest := Digest(info.RawPackageList)
	if p.mode == ModeProcess && p.cache != nil && !p.force {
		if outcome, cachedReasons, ok := p.cache.Lookup(id, digest); ok {
			log.Debug("using cached outcome %s", outcome)
			report.Cached = true
			report.Outcome = outcome
			report.Reasons = cachedReasons
			report.Packages = requestResults(reqs)
			p.reconcile(ctx, log, &report)
			return report
		}
	}

	pkgReasons, infraErr := p.applyRequests(ctx, log, reqs, &report)
	reasons = append(reasons, pkgReasons...)
	if infraErr != nil {
		report.Err = infraErr
	}

	switch {
	case len(reasons) > 0:
		report.Outcome = keywording.OutcomeFailed
	case len(ignored) > 0:
		report.Outcome = keywording.OutcomeUnknown
	default:
		report.Outcome = keywording.OutcomePassed
	}
	report.Reasons = append(reasons, ignored...)

	if p.mode == ModeProcess && p.cache != nil && infraErr == nil {
		if err := p.cache.Put(id, digest, report.Outcome, report.Reasons); err != nil {
			log.Warn("caching outcome: %v", err)
		}
	}

	p.reconcile(ctx, log, &report)
	return report
}

// applyRequests resolves, applies, checks and (in process mode) restores
// every package of a bug while holding the locks of its ebuild paths. It
// returns the failure reasons and any restore error.
func (p *Processor) applyRequests(ctx context.Context, log *logger.Entry, reqs []keywording.PackageRequest, report *BugReport) ([]string, error) {
	var reasons []string

	// Resolve once to learn the paths, then again under lock so the
	// snapshot used by Restore is not another bug's in-flight write.
	var paths []string
	for _, req := range reqs {
		if pkg, err := p.store.Resolve(req.Atom); err == nil {
			paths = append(paths, pkg.Path)
		}
	}
	// Checks see the whole working tree, so no other bug may have edits
	// on disk while they run.
	if p.mode == ModeProcess && len(p.checks) > 0 {
		p.tree.Lock()
		defer p.tree.Unlock()
	}
	unlock := p.locks.LockAll(paths)
	defer unlock()

	writeFiles := !(p.mode == ModeApply && p.dryRun)
	byPath := make(map[string]*repository.Package)
	var touched []*repository.Package

	for _, req := range reqs {
		result := PackageResult{Atom: req.Atom, Arches: req.Arches}

		pkg, err := p.store.Resolve(req.Atom)
		if err != nil {
			log.Error("%v", err)
			result.Err = err
			reasons = append(reasons, err.Error())
			report.Packages = append(report.Packages, result)
			continue
		}
		if seen, ok := byPath[pkg.Path]; ok {
			pkg = seen
		} else {
			byPath[pkg.Path] = pkg
		}

		result.Key = pkg.FullName()
		result.Version = pkg.Version
		result.RelPath = pkg.Ebuild.String()
		result.Before = slices.Clone(pkg.Keywords)

		keywords, changed, err := keywording.Apply(pkg.Keywords, req.Arches)
		var notTesting *keywording.ArchNotTestingError
		if errors.As(err, &notTesting) {
			result.NotTesting = notTesting.Arches
			log.Warn("%s: %v", result.CPV(), err)
		}
		result.After = keywords
		result.Promoted = promoted(result.Before, keywords)

		if changed {
			if writeFiles {
				if err := p.store.WriteKeywords(pkg, keywords); err != nil {
					log.Error("%v", err)
					result.Err = err
					reasons = append(reasons, err.Error())
					report.Packages = append(report.Packages, result)
					continue
				}
				if !slices.Contains(touched, pkg) {
					touched = append(touched, pkg)
				}
			} else {
				pkg.Keywords = keywords
			}
			log.Info("%s: %s", result.CPV(), strings.Join(result.Promoted, " "))
		}

		report.Packages = append(report.Packages, result)
	}

	if p.mode != ModeProcess {
		return reasons, nil
	}

	if len(reasons) == 0 {
		reasons = append(reasons, p.runChecks(ctx, log, byPath)...)
	}

	var restoreErrs []error
	for _, pkg := range touched {
		if err := p.store.Restore(pkg); err != nil {
			log.Error("%v", err)
			restoreErrs = append(restoreErrs, err)
		}
	}
	return reasons, errors.Join(restoreErrs...)
}

// runChecks runs every configured check against the bug's packages
func (p *Processor) runChecks(ctx context.Context, log *logger.Entry, pkgs map[string]*repository.Package) []string {
	if len(p.checks) == 0 {
		return nil
	}

	keys := make([]string, 0, len(pkgs))
	for _, pkg := range pkgs {
		keys = append(keys, pkg.FullName())
	}
	slices.Sort(keys)
	keys = slices.Compact(keys)

	var reasons []string
	for _, check := range p.checks {
		log.Debug("running check %s", check.Name)
		if err := check.Run(ctx, p.store.Path(), keys); err != nil {
			log.Warn("%v", err)
			reasons = append(reasons, err.Error())
		}
	}
	return reasons
}

// reconcile computes the tracker action and, unless in apply mode or dry
// run, writes it
func (p *Processor) reconcile(ctx context.Context, log *logger.Entry, report *BugReport) {
	if p.mode != ModeProcess {
		return
	}

	report.Action = keywording.Reconcile(report.Previous, report.Outcome, report.Reasons)
	if report.Action.NoOp() {
		return
	}
	if p.dryRun {
		report.DryRun = true
		log.Info("would %s (dry run)", report.Action.Kind)
		return
	}
	if p.sink == nil {
		return
	}

	if err := p.sink.UpdateStatus(ctx, report.ID, report.Action.Passed(), report.Action.Message); err != nil {
		log.Error("updating tracker: %v", err)
		report.Err = errors.Join(report.Err, err)
		return
	}
	report.Written = true
	log.Info("sanity-check %s", report.Action.Kind)
}

// promoted returns the arches stable in after but testing in before
func promoted(before, after []string) []string {
	var arches []string
	for i, kw := range before {
		if i < len(after) && keywording.IsTesting(kw) && !keywording.IsTesting(after[i]) {
			arches = append(arches, after[i])
		}
	}
	return arches
}

// requestResults lists the requests of a bug answered from cache
func requestResults(reqs []keywording.PackageRequest) []PackageResult {
	results := make([]PackageResult, len(reqs))
	for i, req := range reqs {
		results[i] = PackageResult{Atom: req.Atom, Arches: req.Arches}
	}
	return results
}

// splitJoined unwraps an errors.Join result into its parts
func splitJoined(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}
