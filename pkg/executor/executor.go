// Package executor applies a confirmed strategy to the filesystem: it
// creates destination folders, moves or copies each file, and resolves name
// conflicts with a numeric suffix. Failures are per-file; one bad file
// never aborts the rest of the run.
package executor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/sortd-ai/sortd/pkg/logger"
	"github.com/sortd-ai/sortd/pkg/types/organizer"
)

// Options configures an execution pass.
type Options struct {
	// Root is the directory destination paths are resolved under.
	Root string
	// DryRun simulates the pass without touching the filesystem.
	DryRun bool
	// Copy leaves sources in place instead of moving them.
	Copy bool
}

// Executor applies strategies.
type Executor struct {
	opts Options
}

func New(opts Options) *Executor {
	return &Executor{opts: opts}
}

// Execute applies every assignment of the strategy in order and returns the
// full per-file report. Conflict resolution is deterministic: the dry-run
// report names exactly the destinations a real run would produce.
func (e *Executor) Execute(ctx context.Context, s organizer.Strategy) organizer.ExecutionReport {
	report := organizer.ExecutionReport{DryRun: e.opts.DryRun, Copied: e.opts.Copy}

	// claimed tracks destinations taken earlier in this pass, so two
	// assignments to the same name conflict even before anything lands
	// on disk. madeDirs counts each folder once.
	claimed := map[string]bool{}
	madeDirs := map[string]bool{}

	for _, a := range s.Assignments {
		outcome := e.apply(ctx, a, claimed, madeDirs, &report)
		report.Outcomes = append(report.Outcomes, outcome)
		switch outcome.Status {
		case organizer.OutcomeApplied:
			report.Applied++
		case organizer.OutcomeSkipped:
			report.Skipped++
		case organizer.OutcomeFailed:
			report.Failed++
		}
	}
	return report
}

func (e *Executor) apply(ctx context.Context, a organizer.FileAssignment, claimed, madeDirs map[string]bool, report *organizer.ExecutionReport) organizer.AssignmentOutcome {
	log := logger.G(ctx).WithField("source", a.Source)

	target := filepath.Join(e.opts.Root, filepath.FromSlash(a.Dest))
	if sameFile(a.Source, target) {
		claimed[target] = true
		return organizer.AssignmentOutcome{
			Source: a.Source,
			Dest:   target,
			Status: organizer.OutcomeSkipped,
			Reason: "already in place",
		}
	}

	dest := resolveConflict(target, claimed)
	claimed[dest] = true
	outcome := organizer.AssignmentOutcome{Source: a.Source, Dest: dest}

	if _, err := os.Lstat(a.Source); err != nil {
		outcome.Status = organizer.OutcomeFailed
		outcome.Reason = err.Error()
		log.WithError(err).Warn("source vanished before execution")
		return outcome
	}

	dir := filepath.Dir(dest)
	if !madeDirs[dir] {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if !e.opts.DryRun {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					outcome.Status = organizer.OutcomeFailed
					outcome.Reason = err.Error()
					return outcome
				}
			}
			report.DirsCreated++
		}
		madeDirs[dir] = true
	}

	if e.opts.DryRun {
		outcome.Status = organizer.OutcomeApplied
		return outcome
	}

	var err error
	if e.opts.Copy {
		err = copyFile(a.Source, dest)
	} else {
		err = moveFile(a.Source, dest)
	}
	if err != nil {
		outcome.Status = organizer.OutcomeFailed
		outcome.Reason = err.Error()
		log.WithError(err).WithField("dest", dest).Warn("failed to place file")
		return outcome
	}

	outcome.Status = organizer.OutcomeApplied
	return outcome
}

// resolveConflict returns the first free variant of dest, appending _1, _2,
// ... before the extension while the name is taken on disk or by an earlier
// assignment in this pass.
func resolveConflict(dest string, claimed map[string]bool) string {
	if free(dest, claimed) {
		return dest
	}
	ext := filepath.Ext(dest)
	stem := strings.TrimSuffix(dest, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if free(candidate, claimed) {
			return candidate
		}
	}
}

func free(dest string, claimed map[string]bool) bool {
	if claimed[dest] {
		return false
	}
	_, err := os.Lstat(dest)
	return os.IsNotExist(err)
}

func sameFile(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}

// moveFile renames, falling back to copy-and-remove when source and
// destination sit on different filesystems.
func moveFile(source, dest string) error {
	err := os.Rename(source, dest)
	if err == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) {
		return errors.Wrap(err, "rename failed")
	}
	if err := copyFile(source, dest); err != nil {
		return err
	}
	return errors.Wrap(os.Remove(source), "failed to remove source after copy")
}

func copyFile(source, dest string) error {
	in, err := os.Open(source)
	if err != nil {
		return errors.Wrap(err, "failed to open source")
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return errors.Wrap(err, "failed to stat source")
	}

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return errors.Wrap(err, "failed to create destination")
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return errors.Wrap(err, "failed to copy contents")
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return errors.Wrap(err, "failed to flush destination")
	}
	return nil
}
