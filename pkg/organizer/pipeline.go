// Package organizer drives the organization pipeline end to end: scan,
// extract, analyze, aggregate, generate, rank, confirm, execute, learn.
// Each stage consumes the previous stage's output and the run carries no
// hidden state between them.
package organizer

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/sortd-ai/sortd/pkg/aggregate"
	"github.com/sortd-ai/sortd/pkg/analyzer"
	"github.com/sortd-ai/sortd/pkg/executor"
	"github.com/sortd-ai/sortd/pkg/logger"
	"github.com/sortd-ai/sortd/pkg/metadata"
	"github.com/sortd-ai/sortd/pkg/prefs"
	"github.com/sortd-ai/sortd/pkg/presenter"
	"github.com/sortd-ai/sortd/pkg/ranker"
	"github.com/sortd-ai/sortd/pkg/scanner"
	"github.com/sortd-ai/sortd/pkg/strategy"
	organizertypes "github.com/sortd-ai/sortd/pkg/types/organizer"
)

// ErrNoCandidates means scanning and extraction left nothing to organize.
var ErrNoCandidates = errors.New("no usable files found")

// ErrPartialFailure means the strategy was applied but some files failed.
var ErrPartialFailure = errors.New("some files could not be organized")

// StrategySource generates candidate strategies for a run.
type StrategySource interface {
	Generate(ctx context.Context, agg organizertypes.AggregateContext, results []organizertypes.AnalysisResult) ([]organizertypes.Strategy, error)
}

// Options are the per-run knobs, mapped from CLI flags.
type Options struct {
	// Roots are the directories to organize.
	Roots []string
	// Output is the directory files are organized into. Empty means the
	// first root.
	Output string
	// Execute applies the chosen strategy for real.
	Execute bool
	// DryRun simulates the chosen strategy without touching files. It
	// wins over Execute when both are set.
	DryRun bool
	// Copy duplicates files instead of moving them.
	Copy bool
}

// Pipeline wires the stages together. Generator and Store may be nil:
// without a generator only the fallback strategy is offered, without a
// store no preferences are read or learned.
type Pipeline struct {
	Scanner   *scanner.Scanner
	Extractor *metadata.Extractor
	Analyzer  *analyzer.Analyzer
	Generator StrategySource
	Ranker    *ranker.Ranker
	Store     *prefs.Store
	Confirmer Confirmer
	Out       presenter.Presenter
}

// RunResult carries everything a run produced, for display and exit-code
// mapping.
type RunResult struct {
	Readable   []organizertypes.FileRecord
	Unreadable []organizertypes.FileRecord
	Results    []organizertypes.AnalysisResult
	Aggregate  organizertypes.AggregateContext
	Strategies []organizertypes.Strategy
	Chosen     *organizertypes.Strategy
	Report     *organizertypes.ExecutionReport
	Cancelled  bool
}

// Stats maps the run onto the presenter's summary block.
func (r *RunResult) Stats() *presenter.RunStats {
	stats := &presenter.RunStats{
		FilesScanned: len(r.Readable) + len(r.Unreadable),
		Unreadable:   len(r.Unreadable),
		Degraded:     r.Aggregate.DegradedCount,
		Strategies:   len(r.Strategies),
		TotalBytes:   r.Aggregate.TotalBytes,
	}
	if r.Report != nil {
		stats.Applied = r.Report.Applied
		stats.Skipped = r.Report.Skipped
		stats.Failed = r.Report.Failed
		stats.DryRun = r.Report.DryRun
	}
	return stats
}

// Run executes the pipeline. With neither Execute nor DryRun set it stops
// after presenting the ranked strategies. The returned error classifies
// the outcome: nil for success or a user cancel (Cancelled is set on the
// result),
// scanner.ErrInvalidPath for bad roots, ErrNoCandidates for an empty run,
// ErrPartialFailure when execution left failures behind.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*RunResult, error) {
	log := logger.G(ctx)
	result := &RunResult{}

	paths, err := p.Scanner.Scan(ctx, opts.Roots)
	if err != nil {
		return nil, err
	}

	result.Readable, result.Unreadable = p.Extractor.ExtractAll(ctx, paths)
	for _, rec := range result.Unreadable {
		p.Out.Warning("Skipping unreadable file: " + rec.Path)
	}
	if len(result.Readable) == 0 {
		return result, ErrNoCandidates
	}

	p.Out.Info("Analyzing " + presenter.HumanSize(totalSize(result.Readable)) + " across " + countLabel(len(result.Readable)))
	result.Results = p.Analyzer.AnalyzeAll(ctx, result.Readable)
	result.Aggregate = aggregate.Build(result.Results)

	result.Strategies = p.generate(ctx, result)
	result.Strategies = p.Ranker.Rank(result.Strategies)

	// Without an execution mode the run is suggestions only: show the
	// ranked strategies and stop before the confirmation checkpoint.
	if !opts.Execute && !opts.DryRun {
		listStrategies(p.Out, result.Strategies)
		p.Out.Info("To organize these files, run again with --dry-run to preview or --execute to apply.")
		return result, nil
	}

	chosen, err := p.Confirmer.Confirm(ctx, result.Strategies)
	if errors.Is(err, ErrCancelled) {
		result.Cancelled = true
		p.Out.Info("No changes made.")
		return result, nil
	}
	if err != nil {
		return result, err
	}
	result.Chosen = &chosen

	output := opts.Output
	if output == "" {
		output = opts.Roots[0]
	}
	report := executor.New(executor.Options{
		Root:   output,
		DryRun: !opts.Execute || opts.DryRun,
		Copy:   opts.Copy,
	}).Execute(ctx, chosen)
	result.Report = &report
	// A dry run must leave no trace, the preference store included.
	if !report.DryRun {
		p.learn(ctx, chosen)
	}

	if report.Failed > 0 {
		var errs *multierror.Error
		for _, o := range report.Outcomes {
			if o.Status == organizertypes.OutcomeFailed {
				errs = multierror.Append(errs, errors.Errorf("%s: %s", o.Source, o.Reason))
			}
		}
		log.WithError(errs.ErrorOrNil()).Warn("run finished with failures")
		return result, errors.Wrap(ErrPartialFailure, errs.Error())
	}
	return result, nil
}

// generate asks the strategy source for candidates and falls back to the
// deterministic by-type strategy when generation is unavailable or failed.
func (p *Pipeline) generate(ctx context.Context, result *RunResult) []organizertypes.Strategy {
	if p.Generator == nil {
		p.Out.Warning("No model configured, using the built-in by-type strategy")
		return []organizertypes.Strategy{strategy.Fallback(result.Results)}
	}

	strategies, err := p.Generator.Generate(ctx, result.Aggregate, result.Results)
	if err != nil {
		logger.G(ctx).WithError(err).Warn("strategy generation failed, using fallback")
		p.Out.Warning("Strategy generation failed, using the built-in by-type strategy")
		return []organizertypes.Strategy{strategy.Fallback(result.Results)}
	}
	return strategies
}

// learn records the chosen strategy in the preference store after the run
// has been applied. Store failures are logged, never fatal.
func (p *Pipeline) learn(ctx context.Context, chosen organizertypes.Strategy) {
	if p.Store == nil {
		return
	}
	p.Store.RecordRun()
	p.Store.RecordDecision(chosen)
	if err := p.Store.Flush(); err != nil {
		logger.G(ctx).WithError(err).Warn("failed to persist preferences")
	}
}

func totalSize(recs []organizertypes.FileRecord) int64 {
	var n int64
	for _, rec := range recs {
		n += rec.Size
	}
	return n
}

func countLabel(n int) string {
	if n == 1 {
		return "1 file"
	}
	return fmt.Sprintf("%d files", n)
}
