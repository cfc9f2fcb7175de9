package main

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sortd-ai/sortd/pkg/analyzer"
	"github.com/sortd-ai/sortd/pkg/config"
	"github.com/sortd-ai/sortd/pkg/llm"
	"github.com/sortd-ai/sortd/pkg/logger"
	"github.com/sortd-ai/sortd/pkg/metadata"
	"github.com/sortd-ai/sortd/pkg/organizer"
	"github.com/sortd-ai/sortd/pkg/prefs"
	"github.com/sortd-ai/sortd/pkg/presenter"
	"github.com/sortd-ai/sortd/pkg/ranker"
	"github.com/sortd-ai/sortd/pkg/scanner"
	"github.com/sortd-ai/sortd/pkg/strategy"
	organizertypes "github.com/sortd-ai/sortd/pkg/types/organizer"
	"github.com/sortd-ai/sortd/pkg/vision"
)

// Exit codes: 0 success, cancelled, or dry run; 1 invalid path or setup
// error; 2 nothing usable to organize; 3 strategy applied with failures.
const (
	exitOK             = 0
	exitInvalid        = 1
	exitNoCandidates   = 2
	exitPartialFailure = 3
)

var organizeCmd = newOrganizeCmd()

func newOrganizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "organize [directory...]",
		Short: "Analyze directories and propose organization strategies",
		Long: `Scan one or more directories, analyze file contents, and propose 2-3
organization strategies. The default only shows the suggestions; pass
--dry-run to preview a strategy or --execute to apply it.`,
		Args: cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(runOrganize(cmd.Context(), cmd, args))
		},
	}
	addOrganizeFlags(cmd.Flags())
	return cmd
}

// addOrganizeFlags registers the organize flags. The root command carries
// them too so bare "sortd [flags] dir" invocations work.
func addOrganizeFlags(fs *pflag.FlagSet) {
	fs.Bool("execute", false, "apply the chosen strategy")
	fs.Bool("dry-run", false, "preview the chosen strategy without moving anything")
	fs.Bool("copy", false, "copy files instead of moving them")
	fs.StringP("output", "o", "", "organize into this directory instead of the first scanned one")
	fs.BoolP("yes", "y", false, "apply the top-ranked strategy without asking")
	fs.Bool("no-recursive", false, "do not descend into subdirectories")
	fs.StringSlice("exclude", nil, "glob patterns to skip (repeatable)")
	fs.BoolP("quiet", "q", false, "suppress everything except errors")
	fs.Bool("no-llm", false, "skip the model entirely and use the built-in strategy")
}

func runOrganize(ctx context.Context, cmd *cobra.Command, args []string) int {
	out := presenter.New()

	cfg, err := config.GetConfigFromViper()
	if err != nil {
		out.Error(err, "invalid configuration")
		return exitInvalid
	}
	if overrides := configOverrides(cmd); len(overrides) > 0 {
		if err := config.ApplyOverrides(&cfg, overrides); err != nil {
			out.Error(err, "invalid configuration override")
			return exitInvalid
		}
	}
	if err := logger.SetLogLevel(cfg.LogLevel); err != nil {
		out.Error(err, "invalid log level")
		return exitInvalid
	}
	logger.SetLogFormat(cfg.LogFormat)

	flags := parseOrganizeFlags(cmd.Flags())
	out.SetQuiet(flags.quiet)

	pipeline := buildPipeline(ctx, cfg, buildOptions{
		recursive: !flags.noRecursive,
		exclude:   flags.exclude,
		auto:      flags.yes,
		noLLM:     flags.noLLM,
		out:       out,
	})

	result, err := pipeline.Run(ctx, organizer.Options{
		Roots:   args,
		Output:  flags.output,
		Execute: flags.execute,
		DryRun:  flags.dryRun,
		Copy:    flags.copyMode,
	})

	if result != nil && result.Report != nil {
		for _, o := range result.Report.Outcomes {
			switch {
			case o.Status == organizertypes.OutcomeFailed:
				out.Warning(o.Source + ": " + o.Reason)
			case result.Report.DryRun:
				out.Info(o.Source + " -> " + o.Dest)
			}
		}
	}

	switch {
	case err == nil:
		if result != nil && !result.Cancelled {
			out.Stats(result.Stats())
			switch {
			case result.Report == nil:
				// Suggestions only; the pipeline already printed the hint.
			case result.Report.DryRun:
				out.Info("Preview only. Re-run with --execute to apply.")
			default:
				out.Success("Done.")
			}
		}
		return exitOK
	case errors.Is(err, scanner.ErrInvalidPath):
		out.Error(err, "invalid path")
		return exitInvalid
	case errors.Is(err, organizer.ErrNoCandidates):
		out.Error(err, "nothing to organize")
		return exitNoCandidates
	case errors.Is(err, organizer.ErrPartialFailure):
		out.Stats(result.Stats())
		out.Error(err, "partial failure")
		return exitPartialFailure
	default:
		out.Error(err, "organization failed")
		return exitInvalid
	}
}

type organizeFlags struct {
	execute     bool
	dryRun      bool
	copyMode    bool
	output      string
	yes         bool
	noRecursive bool
	exclude     []string
	quiet       bool
	noLLM       bool
}

// configOverrides collects flag values that override the file and
// environment configuration. --base-url retargets both the LLM and vision
// clients at the given endpoint.
func configOverrides(cmd *cobra.Command) map[string]any {
	overrides := map[string]any{}
	llmOverrides := map[string]any{}
	if m := flagString(cmd, "model"); m != "" {
		llmOverrides["model"] = m
	}
	if u := flagString(cmd, "base-url"); u != "" {
		llmOverrides["base_url"] = u
		overrides["vision"] = map[string]any{"base_url": u}
	}
	if len(llmOverrides) > 0 {
		overrides["llm"] = llmOverrides
	}
	return overrides
}

// flagString reads a flag that may live on the command itself or on a
// parent, returning "" when it is not registered at all.
func flagString(cmd *cobra.Command, name string) string {
	if f := cmd.Flag(name); f != nil {
		return f.Value.String()
	}
	return ""
}

func parseOrganizeFlags(fs *pflag.FlagSet) organizeFlags {
	var f organizeFlags
	f.execute, _ = fs.GetBool("execute")
	f.dryRun, _ = fs.GetBool("dry-run")
	f.copyMode, _ = fs.GetBool("copy")
	f.output, _ = fs.GetString("output")
	f.yes, _ = fs.GetBool("yes")
	f.noRecursive, _ = fs.GetBool("no-recursive")
	f.exclude, _ = fs.GetStringSlice("exclude")
	f.quiet, _ = fs.GetBool("quiet")
	f.noLLM, _ = fs.GetBool("no-llm")
	return f
}

type buildOptions struct {
	recursive bool
	exclude   []string
	auto      bool
	noLLM     bool
	out       presenter.Presenter
}

func buildPipeline(ctx context.Context, cfg config.Config, opts buildOptions) *organizer.Pipeline {
	var generator organizer.StrategySource
	var visionClient vision.Client
	var llmClient llm.Client
	if !opts.noLLM {
		llmClient = llm.NewClient(cfg.LLM)
		visionClient = vision.NewClient(cfg.Vision)
		generator = strategy.NewGenerator(llmClient)
	}

	var confirmer organizer.Confirmer = &organizer.ConsoleConfirmer{Out: opts.out}
	if opts.auto {
		confirmer = organizer.AutoConfirmer{}
	}

	store := prefs.Load(ctx, cfg.PrefsPath)
	exclude := append(cfg.Scanner.Exclude, opts.exclude...)

	return &organizer.Pipeline{
		Scanner:   scanner.New(exclude, cfg.Scanner.MaxFileSize, opts.recursive),
		Extractor: metadata.New(cfg.Analyzer.PreviewBytes),
		Analyzer:  analyzer.New(visionClient, llmClient, cfg.Analyzer.Workers),
		Generator: generator,
		Ranker:    ranker.New(store, cfg.Ranking),
		Store:     store,
		Confirmer: confirmer,
		Out:       opts.out,
	}
}
