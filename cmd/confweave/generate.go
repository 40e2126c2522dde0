// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/confweave/confweave/internal/generate"
	"github.com/confweave/confweave/internal/issue"
	"github.com/confweave/confweave/internal/manifest"

	"github.com/spf13/cobra"
)

// runGenerate regenerates the targets selected by args.
func (c *cli) runGenerate(ctx context.Context, args []string) error {
	s, err := c.openSession(ctx, c.progressPrinter())
	if err != nil {
		return err
	}
	targets, err := s.manifest.Select(c.changedFiles(args))
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		fmt.Fprintln(c.app.stdout, SubtitleStyle.Render("nothing to generate"))
		return nil
	}
	report, err := s.generator.Run(ctx, targets, generate.NewFileSink(c.app.Fs))
	c.printSummary(report)
	return err
}

func (c *cli) newCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check [files...]",
		Short: "Report outputs that differ from a fresh render",
		Long: `Render the selected targets and compare them with the files on disk
without writing. Exits with status 1 when an output is stale or missing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCheck(cmd.Context(), args)
		},
	}
}

func (c *cli) runCheck(ctx context.Context, args []string) error {
	s, err := c.openSession(ctx, c.progressPrinter())
	if err != nil {
		return err
	}
	targets, err := s.manifest.Select(c.changedFiles(args))
	if err != nil {
		return err
	}
	report, err := s.generator.Run(ctx, targets, generate.NewCheckSink(c.app.Fs))
	c.printSummary(report)
	if err != nil {
		return err
	}
	if !report.NeedsAttention() {
		return nil
	}

	var stale []string
	for _, res := range report.Results {
		if res.Status.NeedsAttention() {
			stale = append(stale, res.Output)
		}
	}
	return &ExitError{
		Code: 1,
		Err: issue.NewErrorContext().
			WithOperation("check outputs").
			WithResource(strings.Join(stale, ", ")).
			WithIssue(issue.StaleOutputId).
			WithSuggestion("run confweave to regenerate them").
			BuildError(),
	}
}

func (c *cli) newRenderCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "render <output>",
		Short: "Print one target to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd.Context(), args[0])
		},
	}
}

func (c *cli) runRender(ctx context.Context, output string) error {
	s, err := c.openSession(ctx, nil)
	if err != nil {
		return err
	}
	t, ok := s.manifest.Target(output)
	if !ok {
		return issue.NewErrorContext().
			WithOperation("render target").
			WithResource(output).
			WithSuggestion("list the outputs with `confweave targets`").
			Wrap(fmt.Errorf("no target produces %s", output)).
			BuildError()
	}
	_, err = s.generator.Run(ctx, []manifest.Target{t}, generate.NewWriterSink(c.app.stdout))
	return err
}

func (c *cli) newTargetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "targets [files...]",
		Short: "List targets in generation order",
		Long: `List the targets that would be generated for the given files, in the
order they would run. Without files every target is listed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTargets(cmd.Context(), args)
		},
	}
}

func (c *cli) runTargets(ctx context.Context, args []string) error {
	s, err := c.openSession(ctx, nil)
	if err != nil {
		return err
	}
	targets, err := s.manifest.Select(c.changedFiles(args))
	if err != nil {
		return err
	}
	for _, t := range targets {
		printTarget(c.app.stdout, t, c.flags.verbose)
	}
	return nil
}

func printTarget(w io.Writer, t manifest.Target, verbose bool) {
	fmt.Fprintf(w, "%s %s\n", PathStyle.Render(t.Output), SubtitleStyle.Render(fmt.Sprintf("(%d fragments)", len(t.From))))
	if !verbose {
		return
	}
	fmt.Fprintf(w, "  components: %s\n", t.Components)
	for _, spec := range t.From {
		fmt.Fprintf(w, "  from: %s\n", spec)
	}
	for _, in := range slices.Sorted(maps.Keys(t.Inputs())) {
		fmt.Fprintf(w, "  input: %s\n", in)
	}
}

// progressPrinter prints one line per finished target.
func (c *cli) progressPrinter() func(generate.Result) {
	return func(res generate.Result) {
		var mark string
		switch {
		case res.Err != nil:
			mark = ErrorStyle.Render("✗")
		case res.Status.NeedsAttention():
			mark = WarningStyle.Render("!")
		default:
			mark = SuccessStyle.Render("✓")
		}
		line := fmt.Sprintf("%s %s %s", mark, PathStyle.Render(res.Output), SubtitleStyle.Render(res.Status.String()))
		if c.flags.verbose && res.Err == nil {
			line += SubtitleStyle.Render(" " + res.Digest.Short())
		}
		fmt.Fprintln(c.app.stdout, line)
	}
}

func (c *cli) printSummary(report *generate.Report) {
	if report == nil || len(report.Results) < 2 {
		return
	}
	var parts []string
	for _, s := range []generate.Status{
		generate.StatusWritten,
		generate.StatusUnchanged,
		generate.StatusUpToDate,
		generate.StatusStale,
		generate.StatusMissing,
		generate.StatusFailed,
	} {
		if n := report.Count(s); n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, s))
		}
	}
	fmt.Fprintln(c.app.stdout, SubtitleStyle.Render(strings.Join(parts, ", ")))
}
