// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strconv"

	"github.com/confweave/confweave/internal/issue"

	"github.com/spf13/cobra"
)

func (c *cli) newExplainCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "explain [issue]",
		Short: "Show the guide for an error",
		Long: `Show the guide for an error by its name or number.
Without an argument every known issue is listed.`,
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{settingsOptionalAnnotation: "true"},
		RunE: func(_ *cobra.Command, args []string) error {
			if len(args) == 0 {
				c.listIssues()
				return nil
			}
			return c.explain(args[0])
		},
	}
}

func (c *cli) listIssues() {
	for _, i := range issue.Values() {
		fmt.Fprintf(c.app.stdout, "%3d  %s  %s\n", i.Id(), PathStyle.Render(i.Slug()), SubtitleStyle.Render(i.Title()))
	}
}

func (c *cli) explain(name string) error {
	found, ok := issue.Lookup(name)
	if !ok {
		if n, err := strconv.Atoi(name); err == nil {
			found = issue.Get(issue.Id(n))
			ok = found != nil
		}
	}
	if !ok {
		return issue.NewErrorContext().
			WithOperation("explain issue").
			WithResource(name).
			WithSuggestion("run `confweave explain` to list the known issues").
			Wrap(fmt.Errorf("unknown issue %q", name)).
			BuildError()
	}
	rendered, err := found.Render(issueStyle)
	if err != nil {
		return err
	}
	fmt.Fprint(c.app.stdout, rendered)
	return nil
}
