// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/confweave/confweave/internal/generate"
	"github.com/confweave/confweave/internal/issue"
	"github.com/confweave/confweave/internal/source"
	"github.com/confweave/confweave/pkg/cueutil"
	"github.com/confweave/confweave/pkg/markup"
	"github.com/confweave/confweave/pkg/merge"
	"github.com/confweave/confweave/pkg/template"
	"github.com/confweave/confweave/pkg/toposort"
	"github.com/confweave/confweave/pkg/tree"
)

// issueStyle is the glamour style used for issue guides on stderr.
var issueStyle = "dark"

// classifyError maps a failure to its issue guide. An issue attached to an
// ActionableError wins over the kind of its cause.
func classifyError(err error) issue.Id {
	var ae *issue.ActionableError
	if errors.As(err, &ae) && ae.Issue != 0 {
		return ae.Issue
	}

	var (
		decodeErr     *markup.DecodeError
		validationErr *cueutil.ValidationError
	)
	switch {
	case errors.Is(err, merge.ErrNonMergeableTypes):
		return issue.NonMergeableTypesId
	case errors.Is(err, merge.ErrNonCommutativeMerge):
		return issue.NonCommutativeMergeId
	case errors.Is(err, merge.ErrEmptyMerge):
		return issue.EmptyMergeId
	case errors.Is(err, toposort.ErrCycle):
		return issue.DependencyCycleId
	case errors.Is(err, template.ErrTemplateField):
		return issue.TemplateFieldId
	case errors.Is(err, tree.ErrDirectiveConfig):
		return issue.DirectiveConfigId
	case errors.Is(err, source.ErrInvalidSpec):
		return issue.SourceInvalidId
	case errors.As(err, &decodeErr):
		return issue.FragmentParseErrorId
	case errors.As(err, &validationErr):
		return issue.ManifestInvalidId
	case errors.Is(err, os.ErrPermission):
		return issue.PermissionDeniedId
	default:
		return 0
	}
}

// renderError prints err and, in verbose mode, the guide for its issue.
// A joined error from a keep-going run prints one block per target.
func renderError(w io.Writer, err error, verbose bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return
	}

	failures := targetErrors(err)
	if len(failures) == 0 {
		failures = []error{err}
	}
	seen := make(map[issue.Id]bool)
	for _, failure := range failures {
		fmt.Fprintf(w, "\n%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(failure, verbose))
		id := classifyError(failure)
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		if !verbose {
			fmt.Fprintln(w, SubtitleStyle.Render(fmt.Sprintf("  run `confweave explain %s` for help", issue.Get(id).Slug())))
			continue
		}
		rendered, renderErr := issue.Get(id).Render(issueStyle)
		if renderErr != nil {
			slog.Warn("failed to render issue guide", "issue", id, "error", renderErr)
			continue
		}
		fmt.Fprint(w, rendered)
	}
}

// targetErrors unpacks the per-target errors joined by a generation run.
func targetErrors(err error) []error {
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return nil
	}
	var out []error
	for _, e := range joined.Unwrap() {
		var te *generate.TargetError
		if errors.As(e, &te) {
			out = append(out, te)
		}
	}
	return out
}
