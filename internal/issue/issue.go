// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

const (
	ManifestNotFoundId Id = iota + 1
	ManifestInvalidId
	SourceInvalidId
	FragmentParseErrorId
	NonMergeableTypesId
	NonCommutativeMergeId
	EmptyMergeId
	DependencyCycleId
	TemplateFieldId
	DirectiveConfigId
	SettingsLoadFailedId
	StaleOutputId
	PermissionDeniedId
)

type (
	Id int

	MarkdownMsg string

	HttpLink string

	Issue struct {
		id       Id          // ID used to lookup the issue
		slug     string      // stable name accepted by 'confweave explain'
		mdMsg    MarkdownMsg // Markdown text that will be rendered
		docLinks []HttpLink
		extLinks []HttpLink // external links that might be useful for the user
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) Slug() string {
	return i.slug
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Title returns the first Markdown heading of the guide.
func (i *Issue) Title() string {
	for line := range strings.SplitSeq(string(i.mdMsg), "\n") {
		if title, ok := strings.CutPrefix(line, "# "); ok {
			return strings.TrimSpace(title)
		}
	}
	return i.slug
}

// Render renders the guide for the terminal. stylePath is a glamour style
// name such as "dark", "light" or "notty", or a path to a style file.
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range i.docLinks {
			md.WriteString("- <" + string(link) + ">\n")
		}
		for _, link := range i.extLinks {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	manifestNotFoundIssue = &Issue{
		id:   ManifestNotFoundId,
		slug: "manifest-not-found",
		mdMsg: `
# No generation manifest found!

confweave reads the list of targets from a manifest, by default
` + "`.template-config.yaml`" + ` in the current directory.

## Things you can try:
- Point to the manifest explicitly:
~~~
$ confweave -c path/to/manifest.yaml
~~~

- Set a default in your settings file:
~~~cue
manifest: "config/targets.yaml"
~~~

## Example manifest:
~~~yaml
- output: deploy/app.yaml
  components: components.yaml
  from:
    - base/app.yaml
    - env/prod.yaml
~~~`,
	}

	manifestInvalidIssue = &Issue{
		id:   ManifestInvalidId,
		slug: "manifest-invalid",
		mdMsg: `
# The generation manifest is invalid!

The manifest must be a list of targets. Each target needs an
` + "`output`" + ` path, a ` + "`components`" + ` source and a ` + "`from`" + ` list of sources.

## Things you can try:
- Check the field path in the error message
- Make sure no two targets write the same output
- Remove fields other than output, components and from`,
	}

	sourceInvalidIssue = &Issue{
		id:   SourceInvalidId,
		slug: "source-invalid",
		mdMsg: `
# A source descriptor is invalid!

A source is either a path string or a mapping with exactly one of
` + "`path`, `value` or `text`" + `.

## Optional fields:
- ` + "`format`" + `: syntax of inline text (yaml, json, toml, cue)
- ` + "`extract_from`" + `: slash-separated key path taken out of the loaded value
- ` + "`prefix_at`" + `: slash-separated key path the value is nested under

~~~yaml
from:
  - base.yaml
  - {path: shared/limits.yaml, prefix_at: spec/resources}
  - {value: {replicas: 3}}
~~~`,
	}

	fragmentParseErrorIssue = &Issue{
		id:   FragmentParseErrorId,
		slug: "fragment-parse-error",
		mdMsg: `
# A fragment could not be parsed!

The file format is chosen by extension: .yaml/.yml, .json/.jsonc,
.toml and .cue. Anything else is read as YAML.

## Common causes:
- A YAML tag confweave does not know (supported: !set, !stringset,
  !mergemap, !assocbyname, !assocbyid)
- A duplicate key in one mapping
- Several YAML documents in one file

## Things you can try:
- Check the line and column in the error message
- Validate the file with a YAML or JSON linter`,
	}

	nonMergeableTypesIssue = &Issue{
		id:   NonMergeableTypesId,
		slug: "non-mergeable-types",
		mdMsg: `
# Two fragments disagree!

Mappings merge key by key, and sets merge by union. Any other pair of
values must be equal, otherwise the merge fails at the reported key path.

## Things you can try:
- Remove the value from one of the fragments
- Turn lists that should combine into ` + "`!set`" + ` or ` + "`!assocbyname`" + ` values
- Use ` + "`extract_from`" + ` or ` + "`prefix_at`" + ` to place a fragment under another key`,
	}

	nonCommutativeMergeIssue = &Issue{
		id:   NonCommutativeMergeId,
		slug: "non-commutative-merge",
		mdMsg: `
# Merge result depends on fragment order!

Both tagged values know how to merge with each other but produce
different results. confweave refuses to pick one.

## Things you can try:
- Use the same tag for the value in every fragment`,
	}

	emptyMergeIssue = &Issue{
		id:   EmptyMergeId,
		slug: "empty-merge",
		mdMsg: `
# Nothing to merge!

A target needs at least one fragment in its ` + "`from`" + ` list.`,
	}

	dependencyCycleIssue = &Issue{
		id:   DependencyCycleId,
		slug: "dependency-cycle",
		mdMsg: `
# Dependency cycle detected!

Ordered collections, ` + "`__toposort`" + ` blocks and targets that read each
other's outputs must form a directed acyclic graph.

## Things you can try:
- Follow the arrows in the error message and drop one edge
- For ordered collections, check the list order in every fragment: each
  fragment adds "comes before" edges between its items`,
	}

	templateFieldIssue = &Issue{
		id:   TemplateFieldId,
		slug: "template-field",
		mdMsg: `
# A template refers to a missing component field!

Placeholders such as ` + "`%(name)s`" + ` are filled from each component of the
catalogue. Every selected component must define the field.

## Things you can try:
- Add the field to every component, or filter the components first:
~~~yaml
- __template_repeat:
    filter: {key: kind, match: "^service$"}
  name: "%(name)s"
~~~
- Write ` + "`%%`" + ` for a literal percent sign`,
	}

	directiveConfigIssue = &Issue{
		id:   DirectiveConfigId,
		slug: "directive-config",
		mdMsg: `
# A directive is configured incorrectly!

## Expected shapes:
~~~yaml
__toposort: {deps_key: after, required: [app], strip_unreachable: true, id_to_key: id}
__template_repeat: true
__template_list: {insert_key: members, insert_val: "%(name)s"}
__template_props: {insert_key: env, insert_val: {"%(name)s": "%(value)s"}}
~~~`,
	}

	settingsLoadFailedIssue = &Issue{
		id:   SettingsLoadFailedId,
		slug: "settings-load-failed",
		mdMsg: `
# Failed to load settings!

Settings are read from the file given with ` + "`--settings`" + `, then from the
user config directory, then from ` + "`./confweave.cue`" + `.

## Things you can try:
- Show the effective settings and where they came from:
~~~
$ confweave config show
$ confweave config path
~~~
- Write a fresh settings file:
~~~
$ confweave config init
~~~`,
	}

	staleOutputIssue = &Issue{
		id:   StaleOutputId,
		slug: "stale-output",
		mdMsg: `
# Generated files are out of date!

` + "`confweave check`" + ` found outputs that differ from what the manifest
produces, or that do not exist.

## Things you can try:
- Regenerate them:
~~~
$ confweave
~~~
- Never edit generated files by hand; change the fragments instead`,
	}

	permissionDeniedIssue = &Issue{
		id:   PermissionDeniedId,
		slug: "permission-denied",
		mdMsg: `
# Permission denied!

## Common causes:
- The output directory is not writable
- A fragment is not readable by the current user

## Things you can try:
- Check file and directory permissions
- Run confweave from a directory you own`,
	}

	issues = map[Id]*Issue{
		manifestNotFoundIssue.Id():    manifestNotFoundIssue,
		manifestInvalidIssue.Id():     manifestInvalidIssue,
		sourceInvalidIssue.Id():       sourceInvalidIssue,
		fragmentParseErrorIssue.Id():  fragmentParseErrorIssue,
		nonMergeableTypesIssue.Id():   nonMergeableTypesIssue,
		nonCommutativeMergeIssue.Id(): nonCommutativeMergeIssue,
		emptyMergeIssue.Id():          emptyMergeIssue,
		dependencyCycleIssue.Id():     dependencyCycleIssue,
		templateFieldIssue.Id():       templateFieldIssue,
		directiveConfigIssue.Id():     directiveConfigIssue,
		settingsLoadFailedIssue.Id():  settingsLoadFailedIssue,
		staleOutputIssue.Id():         staleOutputIssue,
		permissionDeniedIssue.Id():    permissionDeniedIssue,
	}
)

// Values returns every issue ordered by id.
func Values() []*Issue {
	out := slices.Collect(maps.Values(issues))
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id - b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}

// Lookup finds an issue by slug.
func Lookup(slug string) (*Issue, bool) {
	for _, i := range issues {
		if i.slug == slug {
			return i, true
		}
	}
	return nil, false
}
