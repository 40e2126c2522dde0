// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"slices"
	"strings"
	"testing"

	"github.com/confweave/confweave/internal/config"
	"github.com/confweave/confweave/internal/issue"
	"github.com/confweave/confweave/internal/testutil"

	"github.com/spf13/afero"
)

const (
	manifestPath = "/work/.template-config.yaml"

	testManifest = `
- output: out/base.yaml
  components: components.yaml
  from: [base.yaml]
- output: out/final.yaml
  components: components.yaml
  from: [out/base.yaml, final.yaml]
`
	testComponents = "- {name: web}\n- {name: db}\n"
	testBase       = `
hosts:
  - __template_repeat: true
    host: "%(name)s.internal"
`
	testFinal = "env: prod\n"

	wantBase = `# generated file. do not edit directly
hosts:
  - host: web.internal
  - host: db.internal
`
)

func TestMain(m *testing.M) {
	issueStyle = "notty"
	os.Exit(m.Run())
}

type staticSettings struct {
	cfg *config.Config
	err error
}

func (s staticSettings) Load(context.Context, config.LoadOptions) (*config.Config, string, error) {
	if s.err != nil {
		return nil, "", s.err
	}
	if s.cfg != nil {
		return s.cfg, "/etc/confweave.cue", nil
	}
	return config.DefaultConfig(), "", nil
}

type harness struct {
	fs     afero.Fs
	stdout bytes.Buffer
	stderr bytes.Buffer
	app    *App
}

func newHarness(t *testing.T, settings staticSettings, files map[string]string) *harness {
	t.Helper()
	h := &harness{fs: afero.NewMemMapFs()}
	testutil.MustWriteFiles(t, h.fs, "/work", files)
	h.app = NewApp(Dependencies{
		Config:    settings,
		Fs:        h.fs,
		Getenv:    func(string) string { return "" },
		SetLogger: func(*slog.Logger) {},
		Stdout:    &h.stdout,
		Stderr:    &h.stderr,
	})
	return h
}

func defaultFiles() map[string]string {
	return map[string]string{
		".template-config.yaml": testManifest,
		"components.yaml":       testComponents,
		"base.yaml":             testBase,
		"final.yaml":            testFinal,
	}
}

func (h *harness) run(t *testing.T, args ...string) error {
	t.Helper()
	root := NewRootCommand(h.app)
	root.SetArgs(args)
	return root.ExecuteContext(t.Context())
}

func (h *harness) read(t *testing.T, name string) (string, bool) {
	t.Helper()
	data, err := afero.ReadFile(h.fs, "/work/"+name)
	if err != nil {
		return "", false
	}
	return string(data), true
}

func TestGenerate_AllTargets(t *testing.T) {
	t.Parallel()

	h := newHarness(t, staticSettings{}, defaultFiles())
	if err := h.run(t, "-c", manifestPath); err != nil {
		t.Fatalf("generate: %v", err)
	}

	got, ok := h.read(t, "out/base.yaml")
	if !ok || got != wantBase {
		t.Errorf("out/base.yaml =\n%s\nwant\n%s", got, wantBase)
	}
	final, ok := h.read(t, "out/final.yaml")
	if !ok {
		t.Fatal("out/final.yaml not written")
	}
	if !strings.Contains(final, "host: web.internal") || !strings.Contains(final, "env: prod") {
		t.Errorf("out/final.yaml does not merge its inputs:\n%s", final)
	}
	if !strings.Contains(h.stdout.String(), "2 written") {
		t.Errorf("summary missing from stdout:\n%s", h.stdout.String())
	}

	h.stdout.Reset()
	if err := h.run(t, "-c", manifestPath); err != nil {
		t.Fatalf("second generate: %v", err)
	}
	if !strings.Contains(h.stdout.String(), "2 unchanged") {
		t.Errorf("second run should leave outputs unchanged:\n%s", h.stdout.String())
	}
}

func TestGenerate_Selection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		args     []string
		selected []string
	}{
		{"changed final fragment", []string{"/work/final.yaml"}, []string{"out/final.yaml"}},
		{"changed base fragment propagates", []string{"/work/base.yaml"}, []string{"out/base.yaml", "out/final.yaml"}},
		{"changed components", []string{"/work/components.yaml"}, []string{"out/base.yaml", "out/final.yaml"}},
		{"unrelated file", []string{"/work/README.md"}, nil},
		{"only with no files", []string{"--only"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, staticSettings{}, defaultFiles())
			if err := h.run(t, "-c", manifestPath); err != nil {
				t.Fatalf("initial generate: %v", err)
			}
			h.stdout.Reset()

			if err := h.run(t, append([]string{"-c", manifestPath}, tt.args...)...); err != nil {
				t.Fatalf("generate: %v", err)
			}
			out := h.stdout.String()
			for _, target := range []string{"out/base.yaml", "out/final.yaml"} {
				got := strings.Contains(out, "/work/"+target)
				want := slices.Contains(tt.selected, target)
				if got != want {
					t.Errorf("%s selected = %v, want %v\n%s", target, got, want, out)
				}
			}
			if len(tt.selected) == 0 && !strings.Contains(out, "nothing to generate") {
				t.Errorf("stdout = %q", out)
			}
		})
	}
}

func TestCheck(t *testing.T) {
	t.Parallel()

	h := newHarness(t, staticSettings{}, defaultFiles())
	if err := h.run(t, "-c", manifestPath); err != nil {
		t.Fatal(err)
	}
	if err := h.run(t, "-c", manifestPath, "check"); err != nil {
		t.Errorf("check after generation = %v", err)
	}

	if err := afero.WriteFile(h.fs, "/work/out/final.yaml", []byte("edited: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	h.stdout.Reset()
	err := h.run(t, "-c", manifestPath, "check")
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 1 {
		t.Fatalf("check on a hand-edited output = %v, want exit 1", err)
	}
	if id := classifyError(err); id != issue.StaleOutputId {
		t.Errorf("classifyError() = %v, want StaleOutputId", id)
	}
	if !strings.Contains(h.stdout.String(), "stale") {
		t.Errorf("stdout = %q, want a stale line", h.stdout.String())
	}

	if err := h.fs.Remove("/work/out/final.yaml"); err != nil {
		t.Fatal(err)
	}
	h.stdout.Reset()
	if err := h.run(t, "-c", manifestPath, "check"); !errors.As(err, &exitErr) {
		t.Errorf("check with a missing output = %v, want exit error", err)
	}
	if !strings.Contains(h.stdout.String(), "missing") {
		t.Errorf("stdout = %q, want a missing line", h.stdout.String())
	}
	if _, ok := h.read(t, "out/final.yaml"); ok {
		t.Error("check must not write outputs")
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	h := newHarness(t, staticSettings{}, defaultFiles())
	if err := h.run(t, "-c", manifestPath, "render", "/work/out/base.yaml"); err != nil {
		t.Fatalf("render: %v", err)
	}
	if h.stdout.String() != wantBase {
		t.Errorf("stdout =\n%s\nwant\n%s", h.stdout.String(), wantBase)
	}
	if _, ok := h.read(t, "out/base.yaml"); ok {
		t.Error("render must not write outputs")
	}

	err := h.run(t, "-c", manifestPath, "render", "/work/out/missing.yaml")
	var ae *issue.ActionableError
	if !errors.As(err, &ae) || ae.Operation != "render target" {
		t.Errorf("render unknown output = %v", err)
	}
}

func TestTargets(t *testing.T) {
	t.Parallel()

	h := newHarness(t, staticSettings{}, defaultFiles())
	if err := h.run(t, "-c", manifestPath, "targets"); err != nil {
		t.Fatal(err)
	}
	out := h.stdout.String()
	base, final := strings.Index(out, "out/base.yaml"), strings.Index(out, "out/final.yaml")
	if base < 0 || final < 0 || base > final {
		t.Errorf("targets not listed in generation order:\n%s", out)
	}

	h.stdout.Reset()
	if err := h.run(t, "-c", manifestPath, "-v", "targets", "/work/final.yaml"); err != nil {
		t.Fatal(err)
	}
	out = h.stdout.String()
	if strings.Contains(out, "out/base.yaml (") || !strings.Contains(out, "input: /work/final.yaml") {
		t.Errorf("verbose selection output:\n%s", out)
	}
}

func TestKeepGoing(t *testing.T) {
	t.Parallel()

	files := defaultFiles()
	files["base.yaml"] = "hosts: [a]\n"
	files["final.yaml"] = "hosts: {a: 1}\n"
	files[".template-config.yaml"] = `
- output: out/broken.yaml
  components: components.yaml
  from: [base.yaml, final.yaml]
- output: out/ok.yaml
  components: components.yaml
  from: [base.yaml]
`
	h := newHarness(t, staticSettings{}, files)
	if err := h.run(t, "-c", manifestPath); err == nil {
		t.Fatal("expected a merge failure")
	}
	if _, ok := h.read(t, "out/ok.yaml"); ok {
		t.Error("without --keep-going the run stops at the first failure")
	}

	err := h.run(t, "-c", manifestPath, "--keep-going")
	if err == nil {
		t.Fatal("keep-going still reports the failure")
	}
	if _, ok := h.read(t, "out/ok.yaml"); !ok {
		t.Error("--keep-going should generate the remaining targets")
	}
	if id := classifyError(targetErrors(err)[0]); id != issue.NonMergeableTypesId {
		t.Errorf("classifyError() = %v, want NonMergeableTypesId", id)
	}
}

func TestManifestErrors(t *testing.T) {
	t.Parallel()

	h := newHarness(t, staticSettings{}, map[string]string{})
	err := h.run(t, "-c", manifestPath)
	if id := classifyError(err); id != issue.ManifestNotFoundId {
		t.Errorf("missing manifest: classifyError(%v) = %v", err, id)
	}

	h = newHarness(t, staticSettings{}, map[string]string{".template-config.yaml": "- output: x.yaml\n"})
	err = h.run(t, "-c", manifestPath)
	if id := classifyError(err); id != issue.ManifestInvalidId {
		t.Errorf("invalid manifest: classifyError(%v) = %v", err, id)
	}

	dup := "- {output: a.yaml, components: c.yaml, from: []}\n- {output: a.yaml, components: c.yaml, from: []}\n"
	h = newHarness(t, staticSettings{}, map[string]string{".template-config.yaml": dup})
	err = h.run(t, "-c", manifestPath)
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("duplicate output: error = %v, want ActionableError", err)
	}
	if !slices.Contains(ae.Suggestions, "fix target #2 (counting from 1)") {
		t.Errorf("Suggestions = %q, want the offending target", ae.Suggestions)
	}
}

func TestSettingsFallback(t *testing.T) {
	t.Parallel()

	broken := staticSettings{err: errors.New("bad settings")}

	h := newHarness(t, broken, defaultFiles())
	if err := h.run(t, "-c", manifestPath, "targets"); err == nil {
		t.Error("targets should fail when settings cannot be loaded")
	}

	h = newHarness(t, broken, defaultFiles())
	if err := h.run(t, "explain"); err != nil {
		t.Errorf("explain should run on defaults: %v", err)
	}
	if !strings.Contains(h.stderr.String(), "bad settings") {
		t.Errorf("stderr = %q, want a warning", h.stderr.String())
	}
}

func TestSettingsApplied(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Manifest = manifestPath
	cfg.Banner = "# managed by confweave"

	h := newHarness(t, staticSettings{cfg: cfg}, defaultFiles())
	if err := h.run(t); err != nil {
		t.Fatal(err)
	}
	got, _ := h.read(t, "out/base.yaml")
	if !strings.HasPrefix(got, "# managed by confweave\nhosts:") {
		t.Errorf("banner from settings not used:\n%s", got)
	}

	h.stdout.Reset()
	if err := h.run(t, "config", "show"); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"/etc/confweave.cue", manifestPath, "regex_cache_size"} {
		if !strings.Contains(h.stdout.String(), want) {
			t.Errorf("config show missing %q:\n%s", want, h.stdout.String())
		}
	}

	h.stdout.Reset()
	if err := h.run(t, "config", "dump"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(h.stdout.String(), `banner: "# managed by confweave"`) {
		t.Errorf("config dump:\n%s", h.stdout.String())
	}
}

func TestExplain(t *testing.T) {
	t.Parallel()

	h := newHarness(t, staticSettings{}, nil)
	if err := h.run(t, "explain"); err != nil {
		t.Fatal(err)
	}
	for _, i := range issue.Values() {
		if !strings.Contains(h.stdout.String(), i.Slug()) {
			t.Errorf("explain list is missing %s", i.Slug())
		}
	}

	for _, name := range []string{"dependency-cycle", "8"} {
		h.stdout.Reset()
		if err := h.run(t, "explain", name); err != nil {
			t.Fatalf("explain %s: %v", name, err)
		}
		if !strings.Contains(h.stdout.String(), issue.Get(issue.DependencyCycleId).Title()) {
			t.Errorf("explain %s:\n%s", name, h.stdout.String())
		}
	}

	if err := h.run(t, "explain", "no-such-issue"); err == nil {
		t.Error("unknown issue should fail")
	}
}

func TestGetVersionString(t *testing.T) {
	if got := getVersionString(); got != "dev (built from source)" {
		t.Errorf("getVersionString() = %q", got)
	}
}
