// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 500 * time.Millisecond

// clearSequence clears the terminal and homes the cursor.
const clearSequence = "\033[2J\033[H"

// ErrInvalidWatchConfig is returned when a Config fails validation.
var ErrInvalidWatchConfig = errors.New("invalid watch configuration")

// defaultIgnores are excluded on every watcher. Editor swap files and VCS
// metadata change constantly and never feed a generated file.
var defaultIgnores = []string{
	"**/.git/**",
	"**/.hg/**",
	"**/node_modules/**",
	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/.#*",
	"**/.DS_Store",
}

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// BaseDir is the directory tree to watch. Empty means the working
		// directory.
		BaseDir string

		// Patterns select which files (relative to BaseDir, slash separated)
		// may trigger a rebuild. Empty matches every non-ignored file.
		Patterns []string

		// Ignore is appended to the built-in ignore list.
		Ignore []string

		// Debounce is the quiet period after the last event. Zero or negative
		// means 500ms.
		Debounce time.Duration

		// ClearScreen writes an ANSI clear sequence to Stdout before each
		// rebuild.
		ClearScreen bool

		// Filter, when set, receives the absolute path of every event that
		// survived the glob checks and decides whether it counts.
		Filter func(path string) bool

		// OnChange receives the sorted absolute paths changed during the
		// debounce window.
		OnChange func(ctx context.Context, changed []string) error

		Stdout io.Writer
		Stderr io.Writer
	}

	// InvalidWatchConfigError lists every problem found in a Config.
	InvalidWatchConfigError struct {
		FieldErrors []error
	}

	// Watcher coalesces filesystem events below BaseDir into debounced
	// OnChange calls. Run may be called once.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		ignores  []string
		baseDir  string
		debounce time.Duration
		stdout   io.Writer
		stderr   io.Writer
		started  atomic.Bool
	}

	// batch accumulates changed paths until its timer fires.
	batch struct {
		mu    sync.Mutex
		paths map[string]struct{}
		timer *time.Timer
	}
)

// Error implements the error interface.
func (e *InvalidWatchConfigError) Error() string {
	return fmt.Sprintf("invalid watch config: %d field error(s): %v", len(e.FieldErrors), errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidWatchConfig.
func (e *InvalidWatchConfigError) Unwrap() error { return ErrInvalidWatchConfig }

// Validate reports every malformed glob and a blank-but-nonempty BaseDir.
func (c Config) Validate() error {
	var errs []error
	check := func(label string, patterns []string) {
		for i, pat := range patterns {
			switch {
			case pat == "":
				errs = append(errs, fmt.Errorf("%s[%d]: empty pattern", label, i))
			case !doublestar.ValidatePattern(pat):
				errs = append(errs, fmt.Errorf("%s[%d]: malformed pattern %q", label, i, pat))
			}
		}
	}
	check("patterns", c.Patterns)
	check("ignore", c.Ignore)
	if c.BaseDir != "" && strings.TrimSpace(c.BaseDir) == "" {
		errs = append(errs, errors.New("base dir: must not be blank"))
	}
	if len(errs) > 0 {
		return &InvalidWatchConfigError{FieldErrors: errs}
	}
	return nil
}

// New validates cfg, resolves BaseDir and registers every non-ignored
// directory below it.
func New(cfg Config) (*Watcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseDir := cfg.BaseDir
	if baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("watch: determine working directory: %w", err)
		}
		baseDir = wd
	}
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve base directory: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		ignores:  slices.Concat(defaultIgnores, cfg.Ignore),
		baseDir:  absBase,
		debounce: cfg.Debounce,
		stdout:   cfg.Stdout,
		stderr:   cfg.Stderr,
	}
	if w.debounce <= 0 {
		w.debounce = defaultDebounce
	}
	if w.stdout == nil {
		w.stdout = os.Stdout
	}
	if w.stderr == nil {
		w.stderr = os.Stderr
	}

	if err := w.register(); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// BaseDir returns the absolute directory being watched.
func (w *Watcher) BaseDir() string { return w.baseDir }

// Run processes events until ctx is cancelled. A callback that outlasts the
// debounce period is never re-entered; the pending batch is retried later.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("watch: Run called more than once")
	}

	b := &batch{paths: make(map[string]struct{})}
	var busy atomic.Bool

	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !busy.CompareAndSwap(false, true) {
			fmt.Fprintln(w.stderr, "watch: previous rebuild still running, deferring")
			b.rearm(w.debounce)
			return
		}
		defer busy.Store(false)

		changed := b.drain()
		if len(changed) == 0 {
			return
		}
		if w.cfg.ClearScreen {
			fmt.Fprint(w.stdout, clearSequence)
		}
		if w.cfg.OnChange == nil {
			return
		}
		if err := w.cfg.OnChange(ctx, changed); err != nil {
			fmt.Fprintf(w.stderr, "watch: rebuild failed: %v\n", err)
		}
	}

	defer func() {
		b.stop()
		if err := w.fsw.Close(); err != nil {
			fmt.Fprintf(w.stderr, "watch: close fsnotify: %v\n", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: event channel closed")
			}
			if evt.Has(fsnotify.Create) {
				w.addIfDir(evt.Name)
			}
			if !w.relevant(evt.Name) {
				continue
			}
			slog.Debug("watch event", "path", evt.Name, "op", evt.Op.String())
			b.add(evt.Name, w.debounce, fire)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: error channel closed")
			}
			if isUnrecoverable(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			fmt.Fprintf(w.stderr, "watch: fsnotify error: %v\n", err)
		}
	}
}

// relevant applies the ignore list, the patterns and the Filter to an
// absolute event path.
func (w *Watcher) relevant(path string) bool {
	rel := w.rel(path)
	if matchAny(w.ignores, rel) {
		return false
	}
	if len(w.cfg.Patterns) > 0 && !matchAny(w.cfg.Patterns, rel) {
		return false
	}
	if w.cfg.Filter != nil && !w.cfg.Filter(path) {
		return false
	}
	return true
}

func (w *Watcher) rel(path string) string {
	rel, err := filepath.Rel(w.baseDir, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func (w *Watcher) skipDir(path string) bool {
	rel := w.rel(path)
	return matchAny(w.ignores, rel) || matchAny(w.ignores, rel+"/")
}

// register adds BaseDir and every non-ignored directory beneath it.
// Unreadable directories are reported and skipped.
func (w *Watcher) register() error {
	err := filepath.WalkDir(w.baseDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			fmt.Fprintf(w.stderr, "watch: skipping %q: %v\n", path, walkErr)
			return nil //nolint:nilerr // unreadable paths are not watched
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.baseDir && w.skipDir(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch: walk directory tree: %w", err)
	}
	return nil
}

// addIfDir extends the watch to a directory created after startup.
func (w *Watcher) addIfDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() || w.skipDir(path) {
		return
	}
	if err := w.fsw.Add(path); err != nil {
		fmt.Fprintf(w.stderr, "watch: add new directory %q: %v\n", path, err)
	}
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string {
	return slices.Clone(defaultIgnores)
}

func matchAny(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if ok, err := doublestar.Match(pat, rel); err == nil && ok {
			return true
		}
	}
	return false
}

func (b *batch) add(path string, d time.Duration, fire func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.paths[path] = struct{}{}
	if b.timer == nil {
		b.timer = time.AfterFunc(d, fire)
		return
	}
	b.timer.Reset(d)
}

func (b *batch) rearm(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Reset(d)
	}
}

func (b *batch) drain() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := slices.Sorted(maps.Keys(b.paths))
	clear(b.paths)
	return out
}

func (b *batch) stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
	}
}
