// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/confweave/confweave/pkg/toposort"
)

// Order returns every target in generation order: a target that reads
// another target's output comes after it. Unrelated targets keep manifest
// order.
func (m *Manifest) Order() ([]Target, error) {
	return m.ordered(func(int) bool { return true })
}

// Select returns the targets affected by the changed files, in generation
// order. A nil set, or a set containing the manifest itself, selects every
// target. Otherwise a target is selected when its output or any of its
// inputs changed, or when it reads the output of a selected target.
func (m *Manifest) Select(changed []string) ([]Target, error) {
	if changed == nil {
		return m.Order()
	}

	fset := make(map[string]struct{}, len(changed))
	for _, p := range changed {
		fset[normalize(p)] = struct{}{}
	}
	if m.Path != "" {
		if _, ok := fset[normalize(m.Path)]; ok {
			return m.Order()
		}
	}

	selected := make([]bool, len(m.Targets))
	inputs := make([]map[string]struct{}, len(m.Targets))
	for i, t := range m.Targets {
		inputs[i] = normalizedSet(t.Inputs())
		if _, ok := fset[normalize(t.Output)]; ok {
			selected[i] = true
			continue
		}
		for p := range inputs[i] {
			if _, ok := fset[p]; ok {
				selected[i] = true
				break
			}
		}
	}

	// Propagate along output -> input edges until nothing changes.
	for changedAny := true; changedAny; {
		changedAny = false
		for i := range m.Targets {
			if selected[i] {
				continue
			}
			for j, t := range m.Targets {
				if !selected[j] || i == j {
					continue
				}
				if _, ok := inputs[i][normalize(t.Output)]; ok {
					selected[i] = true
					changedAny = true
					break
				}
			}
		}
	}

	return m.ordered(func(i int) bool { return selected[i] })
}

func (m *Manifest) ordered(keep func(int) bool) ([]Target, error) {
	g := toposort.NewGraph()
	producers := make(map[string]int, len(m.Targets))
	for i, t := range m.Targets {
		g.AddNode(strconv.Itoa(i))
		producers[normalize(t.Output)] = i
	}
	for i, t := range m.Targets {
		for _, p := range slices.Sorted(maps.Keys(normalizedSet(t.Inputs()))) {
			if j, ok := producers[p]; ok && j != i {
				g.AddEdge(strconv.Itoa(j), strconv.Itoa(i))
			}
		}
	}

	order, err := g.Sort()
	if err != nil {
		return nil, m.describeCycle(err)
	}
	out := make([]Target, 0, len(order))
	for _, id := range order {
		i, _ := strconv.Atoi(id)
		if keep(i) {
			out = append(out, m.Targets[i])
		}
	}
	return out, nil
}

// describeCycle replaces target indices in a cycle error with outputs.
func (m *Manifest) describeCycle(err error) error {
	var ce *toposort.CycleError
	if !errors.As(err, &ce) {
		return err
	}
	named := make([]string, len(ce.Cycle))
	for k, id := range ce.Cycle {
		i, _ := strconv.Atoi(id)
		named[k] = m.Targets[i].Output
	}
	return fmt.Errorf("ordering targets: %w", &toposort.CycleError{Cycle: named})
}

func normalizedSet(paths map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(paths))
	for p := range paths {
		out[normalize(p)] = struct{}{}
	}
	return out
}

// normalize makes paths comparable regardless of how they were spelled.
func normalize(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
