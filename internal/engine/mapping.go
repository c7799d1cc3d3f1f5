package engine

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/wizzomafizzo/git-bump/internal/script"
)

// SourceMapping holds the decoded entries of one configuration script along
// with the script's path for diagnostics.
type SourceMapping struct {
	Origin  string
	Entries []script.Entry
}

// Target is one entry of the effective mapping: a work-tree-relative file,
// the transform that bumps it, and the config source the transform came from.
type Target struct {
	Fn     *lua.LFunction
	File   string
	Origin string
}

// Mapping is the merged file-to-transform table for one run. Iteration order
// is the order keys were first seen across the priority-ordered sources,
// which keeps --list-files output and hook ordering stable between runs.
type Mapping struct {
	targets map[string]Target
	order   []string
}

// Len returns the number of mapped files.
func (m *Mapping) Len() int {
	return len(m.order)
}

// Targets returns the entries in deterministic iteration order.
func (m *Mapping) Targets() []Target {
	targets := make([]Target, 0, len(m.order))
	for _, file := range m.order {
		targets = append(targets, m.targets[file])
	}
	return targets
}

// Aggregate folds per-source mappings in priority order, lowest first. When
// two sources define the same file, the later source's function fully
// replaces the earlier one; the losing function is never invoked. This lets a
// shared config neutralize an inherited mapping by redefining the key with a
// pass-through transform.
func Aggregate(sources []SourceMapping) *Mapping {
	m := &Mapping{targets: make(map[string]Target)}
	for _, source := range sources {
		for _, entry := range source.Entries {
			if _, seen := m.targets[entry.File]; !seen {
				m.order = append(m.order, entry.File)
			}
			m.targets[entry.File] = Target{File: entry.File, Fn: entry.Fn, Origin: source.Origin}
		}
	}
	return m
}
