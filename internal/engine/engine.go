// Package engine merges configuration mappings and executes bump runs.
package engine

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/wizzomafizzo/git-bump/internal/logging"
	"github.com/wizzomafizzo/git-bump/internal/script"
)

// Status is the terminal state of one file's bump step.
type Status string

// Per-file outcomes of a bump run.
const (
	StatusUpdated        Status = "updated"
	StatusSkippedMissing Status = "skipped-missing"
	StatusFailed         Status = "failed"
)

// Report is the outcome of one file's bump step.
type Report struct {
	Err    error
	File   string
	Status Status
}

// Engine runs transforms against the mapped files of one repository.
type Engine struct {
	fs       afero.Fs
	runtime  *script.Runtime
	workTree string
}

// New creates an engine writing through fs, resolving relative mapping keys
// against workTree.
func New(fs afero.Fs, runtime *script.Runtime, workTree string) *Engine {
	return &Engine{fs: fs, runtime: runtime, workTree: workTree}
}

// Run bumps every mapped file to version, in the mapping's deterministic
// order. The first fault halts the run: files already written stay written,
// there is no rollback. Missing target files are skipped silently so shared
// configurations stay harmless across heterogeneous repositories.
func (e *Engine) Run(ctx context.Context, mapping *Mapping, version string) ([]Report, error) {
	reports := make([]Report, 0, mapping.Len())
	for _, target := range mapping.Targets() {
		report := e.bumpFile(ctx, target, version)
		reports = append(reports, report)
		if report.Err != nil {
			return reports, report.Err
		}
	}
	return reports, nil
}

// bumpFile walks one file through read, transform, pre-hook, write and
// post-hook. The pre-hook runs strictly before the write and the post-hook
// strictly after; a pre-hook fault leaves the file unmodified.
func (e *Engine) bumpFile(ctx context.Context, target Target, version string) Report {
	log := logging.Get(ctx)
	path := filepath.Join(e.workTree, target.File)

	exists, err := afero.Exists(e.fs, path)
	if err != nil {
		return failure(target.File, fmt.Errorf("failed to stat %s: %w", path, err))
	}
	if !exists {
		log.Debug().Str("file", target.File).Msg("target file does not exist, skipping")
		return Report{File: target.File, Status: StatusSkippedMissing}
	}

	content, err := afero.ReadFile(e.fs, path)
	if err != nil {
		return failure(target.File, fmt.Errorf("failed to read %s: %w", path, err))
	}

	outcome, err := e.runtime.Invoke(target.Fn, target.File, version, string(content))
	if err != nil {
		return failure(target.File, err)
	}

	if outcome.Hooks != nil && outcome.Hooks.Pre != nil {
		if err := e.runtime.InvokeHook(outcome.Hooks.Pre, target.File); err != nil {
			return failure(target.File, err)
		}
	}

	// Unconditional overwrite with exactly the returned content, even when it
	// is byte-identical to what was read.
	if err := afero.WriteFile(e.fs, path, []byte(outcome.Content), 0o644); err != nil {
		return failure(target.File, fmt.Errorf("failed to write %s: %w", path, err))
	}

	if outcome.Hooks != nil && outcome.Hooks.Post != nil {
		if err := e.runtime.InvokeHook(outcome.Hooks.Post, target.File); err != nil {
			// The file is already updated at this point.
			return failure(target.File, err)
		}
	}

	log.Info().Str("file", target.File).Str("version", version).
		Str("source", target.Origin).Msg("bumped file")
	return Report{File: target.File, Status: StatusUpdated}
}

func failure(file string, err error) Report {
	return Report{File: file, Status: StatusFailed, Err: err}
}

// ListTargets projects the mapping keys to absolute paths in the mapping's
// deterministic order, regardless of whether the files exist.
func ListTargets(mapping *Mapping, workTree string) []string {
	paths := make([]string, 0, mapping.Len())
	for _, target := range mapping.Targets() {
		paths = append(paths, filepath.Join(workTree, target.File))
	}
	return paths
}
