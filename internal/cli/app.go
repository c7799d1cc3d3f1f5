// Package cli wires repository discovery, configuration loading and the bump
// engine together for the command layer.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/afero"

	"github.com/wizzomafizzo/git-bump/internal/config"
	"github.com/wizzomafizzo/git-bump/internal/engine"
	"github.com/wizzomafizzo/git-bump/internal/logging"
	"github.com/wizzomafizzo/git-bump/internal/project"
	"github.com/wizzomafizzo/git-bump/internal/script"
)

// App runs the user-facing git-bump operations.
type App struct {
	fs      afero.Fs
	workDir string // Injectable working directory for testing
}

// NewApp creates an App that discovers the repository from the current
// working directory.
func NewApp(fs afero.Fs) *App {
	return &App{fs: fs}
}

// NewAppWithWorkDir creates an App with an injectable working directory.
// This is primarily used for testing to avoid global state dependencies.
func NewAppWithWorkDir(fs afero.Fs, workDir string) *App {
	return &App{fs: fs, workDir: workDir}
}

// Bump updates every configured file to version. When no configuration files
// exist the run is a silent no-op.
func (a *App) Bump(ctx context.Context, version string) ([]engine.Report, error) {
	runtime := script.New()
	defer runtime.Close()

	mapping, repo, err := a.loadMapping(ctx, runtime)
	if err != nil {
		return nil, err
	}

	eng := engine.New(a.fs, runtime, repo.WorkTree)
	return eng.Run(ctx, mapping, version)
}

// ListFiles returns the absolute path of every configured file, existing or
// not, in the deterministic mapping order.
func (a *App) ListFiles(ctx context.Context) ([]string, error) {
	runtime := script.New()
	defer runtime.Close()

	mapping, repo, err := a.loadMapping(ctx, runtime)
	if err != nil {
		return nil, err
	}

	return engine.ListTargets(mapping, repo.WorkTree), nil
}

// loadMapping resolves the repository, loads every available configuration
// script into the shared runtime and folds the results into the effective
// mapping. The runtime must outlive the mapping's callables.
func (a *App) loadMapping(ctx context.Context, runtime *script.Runtime) (*engine.Mapping, *project.Repo, error) {
	log := logging.Get(ctx)

	workDir := a.workDir
	if workDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get current working directory: %w", err)
		}
		workDir = cwd
	}

	repo, err := project.Discover(workDir)
	if err != nil {
		return nil, nil, err
	}

	sources := config.Resolve(a.fs, config.Candidates(repo.GitDir, repo.WorkTree))
	if len(sources) == 0 {
		log.Warn().Str("work_tree", repo.WorkTree).Msg("no config files found, nothing to do")
	}

	loaded := make([]engine.SourceMapping, 0, len(sources))
	for _, source := range sources {
		data, err := afero.ReadFile(a.fs, source.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read %s %s: %w", source.Label, source.Path, err)
		}

		entries, err := runtime.Load(data, source.Path)
		if err != nil {
			return nil, nil, err
		}

		log.Debug().Str("source", source.Path).Int("entries", len(entries)).Msg("loaded config")
		loaded = append(loaded, engine.SourceMapping{Origin: source.Path, Entries: entries})
	}

	return engine.Aggregate(loaded), repo, nil
}
