// Package config locates the layered git-bump configuration scripts.
//
// Three locations are searched, in override priority order (lowest first):
// the per-user global file in the home directory, the private file inside the
// repository's metadata directory, and the shared file in the work tree root.
// A later script overrides mappings of the previous ones on matching keys.
package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/spf13/afero"

	"github.com/wizzomafizzo/git-bump/internal/constants"
)

// Source is one candidate configuration location.
type Source struct {
	// Path is the absolute path of the script.
	Path string

	// Label describes the location for diagnostics.
	Label string
}

// Candidates returns the three configuration locations for a repository, in
// override priority order, lowest first.
func Candidates(gitDir, workTree string) []Source {
	return []Source{
		{Path: filepath.Join(xdg.Home, constants.UserConfigFilename), Label: "user config"},
		{Path: filepath.Join(gitDir, constants.RepoConfigFilename), Label: "repository config"},
		{Path: filepath.Join(workTree, constants.SharedConfigFilename), Label: "shared config"},
	}
}

// Resolve keeps the candidates whose file exists and is readable, preserving
// order. Missing candidates are silently dropped; a shared configuration is
// expected to reference locations that do not exist on every machine.
func Resolve(fs afero.Fs, candidates []Source) []Source {
	resolved := make([]Source, 0, len(candidates))
	for _, candidate := range candidates {
		f, err := fs.Open(candidate.Path)
		if err != nil {
			continue
		}
		_ = f.Close()
		resolved = append(resolved, candidate)
	}
	return resolved
}
