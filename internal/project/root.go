// Package project provides Git repository discovery for git-bump.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotARepository is returned when no enclosing Git repository is found.
var ErrNotARepository = errors.New("not a Git repository")

// Repo describes the repository a bump run operates on.
type Repo struct {
	// GitDir is the repository metadata directory, usually <root>/.git.
	GitDir string

	// WorkTree is the working tree root against which relative configuration
	// keys are resolved.
	WorkTree string
}

// Discover walks up from startDir looking for a .git entry and returns the
// enclosing repository. Bare repositories have no work tree and are not
// supported, which the walk handles implicitly: it only ever finds a .git
// entry inside a work tree.
func Discover(startDir string) (*Repo, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve start directory: %w", err)
	}

	currentDir := abs
	for {
		gitPath := filepath.Join(currentDir, ".git")
		info, statErr := os.Stat(gitPath)
		if statErr == nil {
			gitDir, resolveErr := resolveGitDir(gitPath, info.IsDir())
			if resolveErr != nil {
				return nil, resolveErr
			}
			return &Repo{GitDir: gitDir, WorkTree: currentDir}, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}

	return nil, ErrNotARepository
}

// resolveGitDir handles the two forms a .git entry can take: a directory, or
// a gitdir file pointing elsewhere (linked work trees, submodules).
func resolveGitDir(gitPath string, isDir bool) (string, error) {
	if isDir {
		return gitPath, nil
	}

	data, err := os.ReadFile(gitPath) //nolint:gosec // path derived from directory walk
	if err != nil {
		return "", fmt.Errorf("failed to read gitdir file %s: %w", gitPath, err)
	}

	line := strings.TrimSpace(string(data))
	target, ok := strings.CutPrefix(line, "gitdir:")
	if !ok {
		return "", fmt.Errorf("%s is not a valid gitdir file", gitPath)
	}

	target = strings.TrimSpace(target)
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(gitPath), target)
	}
	return filepath.Clean(target), nil
}
