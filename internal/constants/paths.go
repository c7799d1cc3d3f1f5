// Package constants contains file and directory names shared across git-bump.
package constants

const (
	// AppName is the application name used for XDG directory paths.
	AppName = "git-bump"

	// LogFilename is the default log file name for git-bump.
	LogFilename = "git-bump.log"

	// UserConfigFilename is the per-user global config file in the home
	// directory.
	UserConfigFilename = ".git-bump.lua"

	// RepoConfigFilename is the per-repository config file inside $GIT_DIR,
	// not intended for sharing.
	RepoConfigFilename = "git-bump.lua"

	// SharedConfigFilename is the per-repository config file in the work tree
	// root, may be checked into Git for sharing.
	SharedConfigFilename = ".git-bump.lua"
)
