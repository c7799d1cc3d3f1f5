package cli

import _ "embed"

//go:embed git-bump.lua
var sampleConfig string

// SampleConfig returns the bundled example configuration script.
func SampleConfig() string {
	return sampleConfig
}
