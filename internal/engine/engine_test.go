package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wizzomafizzo/git-bump/internal/script"
	"github.com/wizzomafizzo/git-bump/internal/testutil"
)

func mappingFromScript(t *testing.T, r *script.Runtime, source string) *Mapping {
	t.Helper()
	entries, err := r.Load([]byte(source), "test.lua")
	require.NoError(t, err)
	return Aggregate([]SourceMapping{{Origin: "test.lua", Entries: entries}})
}

func TestRun_BumpsExistingFile(t *testing.T) {
	t.Parallel()
	defer testutil.VerifyNoLeaks(t)

	r := script.New()
	defer r.Close()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/repo/VERSION", []byte("0.1.0"), 0o644))

	mapping := mappingFromScript(t, r, `return { VERSION = function(version) return version end }`)
	eng := New(fs, r, "/repo")

	reports, err := eng.Run(context.Background(), mapping, "1.2.3")

	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, StatusUpdated, reports[0].Status)

	content, err := afero.ReadFile(fs, "/repo/VERSION")
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", string(content), "the returned content is written verbatim")
}

func TestRun_MissingFileIsSkippedAndNotCreated(t *testing.T) {
	t.Parallel()

	r := script.New()
	defer r.Close()
	fs := afero.NewMemMapFs()

	mapping := mappingFromScript(t, r, `return {
		["missing.txt"] = function(version) error("must not run") end,
	}`)
	eng := New(fs, r, "/repo")

	reports, err := eng.Run(context.Background(), mapping, "1.2.3")

	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, StatusSkippedMissing, reports[0].Status)

	exists, err := afero.Exists(fs, "/repo/missing.txt")
	require.NoError(t, err)
	assert.False(t, exists, "skipped file must not be created")
}

func TestRun_TransformControlsTrailingNewline(t *testing.T) {
	t.Parallel()

	r := script.New()
	defer r.Close()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/repo/VERSION", []byte("old\n"), 0o644))

	mapping := mappingFromScript(t, r, `return {
		VERSION = function(version) return version .. "\n" end,
	}`)
	eng := New(fs, r, "/repo")

	_, err := eng.Run(context.Background(), mapping, "2.0.0")

	require.NoError(t, err)
	content, err := afero.ReadFile(fs, "/repo/VERSION")
	require.NoError(t, err)
	assert.Equal(t, "2.0.0\n", string(content))
}

func TestRun_TransformFaultHaltsRun(t *testing.T) {
	t.Parallel()

	r := script.New()
	defer r.Close()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/repo/a.txt", []byte("a"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/repo/b.txt", []byte("b"), 0o644))

	mapping := mappingFromScript(t, r, `return {
		["a.txt"] = function() error("broken transform") end,
		["b.txt"] = function(version) return version end,
	}`)
	eng := New(fs, r, "/repo")

	reports, err := eng.Run(context.Background(), mapping, "1.2.3")

	require.Error(t, err)
	var scriptErr *script.Error
	require.ErrorAs(t, err, &scriptErr)
	assert.Equal(t, script.KindTransformFailed, scriptErr.Kind)
	assert.Equal(t, "a.txt", scriptErr.Origin)

	// The run halts before b.txt is ever touched.
	require.Len(t, reports, 1)
	assert.Equal(t, StatusFailed, reports[0].Status)
	content, readErr := afero.ReadFile(fs, "/repo/b.txt")
	require.NoError(t, readErr)
	assert.Equal(t, "b", string(content))
}

func TestRun_PreHookFaultLeavesFileUnmodified(t *testing.T) {
	t.Parallel()

	r := script.New()
	defer r.Close()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/repo/VERSION", []byte("0.1.0"), 0o644))

	mapping := mappingFromScript(t, r, `return {
		VERSION = function(version)
			return version, { pre_func = function() error("backup failed") end }
		end,
	}`)
	eng := New(fs, r, "/repo")

	reports, err := eng.Run(context.Background(), mapping, "1.2.3")

	require.Error(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, StatusFailed, reports[0].Status)

	content, readErr := afero.ReadFile(fs, "/repo/VERSION")
	require.NoError(t, readErr)
	assert.Equal(t, "0.1.0", string(content), "pre-hook fault must leave the file untouched")
}

func TestRun_PostHookFaultReportedAfterWrite(t *testing.T) {
	t.Parallel()

	r := script.New()
	defer r.Close()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/repo/VERSION", []byte("0.1.0"), 0o644))

	mapping := mappingFromScript(t, r, `return {
		VERSION = function(version)
			return version, { post_func = function() error("commit failed") end }
		end,
	}`)
	eng := New(fs, r, "/repo")

	_, err := eng.Run(context.Background(), mapping, "1.2.3")

	require.Error(t, err)
	var scriptErr *script.Error
	require.ErrorAs(t, err, &scriptErr)
	assert.Equal(t, script.KindHookFailed, scriptErr.Kind)

	// The write already happened when the post-hook runs.
	content, readErr := afero.ReadFile(fs, "/repo/VERSION")
	require.NoError(t, readErr)
	assert.Equal(t, "1.2.3", string(content))
}

func TestRun_HooksRunAroundTheWrite(t *testing.T) {
	t.Parallel()

	// Hooks observe the real filesystem, so this test runs against a temp
	// dir instead of an in-memory fs.
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "VERSION"), []byte("0.1.0"), 0o644))

	r := script.New()
	defer r.Close()

	source := fmt.Sprintf(`
		local function snapshot(target)
			local f = assert(io.open(%q .. "/VERSION", "r"))
			local c = f:read("*a")
			f:close()
			local o = assert(io.open(%q .. "/" .. target, "w"))
			o:write(c)
			o:close()
		end

		return {
			VERSION = function(version)
				return version, {
					pre_func = function() snapshot("pre.txt") end,
					post_func = function() snapshot("post.txt") end,
				}
			end,
		}
	`, dir, dir)

	entries, err := r.Load([]byte(source), "test.lua")
	require.NoError(t, err)
	mapping := Aggregate([]SourceMapping{{Origin: "test.lua", Entries: entries}})

	eng := New(afero.NewOsFs(), r, dir)
	reports, err := eng.Run(context.Background(), mapping, "1.2.3")

	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, StatusUpdated, reports[0].Status)

	pre, err := os.ReadFile(filepath.Join(dir, "pre.txt"))
	require.NoError(t, err)
	assert.Equal(t, "0.1.0", string(pre), "pre-hook must run before the write")

	post, err := os.ReadFile(filepath.Join(dir, "post.txt"))
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", string(post), "post-hook must run after the write")
}

func TestRun_IdenticalContentStillWritten(t *testing.T) {
	t.Parallel()

	r := script.New()
	defer r.Close()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/repo/VERSION", []byte("1.2.3"), 0o644))

	mapping := mappingFromScript(t, r, `return { VERSION = function(version) return version end }`)
	eng := New(fs, r, "/repo")

	reports, err := eng.Run(context.Background(), mapping, "1.2.3")

	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, StatusUpdated, reports[0].Status)
}

func TestListTargets_IncludesMissingFilesInOrder(t *testing.T) {
	t.Parallel()

	r := script.New()
	defer r.Close()

	mapping := mappingFromScript(t, r, `return {
		["z.txt"] = function(v) return v end,
		["a.txt"] = function(v) return v end,
		["missing/nested.txt"] = function(v) return v end,
	}`)

	first := ListTargets(mapping, "/repo")
	second := ListTargets(mapping, "/repo")

	assert.Equal(t, first, second, "target order must be stable across calls")
	assert.Equal(t, []string{
		"/repo/a.txt",
		"/repo/missing/nested.txt",
		"/repo/z.txt",
	}, first)
}
