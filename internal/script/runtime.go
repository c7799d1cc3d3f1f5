// Package script wraps the embedded Lua runtime that evaluates git-bump
// configuration files and invokes their transform functions.
package script

import (
	"fmt"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// Kind classifies script runtime failures.
type Kind string

// Failure kinds reported by the runtime.
const (
	KindMalformedResult     Kind = "malformed result"
	KindEvaluationFailed    Kind = "evaluation failed"
	KindMalformedHookResult Kind = "malformed hook result"
	KindTransformFailed     Kind = "transform failed"
	KindHookFailed          Kind = "hook failed"
)

// Error is a failure while loading a configuration script or invoking one of
// its callables. Origin names the script or target file involved.
type Error struct {
	Err    error
	Kind   Kind
	Origin string
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Origin, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Origin, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Entry is one file mapping produced by a configuration script: a path
// relative to the work tree and the transform function for it.
type Entry struct {
	Fn   *lua.LFunction
	File string
}

// Hooks are the optional callables run around a single file write.
type Hooks struct {
	Pre  *lua.LFunction
	Post *lua.LFunction
}

// Outcome is the decoded result of one transform invocation.
type Outcome struct {
	Hooks   *Hooks
	Content string
}

// Runtime owns the single Lua state shared by every script in a run.
// Definitions made by one script stay visible to scripts loaded later and to
// transform functions invoked during bumping, so a user config can define
// helpers that repository configs reuse.
type Runtime struct {
	state *lua.LState
}

// New creates a fresh runtime. The caller must Close it when the run ends;
// callables stay valid until then.
func New() *Runtime {
	return &Runtime{state: lua.NewState()}
}

// Close releases the Lua state and invalidates every callable it produced.
func (r *Runtime) Close() {
	r.state.Close()
}

// Load evaluates a configuration script and decodes its result. The script
// must return a table mapping file paths to functions. Entries are sorted by
// file name so downstream iteration order is deterministic.
func (r *Runtime) Load(source []byte, origin string) ([]Entry, error) {
	fn, err := r.state.Load(strings.NewReader(string(source)), origin)
	if err != nil {
		return nil, &Error{Kind: KindEvaluationFailed, Origin: origin, Err: err}
	}

	r.state.Push(fn)
	if err := r.state.PCall(0, 1, nil); err != nil {
		return nil, &Error{Kind: KindEvaluationFailed, Origin: origin, Err: err}
	}
	ret := r.state.Get(-1)
	r.state.Pop(1)

	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return nil, &Error{
			Kind:   KindMalformedResult,
			Origin: origin,
			Err:    fmt.Errorf("script must return a table, got %s", ret.Type()),
		}
	}

	var entries []Entry
	var decodeErr error
	tbl.ForEach(func(k, v lua.LValue) {
		if decodeErr != nil {
			return
		}
		key, ok := k.(lua.LString)
		if !ok {
			decodeErr = fmt.Errorf("mapping keys must be file paths, got %s", k.Type())
			return
		}
		transform, ok := v.(*lua.LFunction)
		if !ok {
			decodeErr = fmt.Errorf("mapping value for %q must be a function, got %s", string(key), v.Type())
			return
		}
		entries = append(entries, Entry{File: string(key), Fn: transform})
	})
	if decodeErr != nil {
		return nil, &Error{Kind: KindMalformedResult, Origin: origin, Err: decodeErr}
	}

	// Lua tables carry no reliable key order, so impose one here.
	sort.Slice(entries, func(i, j int) bool { return entries[i].File < entries[j].File })

	return entries, nil
}

// Invoke calls a transform with the new version and the file's current
// content. The transform must return the new content as a string; an optional
// second value may be a table with pre_func and post_func hook members.
func (r *Runtime) Invoke(fn *lua.LFunction, origin, version, content string) (*Outcome, error) {
	err := r.state.CallByParam(
		lua.P{Fn: fn, NRet: 2, Protect: true},
		lua.LString(version), lua.LString(content),
	)
	if err != nil {
		return nil, &Error{Kind: KindTransformFailed, Origin: origin, Err: err}
	}

	second := r.state.Get(-1)
	first := r.state.Get(-2)
	r.state.Pop(2)

	newContent, ok := first.(lua.LString)
	if !ok {
		return nil, &Error{
			Kind:   KindTransformFailed,
			Origin: origin,
			Err:    fmt.Errorf("transform must return the new content as a string, got %s", first.Type()),
		}
	}

	outcome := &Outcome{Content: string(newContent)}

	if second == lua.LNil {
		return outcome, nil
	}
	hooksTbl, ok := second.(*lua.LTable)
	if !ok {
		return nil, &Error{
			Kind:   KindMalformedHookResult,
			Origin: origin,
			Err:    fmt.Errorf("hooks must be returned as a table, got %s", second.Type()),
		}
	}

	hooks := &Hooks{}
	if hooks.Pre, err = hookMember(hooksTbl, "pre_func"); err != nil {
		return nil, &Error{Kind: KindMalformedHookResult, Origin: origin, Err: err}
	}
	if hooks.Post, err = hookMember(hooksTbl, "post_func"); err != nil {
		return nil, &Error{Kind: KindMalformedHookResult, Origin: origin, Err: err}
	}
	outcome.Hooks = hooks

	return outcome, nil
}

// InvokeHook runs a pre or post hook. Hooks take no arguments and any return
// values are ignored; their side effects are entirely the script's business.
func (r *Runtime) InvokeHook(fn *lua.LFunction, origin string) error {
	if err := r.state.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}); err != nil {
		return &Error{Kind: KindHookFailed, Origin: origin, Err: err}
	}
	return nil
}

func hookMember(tbl *lua.LTable, name string) (*lua.LFunction, error) {
	v := tbl.RawGetString(name)
	if v == lua.LNil {
		return nil, nil
	}
	fn, ok := v.(*lua.LFunction)
	if !ok {
		return nil, fmt.Errorf("%s must be a function, got %s", name, v.Type())
	}
	return fn, nil
}
