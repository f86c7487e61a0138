// Package derive turns a binding package (a Bindcc.toml plus the target
// triple) into the clang invocation its headers must be parsed with.
package derive

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/bindcc-build/bindcc/internal/clang"
	"github.com/bindcc-build/bindcc/internal/msg"
	"github.com/bindcc-build/bindcc/internal/target"
	"github.com/bmatcuk/doublestar/v4"
)

const ConfigFilename = "Bindcc.toml"

type Deriver struct {
	cfg      *Config
	basedir  string
	env      ConfigEnv
	platform target.Platform
}

func NewDeriverInDirectory(path, triple string) (*Deriver, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	p := target.Classify(triple)
	env := NewConfigEnv(path, p)
	cfg, err := ParseConfigFromFile(filepath.Join(path, ConfigFilename), env)
	if err != nil {
		return nil, err
	}
	return &Deriver{cfg: cfg, basedir: path, env: env, platform: p}, nil
}

func (d *Deriver) Config() *Config { return d.cfg }

// Options adjusts a single derivation.
type Options struct {
	Std      clang.Std // overrides the [bindings] std when non-empty
	Includes []string  // extra include dirs, appended after config includes
	SkipDeps bool      // do not fetch [dependencies]
	SDK      *clang.SDKResolver
}

// Derive runs the prepare script, materializes header dependencies, expands
// include globs and assembles the final clang argument list.
func (d *Deriver) Derive(opts Options) ([]string, error) {
	if err := d.cfg.RunPrepareScript(d.env); err != nil {
		return nil, err
	}

	includes, err := d.collectIncludeDirs(d.cfg.Bindings.Includes)
	if err != nil {
		return nil, err
	}

	if !opts.SkipDeps {
		depIncludes, err := d.fetchDependencies()
		if err != nil {
			return nil, err
		}
		includes = append(includes, depIncludes...)
	}
	includes = append(includes, opts.Includes...)

	std := clang.Cpp17
	if d.cfg.Bindings.Std != "" {
		std, err = clang.ParseStd(d.cfg.Bindings.Std)
		if err != nil {
			return nil, err
		}
	}
	if opts.Std != "" {
		std = opts.Std
	}

	platformRuntime := true
	if d.cfg.Bindings.PlatformRuntime != nil {
		platformRuntime = *d.cfg.Bindings.PlatformRuntime
	}

	sdk := opts.SDK
	if sdk == nil {
		sdk = clang.NewSDKResolver()
	}

	b := clang.Builder{
		Triple:          d.platform.Triple,
		Std:             std,
		PlatformRuntime: platformRuntime,
		SDK:             sdk,
	}
	return b.Build(includes, d.cfg.Bindings.AppleArgs, d.cfg.Bindings.AndroidArgs)
}

// collectIncludeDirs expands the include glob patterns to the directories
// containing matches, in first-seen order. A pattern matching a file
// contributes the file's directory; absolute paths pass through untouched,
// with no existence check.
func (d *Deriver) collectIncludeDirs(patterns []string) ([]string, error) {
	var dirs []string
	seen := make(map[string]bool)
	fsys := os.DirFS(d.basedir)

	appendDir := func(dir string) {
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}

	for _, pat := range patterns {
		if filepath.IsAbs(pat) {
			appendDir(filepath.Clean(pat))
			continue
		}
		matches, err := doublestar.Glob(fsys, pat)
		if err != nil {
			return nil, err
		}
		for _, match := range matches {
			absPath, err := filepath.Abs(filepath.Join(d.basedir, match))
			if err != nil {
				return nil, fmt.Errorf("while globbing %s: %w", match, err)
			}
			if stat, err := os.Stat(absPath); err == nil && !stat.IsDir() {
				absPath = filepath.Dir(absPath) // this is a file, we need its directory
			}
			appendDir(filepath.Clean(absPath))
		}
	}

	return dirs, nil
}

// fetchDependencies ensures every [dependencies] entry is materialized under
// build/_deps and returns one include directory per dependency, sorted by
// name for deterministic output. A dependency exposing an include/ directory
// contributes that; otherwise its root.
func (d *Deriver) fetchDependencies() ([]string, error) {
	if len(d.cfg.Dependencies) == 0 {
		return nil, nil
	}

	depsDir := filepath.Join(d.basedir, "build", "_deps")

	var includes []string
	for _, name := range slices.Sorted(maps.Keys(d.cfg.Dependencies)) {
		depPath := filepath.Join(depsDir, name)
		dir := depPath

		stat, err := os.Stat(depPath)
		if os.IsNotExist(err) || (err == nil && !stat.IsDir()) {
			msg.Info("fetching dependency %s", name)
			if err := os.MkdirAll(depsDir, 0755); err != nil {
				return nil, err
			}
			dir, err = fetchDependency(d.cfg.Dependencies[name], depPath)
			if err != nil {
				return nil, fmt.Errorf("failed to fetch dependency %q: %w", name, err)
			}
		}

		if !filepath.IsAbs(dir) {
			dir = filepath.Join(d.basedir, dir)
		}
		if stat, err := os.Stat(filepath.Join(dir, "include")); err == nil && stat.IsDir() {
			dir = filepath.Join(dir, "include")
		}
		includes = append(includes, dir)
	}

	return includes, nil
}
