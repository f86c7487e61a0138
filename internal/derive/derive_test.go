package derive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bindcc-build/bindcc/internal/clang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noRunner struct{ t *testing.T }

func (r noRunner) TrimmedOutput(name string, args ...string) (string, error) {
	r.t.Fatalf("unexpected subprocess: %s %v", name, args)
	return "", nil
}

func writeTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func TestDerive(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"Bindcc.toml": `
[package]
name = "mylib-bindings"

[bindings]
std = "c++11"
platform-runtime = false
includes = ["include/**/*.h"]
`,
		"include/a.h":      "",
		"include/deep/b.h": "",
	})

	d, err := NewDeriverInDirectory(dir, "x86_64-unknown-linux-gnu")
	require.NoError(t, err)

	args, err := d.Derive(Options{
		SkipDeps: true,
		Includes: []string{"/extra/inc"},
		SDK:      clang.NewSDKResolverWithRunner(noRunner{t}),
	})
	require.NoError(t, err)

	base, err := filepath.Abs(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"-xc++",
		"-std=c++11",
		"-I" + filepath.Join(base, "include"),
		"-I" + filepath.Join(base, "include", "deep"),
		"-I/extra/inc",
		"--target=x86_64-unknown-linux-gnu",
	}, args)
}

func TestDeriveStdOverride(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"Bindcc.toml": `
[bindings]
std = "c++11"
platform-runtime = false
`,
	})

	d, err := NewDeriverInDirectory(dir, "x86_64-unknown-linux-gnu")
	require.NoError(t, err)

	args, err := d.Derive(Options{
		Std:      clang.Cpp17,
		SkipDeps: true,
		SDK:      clang.NewSDKResolverWithRunner(noRunner{t}),
	})
	require.NoError(t, err)
	assert.Contains(t, args, "-std=c++17")
	assert.NotContains(t, args, "-std=c++11")
}

func TestDeriveLocalPathDependency(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"Bindcc.toml": `
[bindings]
platform-runtime = false

[dependencies]
mathlib = "vendor/mathlib"
`,
		"vendor/mathlib/include/math.hpp": "",
	})

	d, err := NewDeriverInDirectory(dir, "x86_64-unknown-linux-gnu")
	require.NoError(t, err)

	args, err := d.Derive(Options{SDK: clang.NewSDKResolverWithRunner(noRunner{t})})
	require.NoError(t, err)

	base, err := filepath.Abs(dir)
	require.NoError(t, err)
	assert.Contains(t, args, "-I"+filepath.Join(base, "vendor", "mathlib", "include"))
}

func TestDeriveRejectsUnknownStd(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"Bindcc.toml": `
[bindings]
std = "c++98"
`,
	})

	d, err := NewDeriverInDirectory(dir, "x86_64-unknown-linux-gnu")
	require.NoError(t, err)

	_, err = d.Derive(Options{SkipDeps: true, SDK: clang.NewSDKResolverWithRunner(noRunner{t})})
	assert.Error(t, err)
}
