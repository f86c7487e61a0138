// Package clang assembles the clang front-end invocation used to parse C++
// headers for binding generation. The assembly itself is deterministic; the
// only I/O is the xcrun call behind SDKResolver.
package clang

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/bindcc-build/bindcc/internal/target"
)

// Std is the C++ language standard the headers are parsed under. Picked once
// per build configuration, not per call.
type Std string

const (
	Cpp11 Std = "c++11"
	Cpp14 Std = "c++14"
	Cpp17 Std = "c++17"
)

// ParseStd validates a standard name from configuration.
func ParseStd(s string) (Std, error) {
	switch Std(s) {
	case Cpp11, Cpp14, Cpp17:
		return Std(s), nil
	}
	return "", fmt.Errorf("unknown C++ standard %q (want c++11, c++14 or c++17)", s)
}

// Flag returns the -std= argument for the standard.
func (s Std) Flag() string { return "-std=" + string(s) }

// Runner executes an external command and captures its trimmed stdout. It
// exists so the deterministic flag assembly can be tested without spawning
// processes.
type Runner interface {
	TrimmedOutput(name string, args ...string) (string, error)
}

type execRunner struct{}

func (execRunner) TrimmedOutput(name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	cmd.Stderr = os.Stderr
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// SDKResolver resolves the sysroot for Apple targets via xcrun.
type SDKResolver struct {
	runner Runner
}

func NewSDKResolver() *SDKResolver {
	return &SDKResolver{runner: execRunner{}}
}

// NewSDKResolverWithRunner injects a Runner; used by tests.
func NewSDKResolverWithRunner(r Runner) *SDKResolver {
	return &SDKResolver{runner: r}
}

// Path returns the SDK sysroot for the triple, or "" when no SDK applies to
// it (in which case xcrun is never invoked). A failing xcrun is unrecoverable
// for a cross build: the error is propagated for the caller to abort on,
// never retried or defaulted.
func (r *SDKResolver) Path(triple string) (string, error) {
	sdk, ok := target.SDKName(triple)
	if !ok {
		return "", nil
	}
	path, err := r.runner.TrimmedOutput("xcrun", "--sdk", sdk, "--show-sdk-path")
	if err != nil {
		return "", fmt.Errorf("xcrun --sdk %s --show-sdk-path: %w", sdk, err)
	}
	return path, nil
}

// Builder assembles the clang argument list for one build configuration.
type Builder struct {
	Triple string
	Std    Std
	// PlatformRuntime emits -stdlib=libc++. Upstream clang defaults differ
	// between the desktop and mobile toolchains, so this is an explicit
	// choice rather than a guess.
	PlatformRuntime bool
	SDK             *SDKResolver
}

// Build produces the ordered argument list: language mode and standard
// first, sysroot and platform extras next, include flags, then the target
// flag last. Identical inputs always produce identical output. Empty slices
// contribute nothing; non-Apple, non-Android triples get only the fixed
// flags, includes and the target flag.
func (b *Builder) Build(includes, appleArgs, androidArgs []string) ([]string, error) {
	p := target.Classify(b.Triple)

	args := []string{"-xc++"}
	if b.PlatformRuntime {
		args = append(args, "-stdlib=libc++")
	}
	args = append(args, b.Std.Flag())

	if p.Apple() {
		// lookup uses the original triple, not the corrected one
		sysroot, err := b.SDK.Path(p.Triple)
		if err != nil {
			return nil, err
		}
		if sysroot != "" {
			args = append(args, "-isysroot", sysroot)
		}
		args = append(args, appleArgs...)
	}

	if p.Kind == target.Android {
		args = append(args, androidArgs...)
	}

	for _, include := range includes {
		args = append(args, "-I"+include)
	}

	return append(args, "--target="+target.CorrectTriple(p.Triple)), nil
}
