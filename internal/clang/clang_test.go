package clang

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	out   string
	err   error
	calls [][]string
}

func (r *fakeRunner) TrimmedOutput(name string, args ...string) (string, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	return r.out, r.err
}

func TestParseStd(t *testing.T) {
	for _, s := range []string{"c++11", "c++14", "c++17"} {
		std, err := ParseStd(s)
		require.NoError(t, err)
		assert.Equal(t, "-std="+s, std.Flag())
	}
	_, err := ParseStd("c++23")
	assert.Error(t, err)
}

func TestBuildIOSCorrectsTargetTriple(t *testing.T) {
	runner := &fakeRunner{out: "/sdk/iPhoneOS.sdk"}
	b := &Builder{
		Triple:          "aarch64-apple-ios",
		Std:             Cpp17,
		PlatformRuntime: true,
		SDK:             NewSDKResolverWithRunner(runner),
	}

	args, err := b.Build(nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"-xc++",
		"-stdlib=libc++",
		"-std=c++17",
		"-isysroot", "/sdk/iPhoneOS.sdk",
		"--target=arm64-apple-ios",
	}, args)

	// the SDK lookup must see the original spelling, not the corrected one
	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"xcrun", "--sdk", "iphoneos", "--show-sdk-path"}, runner.calls[0])
}

func TestBuildDarwinUsesDesktopSDK(t *testing.T) {
	runner := &fakeRunner{out: "/sdk/MacOSX.sdk"}
	b := &Builder{
		Triple:          "aarch64-apple-darwin",
		Std:             Cpp17,
		PlatformRuntime: true,
		SDK:             NewSDKResolverWithRunner(runner),
	}

	args, err := b.Build(nil, []string{"-fobjc-arc"}, []string{"-DANDROID"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"-xc++",
		"-stdlib=libc++",
		"-std=c++17",
		"-isysroot", "/sdk/MacOSX.sdk",
		"-fobjc-arc",
		"--target=aarch64-apple-darwin",
	}, args)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"xcrun", "--sdk", "macosx", "--show-sdk-path"}, runner.calls[0])
}

func TestBuildAndroid(t *testing.T) {
	runner := &fakeRunner{}
	b := &Builder{
		Triple:          "aarch64-linux-android",
		Std:             Cpp14,
		PlatformRuntime: true,
		SDK:             NewSDKResolverWithRunner(runner),
	}

	args, err := b.Build(nil, []string{"-fobjc-arc"}, []string{"--sysroot=/ndk/sysroot", "-DANDROID"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"-xc++",
		"-stdlib=libc++",
		"-std=c++14",
		"--sysroot=/ndk/sysroot",
		"-DANDROID",
		"--target=aarch64-linux-android",
	}, args)
	assert.Empty(t, runner.calls, "android targets must not query xcrun")
}

func TestBuildUnrecognizedTriple(t *testing.T) {
	runner := &fakeRunner{}
	b := &Builder{
		Triple:          "x86_64-unknown-linux-gnu",
		Std:             Cpp17,
		PlatformRuntime: true,
		SDK:             NewSDKResolverWithRunner(runner),
	}

	args, err := b.Build(
		[]string{"/usr/local/inc", "/opt/inc"},
		[]string{"-fobjc-arc"},
		[]string{"-DANDROID"},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"-xc++",
		"-stdlib=libc++",
		"-std=c++17",
		"-I/usr/local/inc",
		"-I/opt/inc",
		"--target=x86_64-unknown-linux-gnu",
	}, args)
	assert.Empty(t, runner.calls)
}

func TestBuildWithoutPlatformRuntime(t *testing.T) {
	b := &Builder{
		Triple: "x86_64-unknown-linux-gnu",
		Std:    Cpp11,
		SDK:    NewSDKResolverWithRunner(&fakeRunner{}),
	}

	args, err := b.Build(nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"-xc++", "-std=c++11", "--target=x86_64-unknown-linux-gnu"}, args)
}

func TestBuildIsDeterministic(t *testing.T) {
	runner := &fakeRunner{out: "/sdk/iPhoneSimulator.sdk"}
	b := &Builder{
		Triple:          "x86_64-apple-ios",
		Std:             Cpp17,
		PlatformRuntime: true,
		SDK:             NewSDKResolverWithRunner(runner),
	}

	first, err := b.Build([]string{"/inc"}, []string{"-a"}, nil)
	require.NoError(t, err)
	second, err := b.Build([]string{"/inc"}, []string{"-a"}, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBuildSDKFailureAborts(t *testing.T) {
	runner := &fakeRunner{err: errors.New("xcode-select: no developer tools")}
	b := &Builder{
		Triple:          "aarch64-apple-ios",
		Std:             Cpp17,
		PlatformRuntime: true,
		SDK:             NewSDKResolverWithRunner(runner),
	}

	_, err := b.Build(nil, nil, nil)
	assert.Error(t, err)
}

func TestSDKResolverSkipsUnknownTriples(t *testing.T) {
	runner := &fakeRunner{out: "/never"}
	r := NewSDKResolverWithRunner(runner)

	path, err := r.Path("x86_64-unknown-linux-gnu")
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Empty(t, runner.calls, "no SDK kind means no xcrun call")
}
