// Package target classifies cross-compilation target triples into the
// platform families this tool knows how to configure.
package target

import "strings"

// Kind is the platform family of a target triple.
type Kind int

const (
	Unrecognized Kind = iota
	IOS
	MacOS
	Android
)

func (k Kind) String() string {
	switch k {
	case IOS:
		return "ios"
	case MacOS:
		return "macos"
	case Android:
		return "android"
	}
	return "unknown"
}

// Platform is a classified target triple. The original triple travels with
// the kind so flag assembly and SDK lookup never re-derive it.
type Platform struct {
	Kind   Kind
	Triple string
}

// Apple reports whether the platform needs Apple SDK handling.
func (p Platform) Apple() bool {
	return p.Kind == IOS || p.Kind == MacOS
}

// Classify maps a target triple onto a platform family. The checks are
// ordered: `apple-ios` must win before the generic `apple` vendor marker,
// which otherwise covers the darwin triples.
func Classify(triple string) Platform {
	switch {
	case strings.Contains(triple, "apple-ios"):
		return Platform{Kind: IOS, Triple: triple}
	case strings.Contains(triple, "apple"):
		return Platform{Kind: MacOS, Triple: triple}
	case strings.Contains(triple, "android"):
		return Platform{Kind: Android, Triple: triple}
	}
	return Platform{Kind: Unrecognized, Triple: triple}
}

// SDK names as understood by xcrun.
const (
	SDKMacOS     = "macosx"
	SDKIPhoneSim = "iphonesimulator"
	SDKIPhoneOS  = "iphoneos"
)

// SDKName picks the xcrun SDK for a triple. Simulator and device triples are
// matched exactly; any other darwin triple gets the desktop SDK. The second
// return is false when no SDK applies to the triple.
func SDKName(triple string) (string, bool) {
	switch {
	case strings.Contains(triple, "apple-darwin"):
		return SDKMacOS, true
	case triple == "x86_64-apple-ios" || triple == "i386-apple-ios":
		return SDKIPhoneSim, true
	case triple == "aarch64-apple-ios" || triple == "armv7-apple-ios":
		return SDKIPhoneOS, true
	}
	return "", false
}

// CorrectTriple works around a spelling mismatch in Apple's tooling: the SDK
// side calls the 64-bit ARM iOS target aarch64-apple-ios while clang expects
// arm64-apple-ios in --target=. Applies only to the target flag; SDK lookup
// must keep the original spelling. Remove once the toolchains agree.
func CorrectTriple(triple string) string {
	if triple == "aarch64-apple-ios" {
		return "arm64-apple-ios"
	}
	return triple
}
