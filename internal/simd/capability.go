package simd

import (
	"os"
	"runtime"
	"strings"
)

// ISA represents the population-count instruction path in use.
type ISA uint8

const (
	// Generic represents the portable SWAR implementation (no hardware popcount).
	Generic ISA = iota
	// POPCNT represents the x86-64 POPCNT instruction.
	POPCNT
	// NEON represents the ARM64 ASIMD CNT instruction.
	NEON
)

// String returns the string representation of an ISA.
func (i ISA) String() string {
	switch i {
	case Generic:
		return "generic"
	case POPCNT:
		return "popcnt"
	case NEON:
		return "neon"
	default:
		return "unknown"
	}
}

// ParseISA parses a string into an ISA value.
func ParseISA(s string) (ISA, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "generic":
		return Generic, true
	case "popcnt":
		return POPCNT, true
	case "neon":
		return NEON, true
	default:
		return Generic, false
	}
}

// OverrideEnv names the environment variable that forces a kernel set.
const OverrideEnv = "DUPEHASH_SIMD"

// Package-level state - initialized once at package init.
var (
	// activeISA is the selected implementation.
	activeISA ISA

	// hasOverride is true if DUPEHASH_SIMD was set to a usable value.
	hasOverride bool

	// CPU feature flags (set by platform-specific init)
	hasPOPCNT bool // x86-64 POPCNT
	hasASIMD  bool // ARM64 NEON
)

// initCapabilities is called from platform-specific init functions
// after CPU features are detected.
func initCapabilities() {
	if override := os.Getenv(OverrideEnv); override != "" {
		if isa, ok := ParseISA(override); ok && isISAAvailable(isa) {
			hasOverride = true
			setISA(isa)
			return
		}
		// Unknown or unavailable override - fall through to auto-detection
	}

	setISA(selectBestISA())
}

// isISAAvailable checks if an ISA is supported on this CPU.
func isISAAvailable(isa ISA) bool {
	switch isa {
	case Generic:
		return true
	case POPCNT:
		return hasPOPCNT
	case NEON:
		return hasASIMD
	default:
		return false
	}
}

// selectBestISA chooses the optimal ISA for the current platform.
func selectBestISA() ISA {
	switch runtime.GOARCH {
	case "amd64":
		if hasPOPCNT {
			return POPCNT
		}
	case "arm64":
		if hasASIMD {
			return NEON
		}
	}
	return Generic
}

// setISA records isa as active and installs the matching kernels.
func setISA(isa ISA) {
	activeISA = isa
	if isa == Generic {
		setGenericKernels()
		return
	}
	setHardwareKernels()
}

// ActiveISA returns the currently active ISA.
func ActiveISA() ISA {
	return activeISA
}

// IsOverridden returns true if DUPEHASH_SIMD selected the active ISA.
func IsOverridden() bool {
	return hasOverride
}

// HasPOPCNT returns true if x86-64 POPCNT is available.
func HasPOPCNT() bool {
	return hasPOPCNT
}

// HasASIMD returns true if ARM64 NEON is available.
func HasASIMD() bool {
	return hasASIMD
}

// Accelerated reports whether a hardware population-count path is active.
func Accelerated() bool {
	return activeISA != Generic
}
