package cudart

import (
	"golang.org/x/sys/cpu"
)

// cpuFeatures tracks the instruction set extensions relevant to the GEMM
// backend. Detection runs once at package load.
type cpuFeatures struct {
	hasSSE4    bool
	hasAVX2    bool
	hasAVX512F bool
	hasFMA     bool
	hasNEON    bool
}

// Initialized as a package variable so it is ready before any init func
// builds the device list from it.
var features = cpuFeatures{
	hasSSE4:    cpu.X86.HasSSE41 || cpu.X86.HasSSE42,
	hasAVX2:    cpu.X86.HasAVX2,
	hasAVX512F: cpu.X86.HasAVX512F,
	hasFMA:     cpu.X86.HasFMA,
	hasNEON:    cpu.ARM64.HasASIMD,
}

// simdTier names the widest usable SIMD extension.
func simdTier() string {
	switch {
	case features.hasAVX512F:
		return "AVX-512"
	case features.hasAVX2 && features.hasFMA:
		return "AVX2"
	case features.hasNEON:
		return "NEON"
	case features.hasSSE4:
		return "SSE4"
	default:
		return "scalar"
	}
}
