package kernel

import (
	"runtime"

	"golang.org/x/sys/cpu"
)

// CPUFeatures describes the instruction set extensions detected at start-up
// and the dot product implementation selected from them.
type CPUFeatures struct {
	Arch           string `json:"arch" yaml:"arch"`
	AVX2           bool   `json:"avx2" yaml:"avx2"`
	FMA            bool   `json:"fma" yaml:"fma"`
	AVX512F        bool   `json:"avx512f" yaml:"avx512f"`
	ASIMD          bool   `json:"asimd" yaml:"asimd"`
	Accelerated    bool   `json:"accelerated" yaml:"accelerated"`
	Implementation string `json:"implementation" yaml:"implementation"`
}

// features is written once during package initialisation and only read after.
var features = detectFeatures()

// Features returns the CPU features probed when the package was initialised.
func Features() CPUFeatures {
	return features
}

func detectFeatures() CPUFeatures {
	f := CPUFeatures{
		Arch:           runtime.GOARCH,
		Implementation: "generic",
	}
	switch runtime.GOARCH {
	case "amd64":
		f.AVX2 = cpu.X86.HasAVX2
		f.FMA = cpu.X86.HasFMA
		f.AVX512F = cpu.X86.HasAVX512F
		// vek32 ships AVX2+FMA assembly for amd64 only.
		if f.AVX2 && f.FMA {
			f.Accelerated = true
			f.Implementation = "avx2"
		}
	case "arm64":
		f.ASIMD = cpu.ARM64.HasASIMD
	}
	return f
}
