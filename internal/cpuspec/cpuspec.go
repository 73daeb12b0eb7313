// Package cpuspec picks the default worker count from the host CPU
package cpuspec

import (
	"runtime"

	"github.com/klauspost/cpuid/v2"
)

// MaxWorkers caps the pool size regardless of what the host reports
const MaxWorkers = 64

// CPUSpec contains information about CPU specifications
type CPUSpec struct {
	BrandName     string
	PhysicalCores int
	LogicalCores  int
	// AvailableCPUs is what the Go runtime may use, smaller than
	// LogicalCores under cgroup or affinity limits
	AvailableCPUs int
}

// GetCPUSpec returns the CPU description of the host
func GetCPUSpec() CPUSpec {
	return CPUSpec{
		BrandName:     cpuid.CPU.BrandName,
		PhysicalCores: cpuid.CPU.PhysicalCores,
		LogicalCores:  cpuid.CPU.LogicalCores,
		AvailableCPUs: runtime.NumCPU(),
	}
}

// WorkerCount returns the pool size to use. A positive request is honored
// within [1, MaxWorkers]; otherwise one worker per usable logical core.
func (c CPUSpec) WorkerCount(requested int) int {
	if requested > 0 {
		return clampInt(requested, 1, MaxWorkers)
	}

	n := c.LogicalCores
	if n <= 0 {
		n = c.PhysicalCores
	}
	// Never exceed what the scheduler can actually run (important for VMs and containers)
	if c.AvailableCPUs > 0 && (n <= 0 || n > c.AvailableCPUs) {
		n = c.AvailableCPUs
	}
	return clampInt(n, 1, MaxWorkers)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
