// Package diskcheck verifies that the output filesystem can hold a run
// before any task is submitted
package diskcheck

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/tphakala/wavenc/internal/errors"
)

// DefaultHeadroom is the fraction added on top of the estimated output size
const DefaultHeadroom = 0.10

var ErrInsufficientSpace = errors.NewStd("insufficient free disk space for output")

// UsageFunc reports filesystem usage for a path
type UsageFunc func(path string) (*disk.UsageStat, error)

// Report is the result of a space check
type Report struct {
	Path   string // directory that was measured
	Free   uint64
	Total  uint64
	Needed uint64 // estimate including headroom
}

// Checker measures free space with gopsutil
type Checker struct {
	usage    UsageFunc
	headroom float64
}

// New returns a checker backed by disk.Usage
func New() *Checker {
	return &Checker{usage: disk.Usage, headroom: DefaultHeadroom}
}

// NewWithUsage returns a checker using a custom usage source
func NewWithUsage(usage UsageFunc, headroom float64) *Checker {
	return &Checker{usage: usage, headroom: headroom}
}

// Check measures the filesystem holding dir, or its closest existing
// ancestor when dir does not exist yet, and fails with ErrInsufficientSpace
// when estimatedBytes plus headroom does not fit.
func (c *Checker) Check(dir string, estimatedBytes uint64) (Report, error) {
	path := existingAncestor(dir)
	needed := estimatedBytes + uint64(float64(estimatedBytes)*c.headroom)

	usage, err := c.usage(path)
	if err != nil {
		return Report{Path: path, Needed: needed}, errors.New(err).
			Component("diskcheck").
			Category(errors.CategorySystem).
			Context("path", path).
			Build()
	}

	report := Report{Path: path, Free: usage.Free, Total: usage.Total, Needed: needed}
	if usage.Free < needed {
		return report, errors.New(fmt.Errorf("%w: %s has %d bytes free, need %d", ErrInsufficientSpace, path, usage.Free, needed)).
			Component("diskcheck").
			Category(errors.CategoryDiskUsage).
			Context("path", path).
			Context("free_bytes", usage.Free).
			Context("needed_bytes", needed).
			Build()
	}
	return report, nil
}

func existingAncestor(dir string) string {
	if dir == "" {
		dir = "."
	}
	path, err := filepath.Abs(dir)
	if err != nil {
		path = filepath.Clean(dir)
	}
	for {
		if st, err := os.Stat(path); err == nil && st.IsDir() {
			return path
		}
		parent := filepath.Dir(path)
		if parent == path {
			return path
		}
		path = parent
	}
}
