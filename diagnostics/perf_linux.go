//go:build linux

package diagnostics

import (
	perf "github.com/hodgesds/perf-utils"
)

// countInstructions runs fn under a CPU instruction counter. When the counter
// cannot be opened, fn is run uncounted.
func countInstructions(fn func() error) (instr uint64, ok bool, err error) {
	var (
		ran  bool
		fErr error
	)
	pv, perr := perf.CPUInstructions(func() error {
		ran = true
		fErr = fn()
		return fErr
	})
	if !ran {
		return 0, false, fn()
	}
	if perr != nil || pv == nil {
		return 0, false, fErr
	}
	return pv.Value, true, fErr
}
