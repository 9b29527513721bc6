//go:build !linux

package diagnostics

func countInstructions(fn func() error) (instr uint64, ok bool, err error) {
	return 0, false, fn()
}
