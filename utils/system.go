package utils

import (
	"fmt"
	"runtime"
)

// GetMemUsage summarizes the Go heap for progress lines
func GetMemUsage() string {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	mib := func(b uint64) uint64 { return b >> 20 }
	return fmt.Sprintf("heap %d MiB, total %d MiB, sys %d MiB, gc %d",
		mib(m.HeapAlloc), mib(m.TotalAlloc), mib(m.Sys), m.NumGC)
}
