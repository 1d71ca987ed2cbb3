/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
)

// humanReadableSize formats n bytes with SI prefixes, e.g. 1.5 kB.
func humanReadableSize(n int64) string {
	const unit = 1000

	if n < unit {
		return fmt.Sprintf("%d B", n)
	}

	size := float64(n)
	prefixes := "kMGTPE"
	i := -1
	for size >= unit && i < len(prefixes)-1 {
		size /= unit
		i++
	}

	return fmt.Sprintf("%.1f %cB", size, prefixes[i])
}
