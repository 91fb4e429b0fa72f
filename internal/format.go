package internal

import (
	"fmt"
	"strconv"
)

// FormatCount renders a count compactly: 950, 1.2K, 3.4M
func FormatCount(n int) string {
	switch {
	case n <= 0:
		return "0"
	case n < 1_000:
		return strconv.Itoa(n)
	case n < 1_000_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	}
}

// FormatFileSize renders a byte size with binary units and one decimal
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	value := float64(size) / unit
	units := []string{"KB", "MB", "GB", "TB"}
	i := 0
	for value >= unit && i < len(units)-1 {
		value /= unit
		i++
	}
	return fmt.Sprintf("%.1f %s", value, units[i])
}
