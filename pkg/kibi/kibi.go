package kibi

import "fmt"

var units = []string{"KB", "MB", "GB", "TB"}

// FormatBytes renders a file size for log messages, eg "35 MB" or "1.4 MB"
func FormatBytes(b int64) string {
	if b < 1024 {
		return fmt.Sprintf("%v bytes", b)
	}
	v := float64(b) / 1024
	unit := 0
	for v >= 1024 && unit < len(units)-1 {
		v /= 1024
		unit++
	}
	if v < 10 && v != float64(int64(v)) {
		return fmt.Sprintf("%.1f %v", v, units[unit])
	}
	return fmt.Sprintf("%.0f %v", v, units[unit])
}
