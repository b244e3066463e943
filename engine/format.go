package engine

import "fmt"

// FormatBytes renders a byte count with the best decimal (SI) prefix,
// two decimal places.
func FormatBytes(n int64) string {
	const (
		kB = 1000
		mB = kB * 1000
		gB = mB * 1000
		tB = gB * 1000
	)

	switch {
	case n >= tB:
		return fmt.Sprintf("%.2f TB", float64(n)/float64(tB))
	case n >= gB:
		return fmt.Sprintf("%.2f GB", float64(n)/float64(gB))
	case n >= mB:
		return fmt.Sprintf("%.2f MB", float64(n)/float64(mB))
	case n >= kB:
		return fmt.Sprintf("%.2f kB", float64(n)/float64(kB))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// FormatBytesPerSec renders a transfer rate in byte units.
func FormatBytesPerSec(bytesPerSec float64) string {
	return FormatBytes(int64(bytesPerSec)) + "/s"
}

// FormatMbps renders a transfer rate in megabits per second, the
// conventional unit for network throughput.
func FormatMbps(bytesPerSec float64) string {
	return fmt.Sprintf("%.2f Mbps", bytesPerSec*8/1e6)
}
