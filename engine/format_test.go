package engine_test

import (
	"testing"

	"github.com/seb26/fioctl/engine"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{999, "999 B"},
		{1000, "1.00 kB"},
		{1500, "1.50 kB"},
		{1000 * 1000, "1.00 MB"},
		{2500 * 1000, "2.50 MB"},
		{1000 * 1000 * 1000, "1.00 GB"},
		{int64(1000) * 1000 * 1000 * 1000, "1.00 TB"},
	}

	for _, tt := range tests {
		if got := engine.FormatBytes(tt.n); got != tt.want {
			t.Errorf("FormatBytes(%d): expected %s, got %s", tt.n, tt.want, got)
		}
	}
}

func TestFormatBytesPerSec(t *testing.T) {
	if got := engine.FormatBytesPerSec(2_500_000); got != "2.50 MB/s" {
		t.Errorf("Expected 2.50 MB/s, got %s", got)
	}
}

func TestFormatMbps(t *testing.T) {
	// 1 MB/s is 8 megabits per second
	if got := engine.FormatMbps(1_000_000); got != "8.00 Mbps" {
		t.Errorf("Expected 8.00 Mbps, got %s", got)
	}
}
