package image

import (
	"fmt"
	"time"
)

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// AspectRatio reduces width:height by their greatest common divisor. It
// returns ok=false when either side is not positive.
func AspectRatio(width, height int) (rw, rh int, ok bool) {
	if width <= 0 || height <= 0 {
		return 0, 0, false
	}
	d := gcd(width, height)
	return width / d, height / d, true
}

// FormatDimensions renders "{w} x {h} ({rw}:{rh})", omitting the ratio when
// it is undefined.
func FormatDimensions(width, height int) string {
	rw, rh, ok := AspectRatio(width, height)
	if !ok {
		return fmt.Sprintf("%d x %d", width, height)
	}
	return fmt.Sprintf("%d x %d (%d:%d)", width, height, rw, rh)
}

// FormatDuration renders "{s.1}s" for a second or more, otherwise "{ms}ms".
func FormatDuration(d time.Duration) string {
	ms := d.Milliseconds()
	if ms >= 1000 {
		return fmt.Sprintf("%.1fs", float64(ms)/1000)
	}
	return fmt.Sprintf("%dms", ms)
}

// FormatSize renders the "WxH" size string used by REST providers.
func FormatSize(width, height int) string {
	return fmt.Sprintf("%dx%d", width, height)
}
