package session

import "fmt"

// FormatElapsed renders a millisecond duration as HH:MM:SS. Hours wrap at
// 24 and negative or garbage input renders as zero, matching the timer
// display contract.
func FormatElapsed(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	hours := (ms / 3600000) % 24
	minutes := (ms / 60000) % 60
	seconds := (ms / 1000) % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
