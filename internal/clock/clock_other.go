//go:build !linux

package clock

import "time"

type monotonic struct{}

var processStart = time.Now()

// Now measures from process start using the runtime's monotonic reading.
func (monotonic) Now() time.Duration {
	return time.Since(processStart)
}
