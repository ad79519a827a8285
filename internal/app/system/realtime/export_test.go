package realtime

import (
	"testing"
	"time"
)

// SetPingPeriod shortens the ping interval for the duration of a test.
func SetPingPeriod(t testing.TB, d time.Duration) {
	old := pingPeriod
	pingPeriod = d
	t.Cleanup(func() { pingPeriod = old })
}
