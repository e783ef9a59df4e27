package workflow

import "time"

// SetTimeNow pins the engine clock and returns a restore func.
func SetTimeNow(t time.Time) func() {
	prev := timeNow
	timeNow = func() time.Time { return t }
	return func() { timeNow = prev }
}
