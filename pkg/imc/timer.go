package imc

import "time"

// SystemTimer implements Timer over the host's monotonic clock,
// reporting elapsed microseconds since it was created. Ported from the
// free-running role of UsTimerBase.hpp.
type SystemTimer struct {
	start time.Time
}

// NewSystemTimer creates a SystemTimer whose epoch is the call time.
func NewSystemTimer() *SystemTimer {
	return &SystemTimer{start: time.Now()}
}

// Now returns microseconds elapsed since the timer was created.
func (t *SystemTimer) Now() uint64 {
	return uint64(time.Since(t.start).Microseconds())
}
