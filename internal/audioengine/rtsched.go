//go:build linux

package audioengine

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// defaultRTPriority is the FIFO priority used when RT_PRIORITY is unset.
const defaultRTPriority = 80

// EnableRealtimeScheduling switches the calling OS thread to SCHED_FIFO at
// priority. Failure (typically missing CAP_SYS_NICE) is not fatal; the
// caller logs a warning and continues at the default scheduling policy
// (§4.9 step 2).
func EnableRealtimeScheduling(priority int) error {
	if priority <= 0 {
		priority = defaultRTPriority
	}

	sched := &unix.SchedParam{Priority: int32(priority)}
	if err := unix.SchedSetscheduler(0, unix.SCHED_FIFO, sched); err != nil {
		return fmt.Errorf("audioengine: SchedSetscheduler: %w", err)
	}

	return nil
}

// LockMemory calls mlockall(MCL_CURRENT|MCL_FUTURE) to prevent the audio
// thread's pages from being paged out mid-stream. Failure is not fatal.
func LockMemory() error {
	if err := unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE); err != nil {
		return fmt.Errorf("audioengine: Mlockall: %w", err)
	}

	return nil
}
