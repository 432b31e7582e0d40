// Package snapshot assembles immutable, timestamped copies of the working set.
package snapshot

import (
	"time"

	"github.com/roach88/tallykeep/internal/model"
)

// Clock supplies the wall-clock time stamped onto snapshots.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a plain function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the real wall clock.
var SystemClock Clock = systemClock{}

// Build captures ws as a Snapshot stamped with clock's current time.
//
// Build never fails. Nil collections become empty, and the snapshot shares
// no slices with ws, so later edits to the working set never alter it.
func Build(ws model.WorkingSet, clock Clock) model.Snapshot {
	if clock == nil {
		clock = SystemClock
	}
	return model.Snapshot{
		WorkingSet:   ws.Clone(),
		Version:      model.SchemaVersion,
		LastModified: clock.Now().UnixMilli(),
	}
}
