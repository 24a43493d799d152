package behavior

import (
	"time"

	"github.com/google/uuid"
	"github.com/koster51/heat-seaking-roomba/pkg/oi"
)

// SearchSession tracks one in-progress search. It exists exactly while
// the machine is in SearchLeft or SearchRight and is destroyed on
// detection, timeout, or a superseding command, so a stale timer can
// never fire after the search that owned it is gone.
type SearchSession struct {
	// ID correlates the session's events in the mission log.
	ID string
	// Direction is the rotation direction of this search.
	Direction oi.Direction
	// StartedAt is when the search command was accepted.
	StartedAt time.Time
}

func newSearchSession(dir oi.Direction, now time.Time) *SearchSession {
	return &SearchSession{
		ID:        uuid.NewString(),
		Direction: dir,
		StartedAt: now,
	}
}

// Expired reports whether the session has outlived the given cap.
func (s *SearchSession) Expired(now time.Time, timeout time.Duration) bool {
	return now.Sub(s.StartedAt) > timeout
}
