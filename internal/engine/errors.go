package engine

import (
	"fmt"
	"time"
)

// NoProgressError is raised when the event loop cannot advance simulated
// time: nothing in flight, nobody online, no future session, yet the event
// has not ended. It signals an unsatisfiable schedule rather than letting
// the loop spin forever.
type NoProgressError struct {
	CurrentTime   time.Time
	AttemptedTime time.Time
	OnlinePlayers int
}

func (e *NoProgressError) Error() string {
	return fmt.Sprintf("simulation cannot advance past %s (attempted %s, %d players online)",
		e.CurrentTime.Format(time.RFC3339), e.AttemptedTime.Format(time.RFC3339), e.OnlinePlayers)
}
