// Package schedule evaluates weekly recurring availability windows against
// zoned instants. All functions are pure; the engine's canonical clock is
// elapsed seconds since event start, converted here to wall-clock instants
// because sessions are defined in local wall-clock time.
package schedule

import (
	"time"

	"github.com/clanevents/bingosim/internal/snapshot"
)

// InstantAt converts elapsed seconds since event start to a zoned instant.
func InstantAt(start time.Time, elapsedSeconds float64) time.Time {
	return start.Add(time.Duration(elapsedSeconds * float64(time.Second)))
}

// ElapsedSeconds converts a zoned instant back to elapsed seconds.
func ElapsedSeconds(start, at time.Time) float64 {
	return at.Sub(start).Seconds()
}

// IsOnlineAt reports whether a player with the given schedule is online at
// the instant. An empty session list means always online. Sessions are
// half-open [start, start+duration) and may span midnight, so the instant is
// checked against sessions anchored on both its own day and the day before.
func IsOnlineAt(ws *snapshot.WeeklySchedule, at time.Time) bool {
	if len(ws.Sessions) == 0 {
		return true
	}
	_, ok := CurrentSessionEnd(ws, at)
	return ok
}

// CurrentSessionEnd returns the end of the session active at the instant,
// or false if the player is offline. Overlapping sessions report the
// latest end.
func CurrentSessionEnd(ws *snapshot.WeeklySchedule, at time.Time) (time.Time, bool) {
	var end time.Time
	found := false
	for _, dayOffset := range []int{0, -1} {
		day := midnight(at.AddDate(0, 0, dayOffset))
		for _, sess := range ws.Sessions {
			if sess.DayOfWeek != int(day.Weekday()) {
				continue
			}
			start := day.Add(time.Duration(sess.StartMinuteOfDay) * time.Minute)
			stop := start.Add(time.Duration(sess.DurationMinutes) * time.Minute)
			if !at.Before(start) && at.Before(stop) {
				if !found || stop.After(end) {
					end = stop
				}
				found = true
			}
		}
	}
	return end, found
}

// NextSessionStart returns the earliest session start strictly after the
// instant, searching forward through the recurring 7-day cycle, or false if
// the schedule has no sessions (always-online players have no "next start").
func NextSessionStart(ws *snapshot.WeeklySchedule, from time.Time) (time.Time, bool) {
	if len(ws.Sessions) == 0 {
		return time.Time{}, false
	}
	var best time.Time
	found := false
	// 8 days covers a session later today falling on the same weekday next week.
	for dayOffset := 0; dayOffset <= 8; dayOffset++ {
		day := midnight(from.AddDate(0, 0, dayOffset))
		for _, sess := range ws.Sessions {
			if sess.DayOfWeek != int(day.Weekday()) {
				continue
			}
			start := day.Add(time.Duration(sess.StartMinuteOfDay) * time.Minute)
			if start.After(from) && (!found || start.Before(best)) {
				best = start
				found = true
			}
		}
		if found && dayOffset >= 7 {
			break
		}
	}
	return best, found
}

// EarliestNextSessionStart returns the minimum next session start over every
// player of every team, or false when no player has a future session. The
// runner uses it to fast-forward idle stretches instead of stepping
// second-by-second.
func EarliestNextSessionStart(s *snapshot.EventSnapshot, from time.Time) (time.Time, bool) {
	var best time.Time
	found := false
	for ti := range s.Teams {
		for pi := range s.Teams[ti].Players {
			start, ok := NextSessionStart(s.Teams[ti].Players[pi].Schedule, from)
			if ok && (!found || start.Before(best)) {
				best = start
				found = true
			}
		}
	}
	return best, found
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
