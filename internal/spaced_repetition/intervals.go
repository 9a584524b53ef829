package spaced_repetition

import (
	"time"
)

// MaxStage is the last spaced-repetition stage. Completing a review at this
// stage ends the cycle; no further entry is scheduled.
const MaxStage = 6

// DefaultIntervalDays is used for stages outside the table
const DefaultIntervalDays = 1

// stageIntervals maps a review stage to the number of days between the
// previous review and this stage's due date.
var stageIntervals = map[int]int{
	1: 1,
	2: 3,
	3: 7,
	4: 14,
	5: 30,
	6: 90,
}

// NextInterval returns the interval in days for the given review stage
func NextInterval(stage int) int {
	if days, ok := stageIntervals[stage]; ok {
		return days
	}
	return DefaultIntervalDays
}

// ComputeDueDate returns the calendar date a review at the given stage falls
// due when scheduled from fromDate. The time of day is dropped: due dates are
// local calendar dates.
func ComputeDueDate(stage int, fromDate time.Time) time.Time {
	due := fromDate.AddDate(0, 0, NextInterval(stage))
	return time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, due.Location())
}

// IsTerminalStage reports whether completing a review at the given stage
// ends the spaced-repetition cycle
func IsTerminalStage(stage int) bool {
	return stage >= MaxStage
}
