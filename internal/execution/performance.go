package execution

import "time"

// Entry types used by the built-in helpers.
const (
	EntryTypeMark    = "mark"
	EntryTypeMeasure = "measure"
)

// PerformanceEntry is a timed measurement. It is stored as given.
type PerformanceEntry struct {
	Name      string
	EntryType string
	StartTime time.Time
	Duration  time.Duration
}
