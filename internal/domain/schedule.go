package domain

import "time"

// DailySchedule is one calendar day of an HOS simulation.
// A reset entry (Reset == true) represents a mandatory rest block and carries
// no loads; RestHours holds the length of that block.
type DailySchedule struct {
	Date      time.Time
	LoadIDs   []int
	HoursUsed float64
	Reset     bool
	RestHours float64
}
