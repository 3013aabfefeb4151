package domain

import "time"

// Window is the [start, end] interval passed to the parameterized catalog
// APIs (USGS, EMSC). The IGN feed ignores it (§9 open question 2).
type Window struct {
	Start time.Time
	End   time.Time
}
