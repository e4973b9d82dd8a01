package handlers

import "time"

// Defaults fill request parameters the caller left out.
type Defaults struct {
	LoadedPctThreshold float64
	MaxChainLength     int
	MaxSearchNodes     int
	SearchTimeout      time.Duration
	HardHourCap        float64
	WarningHourCap     float64
	AverageSpeedKmh    float64
	LoadUnloadHours    float64
	MaxDrivers         int
	Strategy           string
}

func orDefault[T any](v *T, fallback T) T {
	if v == nil {
		return fallback
	}
	return *v
}
