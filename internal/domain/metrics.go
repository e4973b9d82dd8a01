package domain

// KmToMiles converts kilometres to statute miles.
const KmToMiles = 0.621371

// LoadedPct returns loaded / total, or 0 when total is 0.
func LoadedPct(loadedKm, totalKm float64) float64 {
	if totalKm <= 0 {
		return 0
	}
	return loadedKm / totalKm
}

// RPM returns revenue per mile driven. 0 when no distance was driven.
func RPM(revenue, totalKm float64) float64 {
	miles := totalKm * KmToMiles
	if miles <= 0 {
		return 0
	}
	return revenue / miles
}

func HourlyRate(revenue, hours float64) float64 {
	if hours <= 0 {
		return 0
	}
	return revenue / hours
}

// DriveHours converts a distance to driving time at a fixed average speed.
func DriveHours(km, speedKmh float64) float64 {
	if speedKmh <= 0 {
		return 0
	}
	return km / speedKmh
}
