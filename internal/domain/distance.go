package domain

// Distance is a resolved road distance between two cities.
//
// Known is false when the lookup service could not resolve the pair (or it
// was never fetched). An unknown distance is never the same as 0 km.
// Estimated marks a substitute value produced by an unknown-distance policy
// rather than by the lookup service.
type Distance struct {
	Km        float64
	Known     bool
	Estimated bool
}

// UnknownDistance is the zero Distance.
var UnknownDistance = Distance{}

func KnownKm(km float64) Distance {
	return Distance{Km: km, Known: true}
}

func EstimatedKm(km float64) Distance {
	return Distance{Km: km, Known: true, Estimated: true}
}
