package domain

import (
	"errors"
	"strings"
)

// Represents a single freight load offered for a planning run.
//
// Revenue, Legs and ReloadOptions are filled by the load enricher and treated
// as immutable afterwards. ReloadOptions is keyed by the id of the load that
// could be picked up right after this one is dropped off.
type Load struct {
	ID          int
	PickupCity  string
	DropoffCity string
	Rate        float64
	Weight      float64
	Required    bool

	Revenue       float64
	Legs          LoadLegs
	ReloadOptions map[int]ReloadOption
}

// Static legs of a load relative to the run's start and end locations.
type LoadLegs struct {
	DeadheadKm Distance
	LoadedKm   Distance
	ReturnKm   Distance
}

// Cost of chaining this load's dropoff into another load's pickup.
type ReloadOption struct {
	LinkKm       Distance
	NextLoadedKm Distance
}

// ComputeRevenue returns rate x weight.
func (l Load) ComputeRevenue() float64 {
	return l.Rate * l.Weight
}

// AssignIDs gives every load without an id (ID == 0) the next free integer
// id, keeping ids supplied by the caller.
func AssignIDs(loads []Load) {
	next := 1
	taken := make(map[int]struct{}, len(loads))
	for _, l := range loads {
		if l.ID != 0 {
			taken[l.ID] = struct{}{}
		}
	}
	for i := range loads {
		if loads[i].ID != 0 {
			continue
		}
		for {
			if _, ok := taken[next]; !ok {
				break
			}
			next++
		}
		loads[i].ID = next
		taken[next] = struct{}{}
	}
}

// ValidateLoads checks raw caller input. All problems are reported at once.
func ValidateLoads(loads []Load) error {
	if len(loads) == 0 {
		return &ValidationError{Field: "loads", Index: -1, Err: ErrNoLoads}
	}

	var errs []error
	seen := make(map[int]struct{}, len(loads))
	for i, l := range loads {
		if strings.TrimSpace(l.PickupCity) == "" {
			errs = append(errs, fieldError("pickup_city", i, ErrMissingCity))
		}
		if strings.TrimSpace(l.DropoffCity) == "" {
			errs = append(errs, fieldError("dropoff_city", i, ErrMissingCity))
		}
		if l.Weight <= 0 {
			errs = append(errs, fieldError("weight", i, ErrInvalidWeight))
		}
		if l.Rate < 0 {
			errs = append(errs, fieldError("rate", i, ErrInvalidRate))
		}
		if _, ok := seen[l.ID]; ok {
			errs = append(errs, fieldError("id", i, ErrDuplicateLoadID))
		}
		seen[l.ID] = struct{}{}
	}

	return errors.Join(errs...)
}

// RequiredIDs returns the ids of all loads flagged as required, in input order.
func RequiredIDs(loads []Load) []int {
	var ids []int
	for _, l := range loads {
		if l.Required {
			ids = append(ids, l.ID)
		}
	}
	return ids
}
