package dto

import "freight-dispatch-service/internal/domain"

type LoadRequest struct {
	ID          int     `json:"id"`
	PickupCity  string  `json:"pickup_city"`
	DropoffCity string  `json:"dropoff_city"`
	Rate        float64 `json:"rate"`
	Weight      float64 `json:"weight"`
	Required    bool    `json:"required"`
}

func LoadsToDomain(in []LoadRequest) []domain.Load {
	out := make([]domain.Load, 0, len(in))
	for _, l := range in {
		out = append(out, domain.Load{
			ID:          l.ID,
			PickupCity:  l.PickupCity,
			DropoffCity: l.DropoffCity,
			Rate:        l.Rate,
			Weight:      l.Weight,
			Required:    l.Required,
		})
	}
	return out
}

// LoadResponse echoes an enriched load. Unknown legs are null.
type LoadResponse struct {
	ID          int      `json:"id"`
	PickupCity  string   `json:"pickup_city"`
	DropoffCity string   `json:"dropoff_city"`
	Revenue     float64  `json:"revenue"`
	Required    bool     `json:"required"`
	DeadheadKm  *float64 `json:"deadhead_km"`
	LoadedKm    *float64 `json:"loaded_km"`
	ReturnKm    *float64 `json:"return_km"`
}

func NewLoadResponses(loads []domain.Load) []LoadResponse {
	out := make([]LoadResponse, 0, len(loads))
	for _, l := range loads {
		out = append(out, LoadResponse{
			ID:          l.ID,
			PickupCity:  l.PickupCity,
			DropoffCity: l.DropoffCity,
			Revenue:     l.Revenue,
			Required:    l.Required,
			DeadheadKm:  km(l.Legs.DeadheadKm),
			LoadedKm:    km(l.Legs.LoadedKm),
			ReturnKm:    km(l.Legs.ReturnKm),
		})
	}
	return out
}

func km(d domain.Distance) *float64 {
	if !d.Known {
		return nil
	}
	v := d.Km
	return &v
}
