package domain

// Driver aggregate holding assigned loads in execution order.
//
// HoursUsed is cycle-scoped and only ever grows within a planning run.
// LoadedKm and EmptyKm are kept in step with Segments.
type Driver struct {
	ID              int
	Name            string
	HomeBase        string
	CurrentLocation string
	HoursUsed       float64
	LoadIDs         []int
	Segments        []Segment
	LoadedKm        float64
	EmptyKm         float64
	Revenue         float64
}

// NewDriver starts a driver with no work at its home base.
func NewDriver(id int, name string, base string) *Driver {
	return &Driver{
		ID:              id,
		Name:            name,
		HomeBase:        base,
		CurrentLocation: base,
	}
}

// Drive appends a leg and books its distance and hours.
func (d *Driver) Drive(seg Segment, hours float64) {
	d.Segments = append(d.Segments, seg)
	if seg.Empty() {
		d.EmptyKm += seg.Km
	} else {
		d.LoadedKm += seg.Km
	}
	d.HoursUsed += hours
	d.CurrentLocation = seg.To
}

func (d *Driver) TotalKm() float64 { return d.LoadedKm + d.EmptyKm }

func (d *Driver) LoadedPct() float64 { return LoadedPct(d.LoadedKm, d.TotalKm()) }

func (d *Driver) RPM() float64 { return RPM(d.Revenue, d.TotalKm()) }

func (d *Driver) HourlyRate() float64 { return HourlyRate(d.Revenue, d.HoursUsed) }

// AtHome reports whether the driver currently sits at its home base.
func (d *Driver) AtHome() bool {
	return SameCity(d.CurrentLocation, d.HomeBase)
}
