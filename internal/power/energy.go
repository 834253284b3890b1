package power

// EnergyAccumulator integrates a sampler's watt readings into joules,
// adapted from the teacher's consumption.Accumulator (which integrates
// estimated CPU/disk/RAM power into cumulative energy the same way:
// E_cum += P * dt). Here the power is measured directly by a Sampler
// rather than modeled, so there is a single running sum instead of a
// per-component breakdown.
type EnergyAccumulator struct {
	energyCumJ float64
	count      int
	sumWatts   float64
}

// NewEnergyAccumulator returns a zeroed accumulator.
func NewEnergyAccumulator() *EnergyAccumulator {
	return &EnergyAccumulator{}
}

// Apply integrates one benchmark iteration's samples, trapezoidal between
// consecutive samples, and returns the mean watts observed during the
// iteration.
func (a *EnergyAccumulator) Apply(samples []Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	if len(samples) == 1 {
		a.sumWatts += samples[0].Watts
		a.count++
		return samples[0].Watts
	}

	var iterEnergy, iterWatts float64
	for i := 1; i < len(samples); i++ {
		dt := samples[i].At.Sub(samples[i-1].At).Seconds()
		if dt <= 0 {
			continue
		}
		avgW := (samples[i].Watts + samples[i-1].Watts) / 2
		iterEnergy += avgW * dt
		iterWatts += avgW
	}
	a.energyCumJ += iterEnergy
	meanWatts := iterWatts / float64(len(samples)-1)
	a.sumWatts += meanWatts
	a.count++
	return meanWatts
}

// EnergyCumJ returns cumulative energy in Joules across every Apply call.
func (a *EnergyAccumulator) EnergyCumJ() float64 { return a.energyCumJ }

// MeanWatts returns the average of each iteration's mean watts.
func (a *EnergyAccumulator) MeanWatts() float64 {
	if a.count == 0 {
		return 0
	}
	return a.sumWatts / float64(a.count)
}
