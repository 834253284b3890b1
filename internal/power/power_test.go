package power

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopSamplerIsInert(t *testing.T) {
	var n Noop
	require.NoError(t, n.Start())
	require.NoError(t, n.Stop())
	assert.Empty(t, n.Samples())
}

func TestEnergyAccumulatorSingleSample(t *testing.T) {
	a := NewEnergyAccumulator()
	mean := a.Apply([]Sample{{At: time.Now(), Watts: 10}})
	assert.Equal(t, 10.0, mean)
	assert.Equal(t, 10.0, a.MeanWatts())
}

func TestEnergyAccumulatorIntegratesOverTime(t *testing.T) {
	a := NewEnergyAccumulator()
	t0 := time.Now()
	samples := []Sample{
		{At: t0, Watts: 10},
		{At: t0.Add(time.Second), Watts: 20},
	}
	mean := a.Apply(samples)
	assert.Equal(t, 15.0, mean)
	assert.Equal(t, 15.0, a.EnergyCumJ())
}

func TestEnergyAccumulatorEmpty(t *testing.T) {
	a := NewEnergyAccumulator()
	assert.Equal(t, 0.0, a.Apply(nil))
	assert.Equal(t, 0.0, a.MeanWatts())
}
