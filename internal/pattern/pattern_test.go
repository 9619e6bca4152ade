package pattern

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatic(t *testing.T) {
	p, err := NewStatic(100, 30*time.Second)
	require.NoError(t, err)

	assert.InDelta(t, 100, p.TPS(0), 0.001)
	assert.InDelta(t, 100, p.TPS(15*time.Second), 0.001)
	assert.InDelta(t, 100, p.TPS(time.Hour), 0.001, "rate holds past the nominal duration")
	assert.Zero(t, p.TPS(-time.Second))
	assert.Equal(t, 30*time.Second, p.Duration())
}

func TestStatic_Validation(t *testing.T) {
	_, err := NewStatic(0, time.Second)
	assert.Error(t, err)
	_, err = NewStatic(-5, time.Second)
	assert.Error(t, err)
	_, err = NewStatic(100, 0)
	assert.Error(t, err)
}

func TestRampUp(t *testing.T) {
	p, err := NewRampUp(1000, 10*time.Second)
	require.NoError(t, err)

	assert.Zero(t, p.TPS(0))
	assert.InDelta(t, 500, p.TPS(5*time.Second), 0.001)
	assert.InDelta(t, 900, p.TPS(9*time.Second), 0.001)
	assert.InDelta(t, 1000, p.TPS(10*time.Second), 0.001)
	assert.InDelta(t, 1000, p.TPS(time.Minute), 0.001)
	assert.Zero(t, p.TPS(-time.Second))
}

func TestRampUpToMax(t *testing.T) {
	p, err := NewRampUpToMax(200, 10*time.Second, 50*time.Second)
	require.NoError(t, err)

	assert.InDelta(t, 100, p.TPS(5*time.Second), 0.001)
	assert.InDelta(t, 200, p.TPS(30*time.Second), 0.001)
	assert.Equal(t, time.Minute, p.Duration())
}

func TestStepLoad(t *testing.T) {
	p, err := NewStepLoad([]Step{
		{Rate: 100, Duration: 10 * time.Second},
		{Rate: 200, Duration: 10 * time.Second},
		{Rate: 50, Duration: 5 * time.Second},
	})
	require.NoError(t, err)

	assert.InDelta(t, 100, p.TPS(0), 0.001)
	assert.InDelta(t, 100, p.TPS(9*time.Second), 0.001)
	assert.InDelta(t, 200, p.TPS(10*time.Second), 0.001)
	assert.InDelta(t, 50, p.TPS(21*time.Second), 0.001)
	assert.Zero(t, p.TPS(25*time.Second), "past the last step the rate drops to zero")
	assert.Equal(t, 25*time.Second, p.Duration())
}

func TestStepLoad_Validation(t *testing.T) {
	_, err := NewStepLoad(nil)
	assert.Error(t, err)
	_, err = NewStepLoad([]Step{{Rate: -1, Duration: time.Second}})
	assert.Error(t, err)
	_, err = NewStepLoad([]Step{{Rate: 100, Duration: 0}})
	assert.Error(t, err)
}

func TestStepLoad_CopiesInput(t *testing.T) {
	steps := []Step{{Rate: 100, Duration: 10 * time.Second}}
	p, err := NewStepLoad(steps)
	require.NoError(t, err)

	steps[0].Rate = 999
	assert.InDelta(t, 100, p.TPS(0), 0.001)
}

func TestSpike(t *testing.T) {
	p, err := NewSpike(100, 1000, time.Minute, 10*time.Second, 2*time.Second)
	require.NoError(t, err)

	assert.InDelta(t, 1000, p.TPS(0), 0.001)
	assert.InDelta(t, 1000, p.TPS(1*time.Second), 0.001)
	assert.InDelta(t, 100, p.TPS(2*time.Second), 0.001)
	assert.InDelta(t, 100, p.TPS(9*time.Second), 0.001)
	assert.InDelta(t, 1000, p.TPS(10*time.Second), 0.001, "spike recurs every interval")
	assert.InDelta(t, 100, p.TPS(15*time.Second), 0.001)
}

func TestSpike_DurationMustBeShorterThanInterval(t *testing.T) {
	_, err := NewSpike(100, 1000, time.Minute, 10*time.Second, 10*time.Second)
	assert.Error(t, err)
}

func TestSine(t *testing.T) {
	p, err := NewSine(100, 50, time.Minute, 20*time.Second)
	require.NoError(t, err)

	assert.InDelta(t, 100, p.TPS(0), 0.001)
	assert.InDelta(t, 150, p.TPS(5*time.Second), 0.001, "peak at a quarter period")
	assert.InDelta(t, 100, p.TPS(10*time.Second), 0.001)
	assert.InDelta(t, 50, p.TPS(15*time.Second), 0.001, "trough at three quarters")
	assert.InDelta(t, 100, p.TPS(20*time.Second), 0.001, "periodic")
}

func TestSine_ClampsAtZero(t *testing.T) {
	p, err := NewSine(10, 50, time.Minute, 20*time.Second)
	require.NoError(t, err)

	assert.Zero(t, p.TPS(15*time.Second), "trough would be negative, clamp to zero")
}

func TestWarmupCooldown(t *testing.T) {
	base, err := NewStatic(100, 30*time.Second)
	require.NoError(t, err)
	p, err := NewWarmupCooldown(base, 10*time.Second, 10*time.Second)
	require.NoError(t, err)

	assert.Zero(t, p.TPS(0))
	assert.InDelta(t, 50, p.TPS(5*time.Second), 0.001, "warm-up ramps to the base initial rate")
	assert.InDelta(t, 100, p.TPS(10*time.Second), 0.001)
	assert.InDelta(t, 100, p.TPS(25*time.Second), 0.001)
	assert.InDelta(t, 50, p.TPS(45*time.Second), 0.001, "cool-down ramps the final rate to zero")
	assert.Zero(t, p.TPS(50*time.Second))
	assert.Equal(t, 50*time.Second, p.Duration())
}

func TestWarmupCooldown_Phases(t *testing.T) {
	base, err := NewStatic(100, 30*time.Second)
	require.NoError(t, err)
	p, err := NewWarmupCooldown(base, 10*time.Second, 10*time.Second)
	require.NoError(t, err)

	assert.Equal(t, PhaseWarmup, p.Phase(5*time.Second))
	assert.Equal(t, PhaseSteadyState, p.Phase(10*time.Second))
	assert.Equal(t, PhaseCooldown, p.Phase(42*time.Second))
	assert.Equal(t, PhaseComplete, p.Phase(time.Minute))

	assert.False(t, p.ShouldRecordMetrics(5*time.Second))
	assert.True(t, p.ShouldRecordMetrics(20*time.Second))
	assert.False(t, p.ShouldRecordMetrics(45*time.Second))
}

func TestWarmupCooldown_WarmupOnly(t *testing.T) {
	base, err := NewStatic(100, 30*time.Second)
	require.NoError(t, err)
	p, err := WithWarmup(base, 10*time.Second)
	require.NoError(t, err)

	assert.Equal(t, 40*time.Second, p.Duration())
	assert.Equal(t, PhaseComplete, p.Phase(40*time.Second))
}

func TestWarmupCooldown_NilBaseRejected(t *testing.T) {
	_, err := NewWarmupCooldown(nil, time.Second, time.Second)
	assert.Error(t, err)
}
