package adaptive

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func goodSnapshot() MetricsSnapshot {
	return MetricsSnapshot{}
}

func badSnapshot() MetricsSnapshot {
	return MetricsSnapshot{FailureRate: 0.05, RecentFailureRate: 0.05}
}

func decideCfg() Config {
	cfg := DefaultConfig()
	cfg.InitialTPS = 100
	cfg.MaxTPS = 300
	cfg.MinTPS = 10
	cfg.RampIncrement = 50
	cfg.RampDecrement = 100
	cfg.StableIntervalsRequired = 3
	return cfg
}

func testPolicy(t *testing.T) DecisionPolicy {
	t.Helper()
	p, err := DefaultPolicy(0.01)
	require.NoError(t, err)
	return p
}

func TestDecide_RampUpIncrement(t *testing.T) {
	cfg := decideCfg()
	cfg.StableIntervalsRequired = 100
	st := State{Phase: PhaseRampUp, CurrentTPS: 100}

	d := Decide(st, goodSnapshot(), cfg, testPolicy(t), 0)
	assert.Equal(t, PhaseRampUp, d.Phase)
	assert.InDelta(t, 150, d.TPS, 0.001)
}

func TestDecide_RampUpCapsAtMax(t *testing.T) {
	cfg := decideCfg()
	cfg.StableIntervalsRequired = 100
	st := State{Phase: PhaseRampUp, CurrentTPS: 280}

	d := Decide(st, goodSnapshot(), cfg, testPolicy(t), 0)
	assert.Equal(t, PhaseSustain, d.Phase)
	assert.InDelta(t, 300, d.TPS, 0.001)
}

func TestDecide_RampUpHoldsOnModerateBackpressure(t *testing.T) {
	cfg := decideCfg()
	st := State{Phase: PhaseRampUp, CurrentTPS: 150}
	// Between the low and high watermarks: neither ramp direction fires.
	m := MetricsSnapshot{Backpressure: 0.5}

	d := Decide(st, m, cfg, testPolicy(t), 0)
	assert.Equal(t, PhaseRampUp, d.Phase)
	assert.InDelta(t, 150, d.TPS, 0.001)
}

func TestDecide_RampDownClampsAtMin(t *testing.T) {
	cfg := decideCfg()
	st := State{Phase: PhaseRampUp, CurrentTPS: 50}

	d := Decide(st, badSnapshot(), cfg, testPolicy(t), 0)
	assert.Equal(t, PhaseRampDown, d.Phase)
	assert.InDelta(t, 10, d.TPS, 0.001)
}

func TestDecide_RecoveryWaitsAtFloor(t *testing.T) {
	cfg := decideCfg()
	st := State{Phase: PhaseRampDown, CurrentTPS: 10, LastKnownGoodTPS: 200, InRecovery: true}
	m := MetricsSnapshot{RecentFailureRate: 0.05, Backpressure: 0.6}

	d := Decide(st, m, cfg, testPolicy(t), 0)
	assert.Equal(t, PhaseRampDown, d.Phase)
	assert.InDelta(t, 10, d.TPS, 0.001)
}

func TestDecide_RecoveryResumesAtHalfLastKnownGood(t *testing.T) {
	cfg := decideCfg()
	st := State{Phase: PhaseRampDown, CurrentTPS: 10, LastKnownGoodTPS: 200, InRecovery: true}
	m := MetricsSnapshot{Backpressure: 0.1}

	d := Decide(st, m, cfg, testPolicy(t), 0)
	assert.Equal(t, PhaseRampUp, d.Phase)
	assert.InDelta(t, 100, d.TPS, 0.001)
}

func TestDecide_RecoveryNeverBelowFloor(t *testing.T) {
	cfg := decideCfg()
	st := State{Phase: PhaseRampDown, CurrentTPS: 10, LastKnownGoodTPS: 15, InRecovery: true}
	m := MetricsSnapshot{Backpressure: 0.1}

	d := Decide(st, m, cfg, testPolicy(t), 0)
	assert.InDelta(t, 10, d.TPS, 0.001, "half of 15 is below the floor")
}

func TestDecide_RampDownStabilizesWhenConditionsImprove(t *testing.T) {
	cfg := decideCfg()
	st := State{Phase: PhaseRampDown, CurrentTPS: 100, StableIntervals: 2}

	d := Decide(st, goodSnapshot(), cfg, testPolicy(t), 0)
	assert.Equal(t, PhaseSustain, d.Phase)
	assert.InDelta(t, 100, d.TPS, 0.001)
}

func TestDecide_RampDownHoldsWhileCheckingStability(t *testing.T) {
	cfg := decideCfg()
	st := State{Phase: PhaseRampDown, CurrentTPS: 100, StableIntervals: 0}

	d := Decide(st, goodSnapshot(), cfg, testPolicy(t), 0)
	assert.Equal(t, PhaseRampDown, d.Phase)
	assert.InDelta(t, 100, d.TPS, 0.001)
}

func TestDecide_SustainRampsDownOnErrors(t *testing.T) {
	cfg := decideCfg()
	st := State{Phase: PhaseSustain, CurrentTPS: 200}

	d := Decide(st, badSnapshot(), cfg, testPolicy(t), 0)
	assert.Equal(t, PhaseRampDown, d.Phase)
	assert.InDelta(t, 100, d.TPS, 0.001)
}

func TestDecide_SustainProbesUpAfterSustainDuration(t *testing.T) {
	cfg := decideCfg()
	cfg.SustainDuration = time.Minute
	st := State{Phase: PhaseSustain, CurrentTPS: 200, PhaseStart: 0}

	d := Decide(st, goodSnapshot(), cfg, testPolicy(t), 30*time.Second)
	assert.Equal(t, PhaseSustain, d.Phase, "sustain window not over yet")

	d = Decide(st, goodSnapshot(), cfg, testPolicy(t), time.Minute)
	assert.Equal(t, PhaseRampUp, d.Phase)
	assert.InDelta(t, 250, d.TPS, 0.001)
}

func TestDecide_SustainAtMaxStaysPut(t *testing.T) {
	cfg := decideCfg()
	cfg.SustainDuration = time.Minute
	st := State{Phase: PhaseSustain, CurrentTPS: 300, PhaseStart: 0}

	d := Decide(st, goodSnapshot(), cfg, testPolicy(t), 2*time.Minute)
	assert.Equal(t, PhaseSustain, d.Phase)
	assert.InDelta(t, 300, d.TPS, 0.001)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"zero initial tps", func(c *Config) { c.InitialTPS = 0 }, true},
		{"negative max tps", func(c *Config) { c.MaxTPS = -1 }, true},
		{"unbounded max tps", func(c *Config) { c.MaxTPS = math.Inf(1) }, false},
		{"negative min tps", func(c *Config) { c.MinTPS = -1 }, true},
		{"min at max", func(c *Config) { c.MinTPS = c.MaxTPS }, true},
		{"zero increment", func(c *Config) { c.RampIncrement = 0 }, true},
		{"zero decrement", func(c *Config) { c.RampDecrement = 0 }, true},
		{"zero interval", func(c *Config) { c.RampInterval = 0 }, true},
		{"zero sustain", func(c *Config) { c.SustainDuration = 0 }, true},
		{"zero stable intervals", func(c *Config) { c.StableIntervalsRequired = 0 }, true},
		{"negative initial ramp", func(c *Config) { c.InitialRampDuration = -time.Second }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
