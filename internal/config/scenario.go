package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/happysantoo/vajrapulse/internal/pattern"
	"github.com/happysantoo/vajrapulse/internal/pattern/adaptive"
)

// Duration accepts Go duration strings ("90s", "5m") in scenario YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Scenario is the YAML description of one load test. Exactly one pattern
// section must be set, matching Kind. Unknown keys are rejected so a
// typoed field fails the run instead of silently using a default.
type Scenario struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`

	Static   *StaticSpec   `yaml:"static,omitempty"`
	Ramp     *RampSpec     `yaml:"ramp,omitempty"`
	Step     *StepSpec     `yaml:"step,omitempty"`
	Spike    *SpikeSpec    `yaml:"spike,omitempty"`
	Sine     *SineSpec     `yaml:"sine,omitempty"`
	Adaptive *AdaptiveSpec `yaml:"adaptive,omitempty"`

	Warmup   Duration `yaml:"warmup,omitempty"`
	Cooldown Duration `yaml:"cooldown,omitempty"`
}

type StaticSpec struct {
	TPS      float64  `yaml:"tps"`
	Duration Duration `yaml:"duration"`
}

type RampSpec struct {
	MaxTPS   float64  `yaml:"max_tps"`
	Duration Duration `yaml:"duration"`
	Sustain  Duration `yaml:"sustain,omitempty"`
}

type StepSpec struct {
	Steps []StepEntry `yaml:"steps"`
}

type StepEntry struct {
	TPS      float64  `yaml:"tps"`
	Duration Duration `yaml:"duration"`
}

type SpikeSpec struct {
	BaseTPS       float64  `yaml:"base_tps"`
	SpikeTPS      float64  `yaml:"spike_tps"`
	Duration      Duration `yaml:"duration"`
	SpikeInterval Duration `yaml:"spike_interval"`
	SpikeDuration Duration `yaml:"spike_duration"`
}

type SineSpec struct {
	MeanTPS   float64  `yaml:"mean_tps"`
	Amplitude float64  `yaml:"amplitude"`
	Duration  Duration `yaml:"duration"`
	Period    Duration `yaml:"period"`
}

type AdaptiveSpec struct {
	InitialTPS              float64  `yaml:"initial_tps"`
	MaxTPS                  float64  `yaml:"max_tps"`
	MinTPS                  float64  `yaml:"min_tps"`
	RampIncrement           float64  `yaml:"ramp_increment"`
	RampDecrement           float64  `yaml:"ramp_decrement"`
	RampInterval            Duration `yaml:"ramp_interval"`
	SustainDuration         Duration `yaml:"sustain_duration"`
	StableIntervalsRequired int      `yaml:"stable_intervals_required"`
	InitialRampDuration     Duration `yaml:"initial_ramp_duration"`
}

// ScenarioFromFile loads and validates a scenario from path.
func ScenarioFromFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}
	sc, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("scenario file %s: %w", path, err)
	}
	return sc, nil
}

// ParseScenario decodes scenario YAML with strict field checking.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if sc.Kind == "" {
		return nil, fmt.Errorf("scenario: kind is required")
	}
	return &sc, nil
}

// AdaptiveConfig converts the adaptive section into the pattern config,
// starting from defaults so omitted fields keep their documented values.
func (s *AdaptiveSpec) AdaptiveConfig() adaptive.Config {
	cfg := adaptive.DefaultConfig()
	if s.InitialTPS > 0 {
		cfg.InitialTPS = s.InitialTPS
	}
	if s.MaxTPS > 0 {
		cfg.MaxTPS = s.MaxTPS
	}
	if s.MinTPS > 0 {
		cfg.MinTPS = s.MinTPS
	}
	if s.RampIncrement > 0 {
		cfg.RampIncrement = s.RampIncrement
	}
	if s.RampDecrement > 0 {
		cfg.RampDecrement = s.RampDecrement
	}
	if s.RampInterval > 0 {
		cfg.RampInterval = s.RampInterval.Std()
	}
	if s.SustainDuration > 0 {
		cfg.SustainDuration = s.SustainDuration.Std()
	}
	if s.StableIntervalsRequired > 0 {
		cfg.StableIntervalsRequired = s.StableIntervalsRequired
	}
	if s.InitialRampDuration > 0 {
		cfg.InitialRampDuration = s.InitialRampDuration.Std()
	}
	return cfg
}

// BuildPattern constructs the load pattern the scenario describes.
// Adaptive scenarios are not built here: they need provider and listener
// wiring, so the caller handles kind "adaptive" itself.
func (s *Scenario) BuildPattern() (pattern.LoadPattern, error) {
	var (
		base pattern.LoadPattern
		err  error
	)

	switch s.Kind {
	case "static":
		if s.Static == nil {
			return nil, fmt.Errorf("scenario kind static: missing static section")
		}
		base, err = pattern.NewStatic(s.Static.TPS, s.Static.Duration.Std())
	case "ramp":
		if s.Ramp == nil {
			return nil, fmt.Errorf("scenario kind ramp: missing ramp section")
		}
		if s.Ramp.Sustain > 0 {
			base, err = pattern.NewRampUpToMax(s.Ramp.MaxTPS, s.Ramp.Duration.Std(), s.Ramp.Sustain.Std())
		} else {
			base, err = pattern.NewRampUp(s.Ramp.MaxTPS, s.Ramp.Duration.Std())
		}
	case "step":
		if s.Step == nil {
			return nil, fmt.Errorf("scenario kind step: missing step section")
		}
		steps := make([]pattern.Step, 0, len(s.Step.Steps))
		for _, st := range s.Step.Steps {
			steps = append(steps, pattern.Step{Rate: st.TPS, Duration: st.Duration.Std()})
		}
		base, err = pattern.NewStepLoad(steps)
	case "spike":
		if s.Spike == nil {
			return nil, fmt.Errorf("scenario kind spike: missing spike section")
		}
		base, err = pattern.NewSpike(s.Spike.BaseTPS, s.Spike.SpikeTPS,
			s.Spike.Duration.Std(), s.Spike.SpikeInterval.Std(), s.Spike.SpikeDuration.Std())
	case "sine":
		if s.Sine == nil {
			return nil, fmt.Errorf("scenario kind sine: missing sine section")
		}
		base, err = pattern.NewSine(s.Sine.MeanTPS, s.Sine.Amplitude,
			s.Sine.Duration.Std(), s.Sine.Period.Std())
	case "adaptive":
		return nil, fmt.Errorf("adaptive scenarios need provider wiring, use AdaptiveConfig")
	default:
		return nil, fmt.Errorf("unknown scenario kind %q", s.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("build %s pattern: %w", s.Kind, err)
	}

	if s.Warmup > 0 || s.Cooldown > 0 {
		base, err = pattern.NewWarmupCooldown(base, s.Warmup.Std(), s.Cooldown.Std())
		if err != nil {
			return nil, fmt.Errorf("wrap warmup/cooldown: %w", err)
		}
	}
	return base, nil
}
