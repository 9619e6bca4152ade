package backpressure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticProvider(level float64) Provider {
	return &stubProvider{level: level}
}

type stubProvider struct {
	level float64
}

func (s *stubProvider) BackpressureLevel() float64 { return s.level }

func TestQueueProvider(t *testing.T) {
	var depth int64
	p, err := NewQueueProvider(func() int64 { return depth }, 100)
	require.NoError(t, err)

	assert.Zero(t, p.BackpressureLevel())

	depth = 50
	assert.InDelta(t, 0.5, p.BackpressureLevel(), 0.001)

	depth = 100
	assert.InDelta(t, 1, p.BackpressureLevel(), 0.001)

	depth = 250
	assert.InDelta(t, 1, p.BackpressureLevel(), 0.001, "overflow clamps to 1")

	depth = -1
	assert.Zero(t, p.BackpressureLevel(), "negative readings clamp to 0")
}

func TestQueueProvider_Validation(t *testing.T) {
	_, err := NewQueueProvider(nil, 100)
	assert.Error(t, err)
	_, err = NewQueueProvider(func() int64 { return 0 }, 0)
	assert.Error(t, err)
}

func TestComposite_MaxWins(t *testing.T) {
	c := NewComposite(staticProvider(0.2), staticProvider(0.8), staticProvider(0.5))
	assert.InDelta(t, 0.8, c.BackpressureLevel(), 0.001)
}

func TestComposite_Empty(t *testing.T) {
	assert.Zero(t, NewComposite().BackpressureLevel())
}
