package backpressure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThresholdHandler_Bands(t *testing.T) {
	h, err := NewThresholdHandler(0.7, 0.9)
	require.NoError(t, err)

	tests := []struct {
		level float64
		want  Verdict
	}{
		{0, Allow},
		{0.69, Allow},
		{0.7, Drop},
		{0.89, Drop},
		{0.9, Reject},
		{1, Reject},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, h.Handle(tt.level, Context{}), "level %v", tt.level)
	}
}

func TestThresholdHandler_Validation(t *testing.T) {
	_, err := NewThresholdHandler(-0.1, 0.9)
	assert.Error(t, err)
	_, err = NewThresholdHandler(0.7, 1.1)
	assert.Error(t, err)
	_, err = NewThresholdHandler(0.9, 0.7)
	assert.Error(t, err)
	_, err = NewThresholdHandler(0.7, 0.7)
	assert.Error(t, err)
}

func TestFixedHandlers(t *testing.T) {
	assert.Equal(t, Allow, AllowAll.Handle(1, Context{}))
	assert.Equal(t, Drop, DropAll.Handle(0, Context{}))
	assert.Equal(t, Reject, RejectAll.Handle(0, Context{}))
}

func TestHandlerFunc_SeesContext(t *testing.T) {
	var got Context
	h := HandlerFunc(func(level float64, ctx Context) Verdict {
		got = ctx
		return Drop
	})

	v := h.Handle(0.5, Context{QueueDepth: 42, MaxQueueDepth: 100, ErrorRate: 0.02})
	assert.Equal(t, Drop, v)
	assert.Equal(t, int64(42), got.QueueDepth)
	assert.InDelta(t, 0.02, got.ErrorRate, 0.0001)
}

func TestVerdictString(t *testing.T) {
	assert.Equal(t, "allow", Allow.String())
	assert.Equal(t, "drop", Drop.String())
	assert.Equal(t, "reject", Reject.String())
	assert.Equal(t, "unknown", Verdict(99).String())
}
