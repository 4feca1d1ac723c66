package sampler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracePoolSlotsShareOneBackingArray(t *testing.T) {
	p := NewTracePool(4, 8)
	require.Equal(t, 4, p.Cap())
	for i := 0; i < 4; i++ {
		slot := p.Slot(i)
		assert.Equal(t, i, slot.Index)
		assert.Equal(t, 8, cap(slot.Frames))
		assert.Same(t, &p.frames[i*8], &slot.Frames[:1][0])
		assert.Equal(t, NoSample, slot.Kind)
		assert.Equal(t, ErrNoTrace, slot.Err)
	}
}

func TestTraceSlotResetClearsCaptureState(t *testing.T) {
	p := NewTracePool(1, 4)
	slot := p.Slot(0)
	slot.FrameCount = 3
	slot.Kind = ManagedSample
	slot.Err = ErrOK
	slot.Thread = &ThreadHandle{ID: 7}

	now := time.Now()
	slot.reset(now)

	assert.Equal(t, 0, slot.FrameCount)
	assert.Equal(t, NoSample, slot.Kind)
	assert.Equal(t, ErrNoTrace, slot.Err)
	assert.Nil(t, slot.Thread)
	assert.Equal(t, now, slot.Start)
	assert.Equal(t, now, slot.End)
}
