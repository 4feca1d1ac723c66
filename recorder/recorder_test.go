package recorder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sampler "github.com/joeycumines/threadsampler"
)

func TestMemoryRecorderRecordsSamplesAndDrops(t *testing.T) {
	r := NewMemoryRecorder()
	require.True(t, r.IsExecutionSampleEnabled())
	require.True(t, r.IsDropEventEnabled())

	now := time.Now()
	r.EmitExecutionSample(1, 2, now, now.Add(time.Microsecond))
	r.EmitDropEvent(3, now)

	samples := r.Samples()
	require.Len(t, samples, 1)
	assert.Equal(t, uint64(1), samples[0].ThreadID)
	assert.Equal(t, uint64(2), samples[0].StacktraceID)

	drops := r.Drops()
	require.Len(t, drops, 1)
	assert.Equal(t, uint64(3), drops[0].Dropped)
	assert.Equal(t, uint64(3), r.TotalDropped())
}

func TestMemoryRecorderEnableToggles(t *testing.T) {
	r := NewMemoryRecorder()
	r.SetExecutionSampleEnabled(false)
	r.SetDropEventEnabled(false)
	assert.False(t, r.IsExecutionSampleEnabled())
	assert.False(t, r.IsDropEventEnabled())
}

func TestMemoryRecorderSnapshotIsCopy(t *testing.T) {
	r := NewMemoryRecorder()
	r.EmitExecutionSample(1, 1, time.Now(), time.Now())
	samples := r.Samples()
	samples[0].ThreadID = 99
	assert.Equal(t, uint64(1), r.Samples()[0].ThreadID)
}

func TestSimpleResolverDedupesIdenticalStacks(t *testing.T) {
	res := NewSimpleResolver()
	buf := res.GetOrRenewBuffer(64)

	frames := []sampler.RawFrame{{Method: 1, PC: 100}, {Method: 2, PC: 200}}
	id1 := res.Store(frames, buf)
	id2 := res.Store(append([]sampler.RawFrame(nil), frames...), buf)
	require.Equal(t, id1, id2)
	assert.Equal(t, 1, res.Count())
}

func TestSimpleResolverAssignsDistinctIDs(t *testing.T) {
	res := NewSimpleResolver()
	buf := res.GetOrRenewBuffer(64)

	id1 := res.Store([]sampler.RawFrame{{Method: 1, PC: 1}}, buf)
	id2 := res.Store([]sampler.RawFrame{{Method: 2, PC: 2}}, buf)
	assert.NotEqual(t, id1, id2)
	assert.Equal(t, 2, res.Count())
}

func TestSimpleResolverEmptyFramesReturnZero(t *testing.T) {
	res := NewSimpleResolver()
	buf := res.GetOrRenewBuffer(64)
	id := res.Store(nil, buf)
	assert.Equal(t, uint64(0), id)
	assert.Equal(t, 0, res.Count())
}

func TestSimpleResolverBufferRenewal(t *testing.T) {
	res := NewSimpleResolver()
	buf := res.GetOrRenewBuffer(64)
	require.GreaterOrEqual(t, buf.Remaining(), 64)

	frames := make([]sampler.RawFrame, 10)
	for i := range frames {
		frames[i] = sampler.RawFrame{Method: sampler.MethodHandle(i + 1), PC: uintptr(i + 1)}
	}
	before := buf.Remaining()
	res.Store(frames, buf)
	assert.Less(t, buf.Remaining(), before)
}
