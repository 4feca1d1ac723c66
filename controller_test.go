package sampler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// controllerTestRuntime wraps mockRuntime with a settable thread lister,
// for exercising Controller's enroll/disenroll traversal without any real
// per-thread timer (every handle here keeps OSTID == 0, which both
// enrollLocked and OnThreadCreate treat as "OS identity not yet
// assigned" and skip entirely).
type controllerTestRuntime struct {
	mockRuntime
	threads []*ThreadHandle
}

func (r *controllerTestRuntime) Threads() ThreadLister {
	return staticThreadLister(r.threads)
}

func newControllerTestRuntime(n int) *controllerTestRuntime {
	threads := make([]*ThreadHandle, n)
	for i := range threads {
		threads[i] = &ThreadHandle{ID: uint64(i + 1)}
	}
	return &controllerTestRuntime{threads: threads}
}

func TestControllerSetPeriodEnrollsAndDisenrolls(t *testing.T) {
	rt := newControllerTestRuntime(3)
	recorder := &captureRecorder{sampleEnabled: true, dropEnabled: true}
	c := NewController(rt, &noopResolver{}, recorder, WithLogger(NoOpLogger{}))
	defer c.Destroy()

	require.NoError(t, c.SetPeriod(5))
	assert.False(t, c.sampler.state.Disenrolled())
	assert.Equal(t, int64(5), c.sampler.state.PeriodMillis())

	depths := c.QueueDepths()
	require.Greater(t, depths.Capacity, 0)
	assert.Equal(t, depths.Capacity, depths.Free)
	assert.Equal(t, 0, depths.Filled)

	require.NoError(t, c.SetPeriod(0))
	assert.True(t, c.sampler.state.Disenrolled())
}

func TestControllerSetPeriodZeroNoopBeforeFirstEnrollment(t *testing.T) {
	rt := newControllerTestRuntime(1)
	c := NewController(rt, &noopResolver{}, &captureRecorder{sampleEnabled: true, dropEnabled: true})
	defer c.Destroy()

	require.NoError(t, c.SetPeriod(0))
	assert.Nil(t, c.sampler)
}

func TestControllerSetPeriodChangeRearmsWithoutReenroll(t *testing.T) {
	rt := newControllerTestRuntime(2)
	c := NewController(rt, &noopResolver{}, &captureRecorder{sampleEnabled: true, dropEnabled: true})
	defer c.Destroy()

	require.NoError(t, c.SetPeriod(10))
	require.NoError(t, c.SetPeriod(20))
	assert.Equal(t, int64(20), c.sampler.state.PeriodMillis())
	assert.False(t, c.sampler.state.Disenrolled())
}

func TestControllerDisenrollResetsQueuesToFullFree(t *testing.T) {
	rt := newControllerTestRuntime(1)
	c := NewController(rt, &noopResolver{}, &captureRecorder{sampleEnabled: true, dropEnabled: true})
	defer c.Destroy()

	require.NoError(t, c.SetPeriod(5))

	// Simulate some in-flight activity: drain a couple of free slots into
	// the filled queue, as the signal handler would.
	for i := 0; i < 2; i++ {
		slot, ok := c.sampler.free.dequeue()
		require.True(t, ok)
		require.True(t, c.sampler.filled.enqueue(slot))
	}
	require.NoError(t, c.SetPeriod(0))

	depths := c.QueueDepths()
	assert.Equal(t, depths.Capacity, depths.Free)
	assert.Equal(t, 0, depths.Filled)
}

func TestControllerOnThreadCreateNoopBeforeEnrollment(t *testing.T) {
	rt := newControllerTestRuntime(0)
	c := NewController(rt, &noopResolver{}, &captureRecorder{sampleEnabled: true, dropEnabled: true})
	defer c.Destroy()

	assert.NoError(t, c.OnThreadCreate(&ThreadHandle{ID: 1}))
}

func TestControllerOnThreadTerminateSafeWithoutSampler(t *testing.T) {
	rt := newControllerTestRuntime(0)
	c := NewController(rt, &noopResolver{}, &captureRecorder{sampleEnabled: true, dropEnabled: true})
	assert.NotPanics(t, func() { c.OnThreadTerminate(&ThreadHandle{ID: 1}) })
}

func TestComputeQueueCapacityUpperBoundWinsOverLowerBound(t *testing.T) {
	// A tiny maxChunkSize forces the upper bound (here, 1024/2/8/1024 < 1,
	// clamped to 1) below the 80-slot lower bound. The upper bound exists
	// to keep one consumer iteration inside one output buffer, so it must
	// win outright here, not be silently overridden by the lower bound
	// (regression: a naive switch-case clamp would return 80, exceeding
	// the caller's own maxChunkSize by 80x).
	capacity := computeQueueCapacity(5, 1024, 1024)
	assert.Equal(t, 1, capacity)
}

func TestComputeQueueCapacityDefaultsKeepUpperBoundAboveLowerBound(t *testing.T) {
	// The zero-config defaults must themselves satisfy upperBound >=
	// lowerBound(80), or every machine with a modest NumCPU would silently
	// get a capacity exceeding defaultMaxChunkSize's own budget.
	upperBound := defaultMaxChunkSize / 2 / wordSize / defaultMaxFrames
	assert.GreaterOrEqual(t, upperBound, 80)
}

func TestComputeQueueCapacityHonorsPeriodDivisor(t *testing.T) {
	shortPeriod := computeQueueCapacity(1, 1<<30, 1)
	longPeriod := computeQueueCapacity(100, 1<<30, 1)
	assert.GreaterOrEqual(t, shortPeriod, longPeriod)
}
