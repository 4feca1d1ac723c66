package sampler

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoroutineRuntimeRegisterAndRecordFrame(t *testing.T) {
	rt := NewGoroutineRuntime()
	done := make(chan struct{})
	var handle *ThreadHandle

	go func() {
		defer close(done)
		handle = rt.Register()
		defer rt.Unregister(handle)
		rt.RecordFrame(handle)

		current := rt.CurrentThreadIfManagedAndSafe()
		require.NotNil(t, current)
		assert.Equal(t, handle.ID, current.ID)

		top, ok := rt.TopFrameFromSignalContext(handle)
		require.True(t, ok)
		assert.NotZero(t, top.PC)
	}()
	<-done
}

func TestGoroutineRuntimeCurrentThreadNilForUnregistered(t *testing.T) {
	rt := NewGoroutineRuntime()
	assert.Nil(t, rt.CurrentThreadIfManagedAndSafe())
}

func TestGoroutineRuntimeUnregisterRemovesFromThreads(t *testing.T) {
	rt := NewGoroutineRuntime()
	done := make(chan struct{})
	go func() {
		defer close(done)
		h := rt.Register()
		assert.Len(t, rt.Threads().Threads(), 1)
		rt.Unregister(h)
		assert.Len(t, rt.Threads().Threads(), 0)
	}()
	<-done
}

func TestGoroutineRuntimeSetStateAndDeopt(t *testing.T) {
	rt := NewGoroutineRuntime()
	done := make(chan struct{})
	go func() {
		defer close(done)
		h := rt.Register()
		defer rt.Unregister(h)

		assert.Equal(t, ThreadStateManaged, rt.ThreadState(h))
		rt.SetState(h, ThreadStateNative)
		assert.Equal(t, ThreadStateNative, rt.ThreadState(h))

		assert.False(t, rt.IsDeoptHandlerActive(h))
		rt.SetDeoptActive(h, true)
		assert.True(t, rt.IsDeoptHandlerActive(h))
	}()
	<-done
}

func TestGoroutineRuntimeExcludedThreadHiddenFromListing(t *testing.T) {
	rt := NewGoroutineRuntime()
	done := make(chan struct{})
	go func() {
		defer close(done)
		h := rt.Register()
		defer rt.Unregister(h)
		rt.SetExcluded(h, true)
		assert.Len(t, rt.Threads().Threads(), 0)
		assert.Nil(t, rt.CurrentThreadIfManagedAndSafe())
	}()
	<-done
}

func TestGoroutineRuntimeStopTheWorldFlag(t *testing.T) {
	rt := NewGoroutineRuntime()
	assert.False(t, rt.IsStopTheWorldActive())
	rt.SetStopTheWorldActive(true)
	assert.True(t, rt.IsStopTheWorldActive())
}

func TestGoroutineRuntimeThreadIDForEventErrorsAfterUnregister(t *testing.T) {
	rt := NewGoroutineRuntime()
	done := make(chan struct{})
	go func() {
		defer close(done)
		h := rt.Register()
		rt.Unregister(h)
		_, err := rt.ThreadIDForEvent(h)
		assert.Error(t, err)
	}()
	<-done
}

func TestGoroutineRuntimeConcurrentRegistration(t *testing.T) {
	rt := NewGoroutineRuntime()
	const n = 16
	var wg sync.WaitGroup
	handles := make([]*ThreadHandle, n)
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			handles[i] = rt.Register()
			rt.RecordFrame(handles[i])
		}()
	}
	wg.Wait()
	assert.Len(t, rt.Threads().Threads(), n)
}
