package sampler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSamplerStateStartsDisenrolled(t *testing.T) {
	s := newSamplerState()
	assert.True(t, s.Disenrolled())
	assert.Equal(t, int64(0), s.PeriodMillis())
	assert.False(t, s.StopSignals())
	assert.Equal(t, int64(0), s.ActiveHandlers())
}

func TestSamplerStateActiveHandlersRoundTrip(t *testing.T) {
	s := newSamplerState()
	s.IncActiveHandlers()
	s.IncActiveHandlers()
	assert.Equal(t, int64(2), s.ActiveHandlers())
	s.DecActiveHandlers()
	assert.Equal(t, int64(1), s.ActiveHandlers())
}

func TestSamplerStateDropAccounting(t *testing.T) {
	s := newSamplerState()
	s.RecordDrop()
	s.RecordDrop()
	s.RecordDrop()
	assert.Equal(t, uint64(3), s.CumulativeDrop())

	taken := s.TakeDrop()
	assert.Equal(t, uint64(3), taken)
	// TakeDrop resets the since-last-report counter but not the
	// cumulative one.
	assert.Equal(t, uint64(0), s.TakeDrop())
	assert.Equal(t, uint64(3), s.CumulativeDrop())
}

func TestSamplerStatePeriodAndEnrollFlags(t *testing.T) {
	s := newSamplerState()
	s.SetPeriodMillis(10)
	assert.Equal(t, int64(10), s.PeriodMillis())

	s.SetDisenrolled(false)
	assert.False(t, s.Disenrolled())

	s.SetStopSignals(true)
	assert.True(t, s.StopSignals())
}
