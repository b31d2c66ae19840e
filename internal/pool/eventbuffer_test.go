package pool

import (
	"testing"

	"github.com/rtpatchbay/enginecore/sdk/contracts"
	"github.com/stretchr/testify/assert"
)

func TestEventBufferAppendAndReset(t *testing.T) {
	b := NewEventBuffer(3)
	assert.Equal(t, 3, b.Cap())
	assert.Empty(t, b.Events())

	assert.True(t, b.Append(contracts.EngineEvent{Time: 1}))
	assert.True(t, b.Append(contracts.EngineEvent{Time: 2}))
	assert.True(t, b.Append(contracts.EngineEvent{Time: 3}))
	assert.Len(t, b.Events(), 3)

	// capacity is fixed: a fourth Append is rejected, not grown.
	assert.False(t, b.Append(contracts.EngineEvent{Time: 4}))
	assert.Len(t, b.Events(), 3)

	b.Reset()
	assert.Empty(t, b.Events())
	assert.Equal(t, 3, b.Cap())

	assert.True(t, b.Append(contracts.EngineEvent{Time: 9}))
	assert.Equal(t, uint32(9), b.Events()[0].Time)
}

func TestEventBufferOrderPreserved(t *testing.T) {
	b := NewEventBuffer(8)
	for i := uint32(0); i < 8; i++ {
		assert.True(t, b.Append(contracts.EngineEvent{Time: i}))
	}
	for i, ev := range b.Events() {
		assert.Equal(t, uint32(i), ev.Time)
	}
}
