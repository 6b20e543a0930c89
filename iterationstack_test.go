package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIterationStackRoundRobin(t *testing.T) {
	p := newStubProvider(64)
	it, err := NewIterationStack(p, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, it.MaxIterations())
	assert.Equal(t, 0, it.CurIteration())

	ptr0, err := it.Allocate(4, 4)
	require.NoError(t, err)
	require.NotNil(t, ptr0)

	for i := 0; i < 4; i++ {
		it.NextIteration()
	}
	assert.Equal(t, 0, it.CurIteration(), "after N iterations we're back at region 0")

	ptr0again, err := it.Allocate(4, 4)
	require.NoError(t, err)
	assert.Equal(t, ptr0, ptr0again, "region 0 was reclaimed when we cycled back to it")
}

func TestIterationStackNeverGrows(t *testing.T) {
	p := newStubProvider(32)
	it, err := NewIterationStack(p, 2)
	require.NoError(t, err)

	var lastErr error
	for i := 0; i < 1000; i++ {
		if _, err := it.Allocate(1, 1); err != nil {
			lastErr = err
			break
		}
	}
	require.Error(t, lastErr)
	var fixed *OutOfFixedMemoryError
	assert.ErrorAs(t, lastErr, &fixed)
}
