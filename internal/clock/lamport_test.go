package clock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLamport_Tick(t *testing.T) {
	lc := NewLamportWithNodeID("node1")

	assert.Equal(t, uint64(0), lc.Current())
	assert.Equal(t, uint64(1), lc.Tick())
	assert.Equal(t, uint64(2), lc.Tick())
	assert.Equal(t, uint64(2), lc.Current())
}

func TestLamport_Update(t *testing.T) {
	lc := NewLamportWithNodeID("node1")
	lc.Tick()

	// Удаленное значение больше локального: max(1, 10) + 1
	assert.Equal(t, uint64(11), lc.Update(10))

	// Удаленное значение меньше локального: max(11, 5) + 1
	assert.Equal(t, uint64(12), lc.Update(5))
}

func TestLamport_SetCurrent(t *testing.T) {
	lc := NewLamportWithNodeID("node1")

	lc.SetCurrent(42)
	assert.Equal(t, uint64(42), lc.Current())

	// Счетчик никогда не откатывается
	lc.SetCurrent(7)
	assert.Equal(t, uint64(42), lc.Current())
}

func TestLamport_NodeID(t *testing.T) {
	lc := NewLamport()
	require.NotEmpty(t, lc.NodeID())

	other := NewLamport()
	assert.NotEqual(t, lc.NodeID(), other.NodeID())
}

func TestLamport_ConcurrentTicks(t *testing.T) {
	lc := NewLamportWithNodeID("node1")

	const goroutines = 10
	const ticksPerGoroutine = 100

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < ticksPerGoroutine; j++ {
				lc.Tick()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(goroutines*ticksPerGoroutine), lc.Current())
}
