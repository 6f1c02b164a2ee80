package kmem

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmgilman/go/filetable/errors"
)

func TestHeap_AllocFree(t *testing.T) {
	h := New(100)

	require.NoError(t, h.Alloc(60))
	require.NoError(t, h.Alloc(40))
	assert.Equal(t, int64(100), h.Used())

	err := h.Alloc(1)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeOutOfMemory))
	assert.Equal(t, errors.ENOMEM, errors.ErrnoOf(err))
	assert.True(t, errors.IsRetryable(err))
	assert.Equal(t, int64(100), h.Used())

	h.Free(40)
	require.NoError(t, h.Alloc(1))
	assert.Equal(t, int64(61), h.Used())
}

func TestHeap_Unlimited(t *testing.T) {
	h := New(0)
	require.NoError(t, h.Alloc(1<<40))
	assert.Equal(t, int64(1<<40), h.Used())
	assert.Equal(t, int64(0), h.Limit())

	var nilHeap *Heap
	require.NoError(t, nilHeap.Alloc(10))
	nilHeap.Free(10)
	assert.Equal(t, int64(0), nilHeap.Used())
}

func TestHeap_IgnoresNonPositive(t *testing.T) {
	h := New(10)
	require.NoError(t, h.Alloc(0))
	require.NoError(t, h.Alloc(-5))
	h.Free(-5)
	assert.Equal(t, int64(0), h.Used())
}

func TestBounce(t *testing.T) {
	h := New(64)

	buf, err := h.Bounce(48)
	require.NoError(t, err)
	assert.Len(t, buf.Bytes(), 48)
	assert.Equal(t, int64(48), h.Used())

	_, err = h.Bounce(32)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeOutOfMemory))

	buf.Release()
	buf.Release()
	assert.Equal(t, int64(0), h.Used())

	_, err = h.Bounce(-1)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidArgument))
}

func TestHeap_Concurrent(t *testing.T) {
	h := New(1000)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				buf, err := h.Bounce(10)
				if err != nil {
					continue
				}
				buf.Bytes()[0] = byte(j)
				buf.Release()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(0), h.Used())
}
