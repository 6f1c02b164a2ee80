package console

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmgilman/go/filetable/fs/core"
)

func TestConsole_Write(t *testing.T) {
	var out bytes.Buffer
	dev := New(nil, &out)

	a, err := dev.Resolve(context.Background(), "con:", core.O_WRONLY, 0)
	require.NoError(t, err)
	b, err := dev.Resolve(context.Background(), "con:", core.O_WRONLY, 0)
	require.NoError(t, err)

	n, err := a.WriteAt([]byte("hello "), 100)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	_, err = b.WriteAt([]byte("world"), 0)
	require.NoError(t, err)

	assert.Equal(t, "hello world", out.String())
	require.NoError(t, a.Close())
	require.NoError(t, b.Close())
}

func TestConsole_Read(t *testing.T) {
	dev := New(strings.NewReader("typed input"), nil)
	vn, err := dev.Resolve(context.Background(), "con:", core.O_RDONLY, 0)
	require.NoError(t, err)

	buf := make([]byte, 5)
	n, err := vn.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "typed", string(buf[:n]))

	rest := make([]byte, 64)
	n, err = vn.ReadAt(rest, 0)
	require.NoError(t, err)
	assert.Equal(t, " input", string(rest[:n]))

	n, err = vn.ReadAt(rest, 0)
	require.NoError(t, err, "end of input is a zero-length read")
	assert.Equal(t, 0, n)
}

func TestConsole_NoInput(t *testing.T) {
	vn, err := New(nil, nil).Resolve(context.Background(), "con:", core.O_RDWR, 0)
	require.NoError(t, err)

	n, err := vn.ReadAt(make([]byte, 8), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = vn.WriteAt([]byte("dropped"), 0)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestConsole_NotSeekable(t *testing.T) {
	dev := New(nil, nil)
	vn, err := dev.Resolve(context.Background(), "con:", core.O_WRONLY, 0)
	require.NoError(t, err)

	assert.False(t, vn.IsSeekable())
	size, err := vn.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(0), size)
	assert.Equal(t, core.FSTypeDevice, dev.Type())
}

func TestConsole_InvalidFlags(t *testing.T) {
	_, err := New(nil, nil).Resolve(context.Background(), "con:", core.O_ACCMODE, 0)
	assert.Error(t, err)
}

func TestConsole_ConcurrentWrites(t *testing.T) {
	var out bytes.Buffer
	dev := New(nil, &out)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		vn, err := dev.Resolve(context.Background(), "con:", core.O_WRONLY, 0)
		require.NoError(t, err)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = vn.WriteAt([]byte("ab"), 0)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 8*100*2, out.Len())
	assert.Equal(t, strings.Repeat("ab", 800), out.String())
}
