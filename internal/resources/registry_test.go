package resources

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	mu        sync.Mutex
	loads     int
	releases  int
	data      []byte
}

func (s *countingSource) Load() ([]byte, error) {
	s.mu.Lock()
	s.loads++
	s.mu.Unlock()
	return s.data, nil
}

func (s *countingSource) Release([]byte) error {
	s.mu.Lock()
	s.releases++
	s.mu.Unlock()
	return nil
}

func TestAcquire_MaterializesOnlyOnce(t *testing.T) {
	src := &countingSource{data: []byte("payload")}
	reg := NewRegistry()
	reg.Add("res-a", src)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, ok, err := reg.Acquire("res-a")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "payload", string(data))
		}()
	}
	wg.Wait()

	src.mu.Lock()
	assert.Equal(t, 1, src.loads)
	src.mu.Unlock()
	assert.Equal(t, 1, reg.LoadedCount())
}

func TestRelease_DisposesOnLastReference(t *testing.T) {
	src := &countingSource{data: []byte("payload")}
	reg := NewRegistry()
	reg.Add("res-a", src)

	_, _, err := reg.Acquire("res-a")
	require.NoError(t, err)
	_, _, err = reg.Acquire("res-a")
	require.NoError(t, err)

	require.NoError(t, reg.Release("res-a"))
	src.mu.Lock()
	assert.Equal(t, 0, src.releases)
	src.mu.Unlock()
	assert.Equal(t, 1, reg.LoadedCount())

	require.NoError(t, reg.Release("res-a"))
	src.mu.Lock()
	assert.Equal(t, 1, src.releases)
	src.mu.Unlock()
	assert.Equal(t, 0, reg.LoadedCount())
}

func TestAcquire_UnknownNameReportsNotFound(t *testing.T) {
	reg := NewRegistry()
	_, ok, err := reg.Acquire("missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReacquire_AfterFullRelease_MaterializesAgain(t *testing.T) {
	src := &countingSource{data: []byte("payload")}
	reg := NewRegistry()
	reg.Add("res-a", src)

	_, _, err := reg.Acquire("res-a")
	require.NoError(t, err)
	require.NoError(t, reg.Release("res-a"))

	_, _, err = reg.Acquire("res-a")
	require.NoError(t, err)

	src.mu.Lock()
	assert.Equal(t, 2, src.loads)
	src.mu.Unlock()
}

func TestAdd_DuplicateNameOverwritesExistingEntry(t *testing.T) {
	reg := NewRegistry()
	reg.Add("res-a", &countingSource{data: []byte("first")})

	second := &countingSource{data: []byte("second")}
	reg.Add("res-a", second)

	data, ok, err := reg.Acquire("res-a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "second", string(data))

	second.mu.Lock()
	assert.Equal(t, 1, second.loads)
	second.mu.Unlock()
}
