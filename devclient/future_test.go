package devclient

import (
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFutureResolved(t *testing.T) {
	require.NoError(t, ResolvedFuture(nil).Await())

	cause := errors.New("device on fire")
	f := ResolvedFuture(cause)
	require.ErrorIs(t, f.Await(), cause)
	// Await is repeatable and stable.
	require.ErrorIs(t, f.Await(), cause)
}

func TestFutureBlocksUntilSet(t *testing.T) {
	f := NewFuture()
	select {
	case <-f.Done():
		t.Fatal("future resolved before Set")
	default:
	}

	var wg sync.WaitGroup
	results := make([]error, 3)
	for ii := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[ii] = f.Await()
		}()
	}
	time.Sleep(time.Millisecond)
	f.Set(nil)
	wg.Wait()
	for _, err := range results {
		assert.NoError(t, err)
	}
}

func TestFutureSetOnce(t *testing.T) {
	f := NewFuture()
	first := errors.New("first")
	f.Set(first)
	f.Set(errors.New("second"))
	require.ErrorIs(t, f.Await(), first)
}
