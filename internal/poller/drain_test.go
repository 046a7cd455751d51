package poller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmwm/dbs3-uploader/internal/block"
	"github.com/dmwm/dbs3-uploader/internal/catalog"
	"github.com/dmwm/dbs3-uploader/internal/metrics"
	"github.com/dmwm/dbs3-uploader/internal/workerpool"
)

func TestDrainClassifiesUploadedAsTerminal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cache := block.NewCache()
	b := pendingBlockWithFile("ready#1")
	cache.Insert(b)

	inFlight := block.NewInFlightSet()
	inFlight.Add("ready#1")

	pool := workerpool.New(1, func() *catalog.Client { return catalog.New(srv.URL, time.Second) })
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)
	defer pool.Stop(time.Second)

	pool.Submit(workerpool.Submission{Name: "ready#1", Payload: b.Serialize()})

	var waiver atomic.Bool
	result, err := Drain(pool, cache, inFlight, metrics.New(), 1, time.Second, 3, &waiver)
	require.NoError(t, err)

	assert.Equal(t, []string{"ready#1"}, result.Terminal)
	assert.Empty(t, result.ToCheck)
	assert.False(t, result.Waived)
	assert.Equal(t, block.InDBS, b.Status)
	assert.False(t, inFlight.Contains("ready#1"))
}

func TestDrainClassifiesAmbiguousAsToCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cache := block.NewCache()
	b := pendingBlockWithFile("check#1")
	cache.Insert(b)

	inFlight := block.NewInFlightSet()
	inFlight.Add("check#1")

	pool := workerpool.New(1, func() *catalog.Client { return catalog.New(srv.URL, time.Second) })
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)
	defer pool.Stop(time.Second)

	pool.Submit(workerpool.Submission{Name: "check#1", Payload: b.Serialize()})

	var waiver atomic.Bool
	result, err := Drain(pool, cache, inFlight, metrics.New(), 1, time.Second, 3, &waiver)
	require.NoError(t, err)

	assert.Equal(t, []string{"check#1"}, result.ToCheck)
	assert.Empty(t, result.Terminal)
	assert.Equal(t, block.Pending, b.Status, "an ambiguous outcome must not advance the block's status")
}

func TestDrainAppliesOneShotWaiverThenFailsFatally(t *testing.T) {
	cache := block.NewCache()
	inFlight := block.NewInFlightSet()

	pool := workerpool.New(1, func() *catalog.Client { return catalog.New("http://unused.invalid", time.Second) })
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)
	defer pool.Stop(time.Second)

	var waiver atomic.Bool

	result, err := Drain(pool, cache, inFlight, metrics.New(), 1, 10*time.Millisecond, 1, &waiver)
	require.NoError(t, err)
	assert.True(t, result.Waived)
	assert.True(t, waiver.Load())

	_, err = Drain(pool, cache, inFlight, metrics.New(), 1, 10*time.Millisecond, 1, &waiver)
	require.Error(t, err)
}
