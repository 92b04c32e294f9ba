package marketdata

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacer_FirstCallDoesNotWait(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 7, 7, 7, 0, 0, 0, time.UTC))
	p := clock.Pacer(15 * time.Second)

	waited, err := p.Wait(context.Background())
	require.NoError(t, err)
	assert.Zero(t, waited)
	assert.Empty(t, clock.Sleeps())
	assert.Equal(t, clock.Now(), p.Last())
}

func TestPacer_BackToBackCallsWaitInterval(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 7, 7, 7, 0, 0, 0, time.UTC))
	p := clock.Pacer(15 * time.Second)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := p.Wait(ctx)
		require.NoError(t, err)
	}

	sleeps := clock.Sleeps()
	require.Len(t, sleeps, 2)
	for _, d := range sleeps {
		assert.InDelta(t, float64(15*time.Second), float64(d), float64(time.Millisecond))
	}
}

func TestPacer_ElapsedTimeCountsTowardInterval(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 7, 7, 7, 0, 0, 0, time.UTC))
	p := clock.Pacer(15 * time.Second)
	ctx := context.Background()

	_, err := p.Wait(ctx)
	require.NoError(t, err)
	clock.Advance(10 * time.Second)

	waited, err := p.Wait(ctx)
	require.NoError(t, err)
	assert.InDelta(t, float64(5*time.Second), float64(waited), float64(time.Millisecond))

	clock.Advance(time.Minute)
	waited, err = p.Wait(ctx)
	require.NoError(t, err)
	assert.Zero(t, waited)
}

func TestPacer_Reset(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 7, 7, 7, 0, 0, 0, time.UTC))
	p := clock.Pacer(15 * time.Second)
	ctx := context.Background()

	_, err := p.Wait(ctx)
	require.NoError(t, err)
	p.Reset()
	assert.True(t, p.Last().IsZero())

	waited, err := p.Wait(ctx)
	require.NoError(t, err)
	assert.Zero(t, waited)
}

func TestPacer_Disabled(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 7, 7, 7, 0, 0, 0, time.UTC))
	p := clock.Pacer(0)

	for i := 0; i < 5; i++ {
		waited, err := p.Wait(context.Background())
		require.NoError(t, err)
		assert.Zero(t, waited)
	}
	assert.Empty(t, clock.Sleeps())
}

func TestPacer_CancelledWait(t *testing.T) {
	p := NewPacer(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	_, err := p.Wait(ctx)
	require.NoError(t, err)

	cancel()
	_, err = p.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPacer_DoneRestartsInterval(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 7, 7, 7, 0, 0, 0, time.UTC))
	p := clock.Pacer(15 * time.Second)
	ctx := context.Background()

	_, err := p.Wait(ctx)
	require.NoError(t, err)
	clock.Advance(10 * time.Second)
	p.Done()
	assert.Equal(t, clock.Now(), p.Last())

	waited, err := p.Wait(ctx)
	require.NoError(t, err)
	assert.InDelta(t, float64(15*time.Second), float64(waited), float64(time.Millisecond))
}

func TestPacer_DoneWhenDisabled(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 7, 7, 7, 0, 0, 0, time.UTC))
	p := clock.Pacer(0)

	p.Done()
	waited, err := p.Wait(context.Background())
	require.NoError(t, err)
	assert.Zero(t, waited)
}
