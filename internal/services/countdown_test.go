package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountdown_ExpiresExactlyOnce(t *testing.T) {
	var (
		ticks   []int
		expired int
	)
	c := NewCountdown(intPtr(1), func(remaining int) { ticks = append(ticks, remaining) }, func() { expired++ })

	require.True(t, c.Start(func(func()) bool { return true }, newManualTicker().Factory()))
	assert.Equal(t, CountdownRunning, c.State())
	assert.Equal(t, 60, c.Remaining())

	for i := 0; i < 75; i++ {
		c.Tick()
	}

	assert.Equal(t, 1, expired)
	assert.Equal(t, CountdownExpired, c.State())
	assert.Equal(t, 0, c.Remaining())
	assert.Len(t, ticks, 60)
	assert.Equal(t, 0, ticks[len(ticks)-1])
}

func TestCountdown_NoDurationStaysIdle(t *testing.T) {
	for _, duration := range []*int{nil, intPtr(0), intPtr(-5)} {
		expired := false
		c := NewCountdown(duration, nil, func() { expired = true })

		assert.False(t, c.Start(func(func()) bool { return true }, newManualTicker().Factory()))
		c.Tick()

		assert.Equal(t, CountdownIdle, c.State())
		assert.False(t, c.Configured())
		assert.False(t, expired)
	}
}

func TestCountdown_StopPreventsExpiry(t *testing.T) {
	expired := false
	c := NewCountdown(intPtr(1), nil, func() { expired = true })
	require.True(t, c.Start(func(func()) bool { return true }, newManualTicker().Factory()))

	c.Tick()
	c.Stop()
	for i := 0; i < 100; i++ {
		c.Tick()
	}

	assert.Equal(t, CountdownStopped, c.State())
	assert.Equal(t, 59, c.Remaining())
	assert.False(t, expired)
}

func TestCountdown_TicksArePostedToLoop(t *testing.T) {
	d := NewDispatcher(8, discardLogger())
	go d.Run()
	defer d.Stop()

	expired := make(chan struct{})
	c := NewCountdown(intPtr(1), nil, func() { close(expired) })
	ticker := newManualTicker()

	started := make(chan bool, 1)
	require.True(t, d.Post(func() { started <- c.Start(d.Post, ticker.Factory()) }))
	require.True(t, <-started)

	for i := 0; i < 60; i++ {
		require.True(t, ticker.Tick())
	}
	<-expired

	// the ticker goroutine exits once the countdown halts
	select {
	case <-ticker.stopped:
	case <-time.After(time.Second):
		t.Fatal("ticker was not stopped after expiry")
	}
}

func TestFormatRemaining(t *testing.T) {
	tests := []struct {
		seconds  int
		expected string
	}{
		{0, "0:00"},
		{-3, "0:00"},
		{7, "0:07"},
		{247, "4:07"},
		{3599, "59:59"},
		{3600, "1h 00m 00s"},
		{3909, "1h 05m 09s"},
		{7322, "2h 02m 02s"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatRemaining(tt.seconds))
	}
}
