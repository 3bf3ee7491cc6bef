package lockout

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryPolicy_UnknownClientIsClean(t *testing.T) {
	p := NewMemoryPolicy(3, time.Minute, time.Minute)
	info, err := p.Status(context.Background(), "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, info.IsLockedOut)
	assert.Equal(t, 0, info.AttemptCount)
	assert.Zero(t, info.RemainingTime)
}

func TestMemoryPolicy_LocksAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPolicy(3, time.Minute, time.Minute)

	for i := 1; i <= 2; i++ {
		info, err := p.RecordFailure(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.False(t, info.IsLockedOut)
		assert.Equal(t, i, info.AttemptCount)
	}

	info, err := p.RecordFailure(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, info.IsLockedOut)
	assert.Equal(t, 3, info.AttemptCount)
	assert.Greater(t, info.RemainingTime, time.Duration(0))
}

func TestMemoryPolicy_ClientsAreIndependent(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPolicy(2, time.Minute, time.Minute)

	for i := 0; i < 2; i++ {
		_, err := p.RecordFailure(ctx, "1.2.3.4")
		require.NoError(t, err)
	}

	other, err := p.Status(ctx, "5.6.7.8")
	require.NoError(t, err)
	assert.False(t, other.IsLockedOut)
	assert.Equal(t, 0, other.AttemptCount)
}

func TestMemoryPolicy_Reset(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPolicy(2, time.Minute, time.Minute)

	for i := 0; i < 2; i++ {
		_, err := p.RecordFailure(ctx, "1.2.3.4")
		require.NoError(t, err)
	}
	require.NoError(t, p.Reset(ctx, "1.2.3.4"))

	info, err := p.Status(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, info.IsLockedOut)
	assert.Equal(t, 0, info.AttemptCount)
}

func TestMemoryPolicy_WindowExpiryResetsCount(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPolicy(5, time.Millisecond, time.Minute)

	_, err := p.RecordFailure(ctx, "1.2.3.4")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	info, err := p.RecordFailure(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, 1, info.AttemptCount)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{4 * time.Minute, "4 minutes"},
		{90 * time.Second, "1 minute"},
		{30 * time.Second, "30 seconds"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.d))
	}
}
