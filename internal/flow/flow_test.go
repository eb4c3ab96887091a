package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	m, err := ParseMode("upload")
	require.NoError(t, err)
	assert.Equal(t, ModeUpload, m)

	_, err = ParseMode("fax")
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestCycleHidesOutputWhileGenerating(t *testing.T) {
	var c Cycle[string]
	c.SetOutput("first")

	token, err := c.Begin()
	require.NoError(t, err)
	assert.Equal(t, StatusGenerating, c.Status())
	_, has := c.Output()
	assert.False(t, has, "output and generating must be mutually exclusive")

	_, err = c.Begin()
	assert.ErrorIs(t, err, ErrBusy)

	require.True(t, c.Settle(token, Resolve("second")))
	out, has := c.Output()
	assert.True(t, has)
	assert.Equal(t, "second", out)
	assert.Equal(t, StatusGenerated, c.Status())
}

func TestCycleRejectRestoresPriorOutput(t *testing.T) {
	var c Cycle[string]
	c.SetOutput("kept")

	token, err := c.Begin()
	require.NoError(t, err)
	require.True(t, c.Settle(token, Reject[string](errors.New("backend down"))))

	out, has := c.Output()
	assert.True(t, has)
	assert.Equal(t, "kept", out)
	assert.Equal(t, StatusGenerated, c.Status())
	assert.Equal(t, "backend down", c.LastError())

	_, err = c.Begin()
	assert.NoError(t, err, "submission must be re-enabled after a failure")
}

func TestCycleStableKeepsPriorOutputWhileGenerating(t *testing.T) {
	var c Cycle[string]
	out, has, status := c.Stable()
	assert.False(t, has)
	assert.Empty(t, out)
	assert.Equal(t, StatusIdle, status)

	token, err := c.Begin()
	require.NoError(t, err)
	_, has, status = c.Stable()
	assert.False(t, has)
	assert.Equal(t, StatusIdle, status)
	require.True(t, c.Settle(token, Resolve("first")))

	_, err = c.Begin()
	require.NoError(t, err)
	out, has, status = c.Stable()
	assert.True(t, has)
	assert.Equal(t, "first", out)
	assert.Equal(t, StatusGenerated, status)
	assert.Equal(t, StatusGenerating, c.Status())
}

func TestCycleRejectWithoutPriorOutputReturnsIdle(t *testing.T) {
	var c Cycle[[]int]
	token, _ := c.Begin()
	c.Settle(token, Reject[[]int](ErrGenerationFailed))
	assert.Equal(t, StatusIdle, c.Status())
}

func TestCycleIgnoresStaleTokens(t *testing.T) {
	var c Cycle[string]
	token, _ := c.Begin()
	c.Abandon()

	assert.False(t, c.Settle(token, Resolve("late")))
	_, has := c.Output()
	assert.False(t, has)
	assert.Equal(t, StatusIdle, c.Status())
}

func TestLifetimeCloseCancelsWork(t *testing.T) {
	life := NewLifetime(context.Background())
	results := make(chan Result[string], 1)

	Go(life, func(ctx context.Context) (string, error) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(5 * time.Second):
			return "too late", nil
		}
	}, func(r Result[string]) { results <- r })

	life.Close()
	life.Wait()

	r := <-results
	assert.Equal(t, Rejected, r.State)
	assert.ErrorIs(t, r.Err, context.Canceled)
	assert.True(t, life.Done())
}

func TestGoRecoversPanics(t *testing.T) {
	life := NewLifetime(context.Background())
	results := make(chan Result[int], 1)

	Go(life, func(ctx context.Context) (int, error) {
		panic("boom")
	}, func(r Result[int]) { results <- r })
	life.Wait()

	r := <-results
	assert.Equal(t, Rejected, r.State)
	assert.ErrorIs(t, r.Err, ErrGenerationFailed)
}
