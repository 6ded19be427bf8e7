package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdd(t *testing.T) {
	s := New(nil)

	require.NoError(t, s.Add("cleanup", "*/10 * * * *", func(ctx context.Context) error { return nil }))
	require.NoError(t, s.Add("hourly", "@hourly", func(ctx context.Context) error { return nil }))
	assert.ElementsMatch(t, []string{"cleanup", "hourly"}, s.Jobs())

	err := s.Add("cleanup", "@daily", func(ctx context.Context) error { return nil })
	assert.ErrorContains(t, err, "already registered")

	err = s.Add("broken", "not a schedule", func(ctx context.Context) error { return nil })
	assert.ErrorContains(t, err, "invalid schedule")
	assert.NotContains(t, s.Jobs(), "broken")
}

func TestAdd_EmptySpecDisables(t *testing.T) {
	s := New(nil)

	require.NoError(t, s.Add("reload", "", func(ctx context.Context) error { return nil }))
	assert.Empty(t, s.Jobs())
}

func TestRunNow(t *testing.T) {
	s := New(nil)
	var runs atomic.Int32
	jobErr := errors.New("boom")

	require.NoError(t, s.Add("count", "@daily", func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}))
	require.NoError(t, s.Add("fail", "@daily", func(ctx context.Context) error { return jobErr }))

	require.NoError(t, s.RunNow(context.Background(), "count"))
	assert.Equal(t, int32(1), runs.Load())

	assert.ErrorIs(t, s.RunNow(context.Background(), "fail"), jobErr)
	assert.Error(t, s.RunNow(context.Background(), "missing"))
}

func TestStartStop(t *testing.T) {
	s := New(nil)
	ran := make(chan struct{}, 10)

	require.NoError(t, s.Add("tick", "@every 1s", func(ctx context.Context) error {
		ran <- struct{}{}
		return nil
	}))

	s.Start()
	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule(""))
	assert.NoError(t, ValidateSchedule("0 * * * *"))
	assert.NoError(t, ValidateSchedule("@every 5m"))
	assert.Error(t, ValidateSchedule("61 * * * *"))
	assert.Error(t, ValidateSchedule("* * *"))
}
