package backup

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type countingRunner struct{ runs atomic.Int32 }

func (c *countingRunner) Run(context.Context) (Result, error) {
	c.runs.Add(1)
	return Result{}, nil
}

func newTestScheduler(t *testing.T, interval time.Duration, dirs ...string) (*Scheduler, *countingRunner) {
	t.Helper()
	log, _ := logtest.NewNullLogger()
	r := &countingRunner{}
	s := NewScheduler(r, interval, log, dirs...)
	s.debounce = 10 * time.Millisecond
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Stop)
	return s, r
}

func TestScheduler_TriggerIsRateLimited(t *testing.T) {
	s, r := newTestScheduler(t, time.Hour)

	s.Trigger()
	require.Eventually(t, func() bool { return r.runs.Load() == 1 }, time.Second, 5*time.Millisecond)

	s.Trigger()
	s.Trigger()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), r.runs.Load())
}

func TestScheduler_RunsOnFileChange(t *testing.T) {
	dir := t.TempDir()
	_, r := newTestScheduler(t, time.Hour, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "j1_new.pdf"), []byte("x"), 0o644))
	require.Eventually(t, func() bool { return r.runs.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_PeriodicTick(t *testing.T) {
	_, r := newTestScheduler(t, 20*time.Millisecond)
	require.Eventually(t, func() bool { return r.runs.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_StartMissingDir(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	s := NewScheduler(&countingRunner{}, time.Hour, log, filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, s.Start(context.Background()))
	s.Stop()
}

func TestScheduler_RestartAfterStop(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	r := &countingRunner{}
	s := NewScheduler(r, time.Hour, log)

	require.NoError(t, s.Start(context.Background()))
	s.Stop()
	s.Stop()

	// A fresh limiter so the run after restart is not rate limited away.
	s.limiter = rate.NewLimiter(rate.Inf, 1)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Stop)

	s.Trigger()
	require.Eventually(t, func() bool { return r.runs.Load() == 1 }, time.Second, 5*time.Millisecond)
}
