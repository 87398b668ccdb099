package relocate

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/juju/mutex/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tripkeeper/internal/prefs"
)

// testLocker returns a locker on a name no other test uses.
func testLocker(t *testing.T) MutexLocker {
	t.Helper()
	l := NewMutexLocker(5 * time.Second)
	l.Name = fmt.Sprintf("tripkeeper-test-%d", time.Now().UnixNano())
	return l
}

func TestMutexLocker_Exclusive(t *testing.T) {
	l := testLocker(t)
	ctx := context.Background()

	release, err := l.Lock(ctx)
	require.NoError(t, err)

	contender := l
	contender.Timeout = 100 * time.Millisecond
	_, err = contender.Lock(ctx)
	assert.ErrorIs(t, err, mutex.ErrTimeout)

	release()

	releaseAgain, err := contender.Lock(ctx)
	require.NoError(t, err)
	releaseAgain()
}

func TestMutexLocker_Cancelled(t *testing.T) {
	l := testLocker(t)
	release, err := l.Lock(context.Background())
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Lock(ctx)
	assert.ErrorIs(t, err, mutex.ErrCancelled)
}

type failLocker struct{ calls int }

func (f *failLocker) Lock(context.Context) (func(), error) {
	f.calls++
	return nil, mutex.ErrTimeout
}

func TestRun_LockTimeoutStillRelocates(t *testing.T) {
	fs, l := memLayout(t)
	write(t, fs, l.legacyDB(), "main")
	m, _ := newMigrator(fs, l, prefs.NewMemFlags())
	locker := &failLocker{}
	m.Lock = locker

	rep := m.Run(context.Background())

	assert.Equal(t, 1, locker.calls)
	assert.True(t, rep.DatabaseCopied)
	assert.True(t, rep.Completed)
}
