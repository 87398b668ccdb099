package analytics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromSink_CountsByEvent(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSink(reg)
	require.NoError(t, err)

	sink.Track(EventMigrationApplied, map[string]string{"version": "1"})
	sink.Track(EventMigrationApplied, map[string]string{"version": "2"})
	sink.Track(EventRelocationCompleted, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(sink.Counter(EventMigrationApplied)))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.Counter(EventRelocationCompleted)))
	assert.Equal(t, 0.0, testutil.ToFloat64(sink.Counter(EventBackupFailed)))
}

func TestPromSink_DoubleRegisterFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPromSink(reg)
	require.NoError(t, err)
	_, err = NewPromSink(reg)
	assert.Error(t, err)
}

func TestRecorder(t *testing.T) {
	var r Recorder
	r.Track(EventShareImported, map[string]string{"kind": "text"})
	r.Track(EventShareImported, nil)
	assert.Equal(t, 2, r.Count(EventShareImported))
	assert.Equal(t, "text", r.Events[0].Props["kind"])
}
