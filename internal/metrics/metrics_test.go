package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/usagiclock/internal/sequence"
)

func TestTransitionCounters(t *testing.T) {
	m := New()
	m.Transition(sequence.Transition{From: sequence.Idle, To: sequence.AlarmIntro}, false)
	m.Transition(sequence.Transition{From: sequence.AlarmIntro, To: sequence.AlarmLoop}, false)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Mode.WithLabelValues("alarm_loop")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Mode.WithLabelValues("idle")))

	m.Transition(sequence.Transition{From: sequence.AlarmLoop, To: sequence.Idle}, true)
	m.Transition(sequence.Transition{From: sequence.Idle, To: sequence.AlarmIntro}, false)
	m.Transition(sequence.Transition{From: sequence.AlarmLoop, To: sequence.Idle}, false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Alarms.WithLabelValues("triggered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Alarms.WithLabelValues("cancelled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Alarms.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Mode.WithLabelValues("idle")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.Frames.Add(3)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "usagiclock_logical_frames_total 3")
}
