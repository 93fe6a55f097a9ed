package metrics_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interview-bot/internal/domain"
	"interview-bot/internal/metrics"
)

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", metrics.Outcome(nil))
	assert.Equal(t, "unknown", metrics.Outcome(errors.New("boom")))
	assert.Equal(t, "unintelligible",
		metrics.Outcome(domain.Classify(domain.KindUnintelligible, "transcribing", domain.ErrUnintelligible)))
}

func TestRecorder(t *testing.T) {
	r := metrics.NewRecorder()

	r.StageDone("capture", 200*time.Millisecond, nil)
	r.InvocationDone(time.Second, nil)
	r.InvocationDone(time.Second, domain.Classify(domain.KindCapture, "capturing audio", errors.New("no device")))

	n, err := testutil.GatherAndCount(r.Registry(), "interviewbot_invocations_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `interviewbot_invocations_total{outcome="capture"} 1`)
	assert.Contains(t, string(body), `interviewbot_stage_duration_seconds_count{stage="capture"} 1`)
}
