package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecorderCountsClaimOutcomes(t *testing.T) {
	r := NewRecorder("")
	r.ObserveClaim("pull", "claimed")
	r.ObserveClaim("pull", "claimed")
	r.ObserveClaim("auto", "conflict")

	require.Equal(t, 2.0, testutil.ToFloat64(r.claimAttempts.WithLabelValues("pull", "claimed")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.claimAttempts.WithLabelValues("auto", "conflict")))
}

func TestRecorderCountsIntake(t *testing.T) {
	r := NewRecorder("dispatch")
	r.ObserveIntake(true)
	r.ObserveIntake(false)
	r.ObserveIntake(false)

	require.Equal(t, 1.0, testutil.ToFloat64(r.intake.WithLabelValues("true")))
	require.Equal(t, 2.0, testutil.ToFloat64(r.intake.WithLabelValues("false")))
}

func TestHandlerExposesCounters(t *testing.T) {
	r := NewRecorder("dispatch")
	r.ObserveClaim("auto", "claimed")

	rr := httptest.NewRecorder()
	r.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, strings.Contains(rr.Body.String(), `dispatch_claim_attempts_total{outcome="claimed",path="auto"} 1`))
}
