package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersAreLabelled(t *testing.T) {
	before := testutil.ToFloat64(EligibilityDecisions.WithLabelValues("ratio", "true"))
	EligibilityDecisions.WithLabelValues("ratio", "true").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(EligibilityDecisions.WithLabelValues("ratio", "true")))

	before = testutil.ToFloat64(Predictions.WithLabelValues("Approved", "false"))
	Predictions.WithLabelValues("Approved", "false").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(Predictions.WithLabelValues("Approved", "false")))
}
