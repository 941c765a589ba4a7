// SPDX-License-Identifier: MIT

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_Idempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))
}

func TestObserveFold_Labels(t *testing.T) {
	before := testutil.ToFloat64(foldsTotal.WithLabelValues(OutcomeSkipped))
	ObserveFold(time.Millisecond, OutcomeSkipped)
	ObserveFold(-time.Second, "anything")
	assert.Equal(t, before+1, testutil.ToFloat64(foldsTotal.WithLabelValues(OutcomeSkipped)))
}

func TestObservePrediction_CollapsesUnknownOutcomes(t *testing.T) {
	before := testutil.ToFloat64(predictionsTotal.WithLabelValues(OutcomeSuccess))
	ObservePrediction(time.Millisecond, "weird")
	assert.Equal(t, before+1, testutil.ToFloat64(predictionsTotal.WithLabelValues(OutcomeSuccess)))
}

func TestSetModelSubjects(t *testing.T) {
	SetModelSubjects(7)
	assert.Equal(t, 7.0, testutil.ToFloat64(modelSubjects))
}
