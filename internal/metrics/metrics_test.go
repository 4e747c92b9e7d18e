// SPDX-License-Identifier: MIT

package metrics

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gaugeValue(t *testing.T, component, state string) float64 {
	t.Helper()

	g, err := breakerState.GetMetricWithLabelValues(component, state)
	require.NoError(t, err)

	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}

func TestSetBreakerState_ExclusiveStates(t *testing.T) {
	SetBreakerState("upstream", "open")

	assert.Equal(t, 1.0, gaugeValue(t, "upstream", "open"))
	assert.Equal(t, 0.0, gaugeValue(t, "upstream", "closed"))
	assert.Equal(t, 0.0, gaugeValue(t, "upstream", "half-open"))

	SetBreakerState("upstream", "closed")

	assert.Equal(t, 0.0, gaugeValue(t, "upstream", "open"))
	assert.Equal(t, 1.0, gaugeValue(t, "upstream", "closed"))
}

func TestRecordPublish_AddsBatchSize(t *testing.T) {
	var before dto.Metric
	require.NoError(t, CoalescePublishTotal.Write(&before))

	RecordPublish(7)

	var after dto.Metric
	require.NoError(t, CoalescePublishTotal.Write(&after))
	assert.Equal(t, before.GetCounter().GetValue()+7, after.GetCounter().GetValue())
}
