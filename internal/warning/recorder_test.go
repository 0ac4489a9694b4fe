package warning_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mdp211/flowmeter-monitor/internal/model"
	"github.com/mdp211/flowmeter-monitor/internal/store"
	"github.com/mdp211/flowmeter-monitor/internal/warning"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRecord_PersistsWarningAndUserIndex(t *testing.T) {
	st := store.NewMemory()
	recorder := warning.NewRecorder(st, zap.NewNop())
	ctx := context.Background()

	id, err := recorder.Record(ctx, "u1", "fm1", model.MetricFlowrate, model.SeverityHigh, 50.0, 40.0)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	raw, err := st.Get(ctx, store.WarningPath("fm1", id))
	require.NoError(t, err)

	var record model.Warning
	require.NoError(t, json.Unmarshal(raw, &record))
	assert.Equal(t, "u1", record.UserID)
	assert.Equal(t, model.MetricFlowrate, record.Metric)
	assert.Equal(t, model.SeverityHigh, record.Severity)
	assert.Equal(t, 50.0, record.ReadingValue)
	assert.Equal(t, 40.0, record.ThresholdValue)
	assert.False(t, record.Acknowledged)
	assert.Nil(t, record.AcknowledgedAt)
	assert.NotEmpty(t, record.Timestamp)

	marker, err := st.Get(ctx, store.UserWarningPath("u1", id))
	require.NoError(t, err)
	assert.JSONEq(t, "true", string(marker))
}

func TestRecord_NoDeduplication(t *testing.T) {
	st := store.NewMemory()
	recorder := warning.NewRecorder(st, zap.NewNop())
	ctx := context.Background()

	id1, err := recorder.Record(ctx, "u1", "fm1", model.MetricPressure, model.SeverityLow, 2.0, 5.0)
	require.NoError(t, err)
	id2, err := recorder.Record(ctx, "u1", "fm1", model.MetricPressure, model.SeverityLow, 2.0, 5.0)
	require.NoError(t, err)

	assert.NotEqual(t, id1, id2, "repeated breaches must produce distinct warnings")

	warnings, err := st.Children(ctx, store.WarningsPath("fm1"))
	require.NoError(t, err)
	assert.Len(t, warnings, 2)
}
