package monitor_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/mdp211/flowmeter-monitor/internal/events"
	"github.com/mdp211/flowmeter-monitor/internal/model"
	"github.com/mdp211/flowmeter-monitor/internal/monitor"
	"github.com/mdp211/flowmeter-monitor/internal/notify"
	"github.com/mdp211/flowmeter-monitor/internal/store"
	"github.com/mdp211/flowmeter-monitor/internal/threshold"
	"github.com/mdp211/flowmeter-monitor/internal/warning"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type capturingPusher struct {
	mu     sync.Mutex
	titles []string
	tokens []string
}

func (c *capturingPusher) Send(ctx context.Context, deviceToken, title, body string, data map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.titles = append(c.titles, title)
	c.tokens = append(c.tokens, deviceToken)
	return nil
}

func newTestService(t *testing.T) (*monitor.Service, *store.Memory, *capturingPusher) {
	t.Helper()
	st := store.NewMemory()
	pusher := &capturingPusher{}
	logger := zap.NewNop()

	svc := monitor.NewService(
		st,
		threshold.NewEvaluator(),
		warning.NewRecorder(st, logger),
		notify.NewDispatcher(st, pusher, logger),
		events.NoopPublisher{},
		logger,
	)
	return svc, st, pusher
}

func floatPtr(f float64) *float64 { return &f }

func seedScenario(t *testing.T, st *store.Memory) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, store.FlowmeterPath("fm1"), model.FlowMeter{SerialNumber: "99"}))
	require.NoError(t, st.Set(ctx, store.Join(store.FlowmeterUsersPath("fm1"), "u1"), true))
	require.NoError(t, st.Set(ctx, store.Join(store.FlowmeterUsersPath("fm1"), "u2"), true))

	require.NoError(t, st.Set(ctx, store.ThresholdPath("u1", "fm1", "flowrate"), model.Bound{Low: 0, High: 40}))
	require.NoError(t, st.Set(ctx, store.ThresholdPath("u2", "fm1", "flowrate"), model.Bound{Low: 0, High: 100}))

	require.NoError(t, st.Set(ctx, store.Join(store.DevicesPath("u1"), "d1"), model.Device{Token: "tok-u1"}))
	require.NoError(t, st.Set(ctx, store.Join(store.DevicesPath("u2"), "d1"), model.Device{Token: "tok-u2"}))
}

func TestUpdateReadings_SharedMeterScenario(t *testing.T) {
	svc, st, pusher := newTestService(t)
	seedScenario(t, st)
	ctx := context.Background()

	err := svc.UpdateReadings(ctx, "99", model.ReadingUpdate{Flowrate: floatPtr(50.0)})
	require.NoError(t, err)

	// Exactly one warning: u1 breaches (50 > 40), u2 does not (50 < 100).
	warnings, err := st.Children(ctx, store.WarningsPath("fm1"))
	require.NoError(t, err)
	require.Len(t, warnings, 1)

	for _, raw := range warnings {
		var record model.Warning
		require.NoError(t, json.Unmarshal(raw, &record))
		assert.Equal(t, "u1", record.UserID)
		assert.Equal(t, model.SeverityHigh, record.Severity)
		assert.Equal(t, 50.0, record.ReadingValue)
		assert.Equal(t, 40.0, record.ThresholdValue)
	}

	require.Len(t, pusher.titles, 1)
	assert.Equal(t, "HIGH Flowrate Alert", pusher.titles[0])
	assert.Equal(t, "tok-u1", pusher.tokens[0])
}

func TestUpdateReadings_UnknownSerial(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.UpdateReadings(context.Background(), "nope", model.ReadingUpdate{Flowrate: floatPtr(1)})
	assert.ErrorIs(t, err, monitor.ErrNotFound)
}

func TestUpdateReadings_PersistsWithoutAssociatedUsers(t *testing.T) {
	svc, st, pusher := newTestService(t)
	ctx := context.Background()
	require.NoError(t, st.Set(ctx, store.FlowmeterPath("fm1"), model.FlowMeter{SerialNumber: "99"}))

	err := svc.UpdateReadings(ctx, "99", model.ReadingUpdate{Temperature: floatPtr(25.0)})
	require.NoError(t, err)

	raw, err := st.Get(ctx, store.ReadingsPath("fm1"))
	require.NoError(t, err)

	var snapshot map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &snapshot))
	assert.Equal(t, 25.0, snapshot["temperature"])
	assert.NotEmpty(t, snapshot["timestamp"])

	history, err := st.Children(ctx, store.HistoryPath("fm1"))
	require.NoError(t, err)
	assert.Len(t, history, 1)
	assert.Empty(t, pusher.titles)
}

func TestUpdateReadings_OneHistoryEntryPerUpdate(t *testing.T) {
	svc, st, _ := newTestService(t)
	seedScenario(t, st)
	ctx := context.Background()

	// Both metrics breach for u1, still a single history entry.
	require.NoError(t, st.Set(ctx, store.ThresholdPath("u1", "fm1", "temperature"), model.Bound{Low: 0, High: 20}))

	err := svc.UpdateReadings(ctx, "99", model.ReadingUpdate{
		Flowrate:    floatPtr(50.0),
		Temperature: floatPtr(30.0),
	})
	require.NoError(t, err)

	warnings, err := st.Children(ctx, store.WarningsPath("fm1"))
	require.NoError(t, err)
	assert.Len(t, warnings, 2)

	history, err := st.Children(ctx, store.HistoryPath("fm1"))
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestUpdateReadings_MergePreservesEarlierMetrics(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, st.Set(ctx, store.FlowmeterPath("fm1"), model.FlowMeter{SerialNumber: "99"}))

	require.NoError(t, svc.UpdateReadings(ctx, "99", model.ReadingUpdate{Flowrate: floatPtr(10.0)}))
	require.NoError(t, svc.UpdateReadings(ctx, "99", model.ReadingUpdate{Pressure: floatPtr(3.0)}))

	raw, err := st.Get(ctx, store.ReadingsPath("fm1"))
	require.NoError(t, err)

	var snapshot map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &snapshot))
	assert.Equal(t, 10.0, snapshot["flowrate"])
	assert.Equal(t, 3.0, snapshot["pressure"])

	history, err := st.Children(ctx, store.HistoryPath("fm1"))
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestUpdateReadings_HumidityStoredButNotEvaluated(t *testing.T) {
	svc, st, pusher := newTestService(t)
	seedScenario(t, st)
	ctx := context.Background()

	// Even a configured humidity bound never fires.
	require.NoError(t, st.Set(ctx, store.ThresholdPath("u1", "fm1", "humidity"), model.Bound{Low: 0, High: 10}))

	err := svc.UpdateReadings(ctx, "99", model.ReadingUpdate{Humidity: floatPtr(95.0)})
	require.NoError(t, err)

	warnings, err := st.Children(ctx, store.WarningsPath("fm1"))
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Empty(t, pusher.titles)

	raw, err := st.Get(ctx, store.ReadingsPath("fm1"))
	require.NoError(t, err)
	var snapshot map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &snapshot))
	assert.Equal(t, 95.0, snapshot["humidity"])
}

func TestAcknowledgeWarning_Success(t *testing.T) {
	svc, st, _ := newTestService(t)
	seedScenario(t, st)
	ctx := context.Background()

	require.NoError(t, svc.UpdateReadings(ctx, "99", model.ReadingUpdate{Flowrate: floatPtr(50.0)}))

	warnings, err := st.Children(ctx, store.WarningsPath("fm1"))
	require.NoError(t, err)
	require.Len(t, warnings, 1)

	var warningID string
	for id := range warnings {
		warningID = id
	}

	require.NoError(t, svc.AcknowledgeWarning(ctx, warningID, "fm1", "u1"))

	raw, err := st.Get(ctx, store.WarningPath("fm1", warningID))
	require.NoError(t, err)
	var record model.Warning
	require.NoError(t, json.Unmarshal(raw, &record))
	assert.True(t, record.Acknowledged)
	require.NotNil(t, record.AcknowledgedAt)
	assert.NotEmpty(t, *record.AcknowledgedAt)

	// Re-acknowledging overwrites the same fields and succeeds.
	require.NoError(t, svc.AcknowledgeWarning(ctx, warningID, "fm1", "u1"))
}

func TestAcknowledgeWarning_WrongUserLeavesFlagUnchanged(t *testing.T) {
	svc, st, _ := newTestService(t)
	seedScenario(t, st)
	ctx := context.Background()

	require.NoError(t, svc.UpdateReadings(ctx, "99", model.ReadingUpdate{Flowrate: floatPtr(50.0)}))

	warnings, err := st.Children(ctx, store.WarningsPath("fm1"))
	require.NoError(t, err)
	require.Len(t, warnings, 1)

	var warningID string
	for id := range warnings {
		warningID = id
	}

	err = svc.AcknowledgeWarning(ctx, warningID, "fm1", "u2")
	assert.ErrorIs(t, err, monitor.ErrPermissionDenied)

	raw, err := st.Get(ctx, store.WarningPath("fm1", warningID))
	require.NoError(t, err)
	var record model.Warning
	require.NoError(t, json.Unmarshal(raw, &record))
	assert.False(t, record.Acknowledged)
	assert.Nil(t, record.AcknowledgedAt)
}

func TestAcknowledgeWarning_UnknownWarning(t *testing.T) {
	svc, st, _ := newTestService(t)
	seedScenario(t, st)

	err := svc.AcknowledgeWarning(context.Background(), "missing", "fm1", "u1")
	assert.ErrorIs(t, err, monitor.ErrNotFound)
}
