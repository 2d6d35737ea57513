package decisionlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forex-autotrader/internal/types"
)

func openTestLog(t *testing.T) *SQLite {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "decisions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleDecision(symbol string, ts time.Time) types.Decision {
	return types.Decision{
		Symbol:          symbol,
		Timestamp:       ts,
		Action:          types.ActionBuy,
		FinalConfidence: 68,
		WeightedScores: map[types.EngineKind]float64{
			types.EngineTechnical: 24,
			types.EngineAI:        14,
		},
		PrimaryReasons: []string{"technical: price above sma50"},
		WarningFlags:   []string{},
	}
}

func TestAppendAndRecent(t *testing.T) {
	s := openTestLog(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Append(ctx, sampleDecision("EURUSD", base.Add(time.Duration(i)*time.Minute))))
	}

	got, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Newest first.
	assert.Equal(t, base.Add(2*time.Minute), got[0].Timestamp)
	assert.Equal(t, base.Add(time.Minute), got[1].Timestamp)
	assert.Equal(t, types.ActionBuy, got[0].Action)
	assert.InDelta(t, 24, got[0].WeightedScores[types.EngineTechnical], 1e-9)
	assert.False(t, got[0].Executed)
}

func TestMarkExecuted(t *testing.T) {
	s := openTestLog(t)
	ctx := context.Background()

	ts := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Append(ctx, sampleDecision("GBPUSD", ts)))

	require.NoError(t, s.MarkExecuted(ctx, "GBPUSD", ts.UnixNano()))

	got, err := s.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Executed)

	// Unknown rows are an error, not a silent no-op.
	assert.Error(t, s.MarkExecuted(ctx, "GBPUSD", ts.Add(time.Hour).UnixNano()))
}

func TestDuplicateAppendRejected(t *testing.T) {
	s := openTestLog(t)
	ctx := context.Background()

	d := sampleDecision("USDJPY", time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC))
	require.NoError(t, s.Append(ctx, d))
	assert.Error(t, s.Append(ctx, d))
}

func TestSingletonStateRoundTrip(t *testing.T) {
	s := openTestLog(t)
	ctx := context.Background()

	rs := types.RiskState{CurrentDrawdown: 0.03, OpenPositionCount: 2}
	require.NoError(t, s.SaveRiskState(ctx, rs))
	rs.OpenPositionCount = 1
	require.NoError(t, s.SaveRiskState(ctx, rs))

	st := types.SupervisorStatus{Phase: types.PhaseRunning, TickCount: 7}
	require.NoError(t, s.SaveStatus(ctx, st))

	var n int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM risk_state`).Scan(&n))
	assert.Equal(t, 1, n)
}
