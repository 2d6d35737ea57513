package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"forex-autotrader/internal/store"
	"forex-autotrader/internal/supervisor"
	"forex-autotrader/internal/types"
)

type fakeSupervisor struct {
	phase types.Phase
}

func (f *fakeSupervisor) Start(ctx context.Context) error {
	if f.phase != types.PhaseStopped {
		return supervisor.ErrAlreadyRunning
	}
	f.phase = types.PhaseRunning
	return nil
}

func (f *fakeSupervisor) Stop(ctx context.Context, reason string) error {
	if f.phase == types.PhaseStopped {
		return supervisor.ErrNotRunning
	}
	f.phase = types.PhaseStopped
	return nil
}

func (f *fakeSupervisor) EmergencyStop(ctx context.Context, reason string) error {
	if f.phase != types.PhaseRunning {
		return supervisor.ErrNotRunning
	}
	f.phase = types.PhaseEmergency
	return nil
}

func (f *fakeSupervisor) ClearEmergency(ctx context.Context) error {
	if f.phase != types.PhaseEmergency {
		return supervisor.ErrNotEmergency
	}
	f.phase = types.PhaseStopped
	return nil
}

func (f *fakeSupervisor) Status() types.SupervisorStatus {
	return types.SupervisorStatus{Phase: f.phase}
}

func (f *fakeSupervisor) Positions() []types.Position { return nil }

type fakeLog struct {
	decisions []types.Decision
}

func (f *fakeLog) Append(ctx context.Context, d types.Decision) error { return nil }

func (f *fakeLog) MarkExecuted(ctx context.Context, symbol string, ts int64) error { return nil }

func (f *fakeLog) Recent(ctx context.Context, limit int) ([]types.Decision, error) {
	if limit < len(f.decisions) {
		return f.decisions[:limit], nil
	}
	return f.decisions, nil
}

func (f *fakeLog) SaveRiskState(ctx context.Context, rs types.RiskState) error { return nil }

func (f *fakeLog) SaveStatus(ctx context.Context, st types.SupervisorStatus) error { return nil }

func (f *fakeLog) Close() error { return nil }

func newTestServer(t *testing.T) (*Server, *fakeSupervisor) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var c store.Config
	c.Mode = "DRY_RUN"
	c.DataSource = "STATIC"
	c.ActivePairs = []string{"EURUSD"}
	c.AnalysisSeconds = 60
	c.MinConfidenceLevel = 60
	c.Weights.Technical = 0.3
	c.Weights.Sentiment = 0.2
	c.Weights.Fundamental = 0.2
	c.Weights.AI = 0.2
	c.Weights.Risk = 0.1
	c.Risk.MaxDailyLoss = 500
	c.Risk.MaxConcurrentTrades = 3
	c.Risk.MaxDrawdownStop = 0.10
	c.Risk.StopLossPct = 2
	c.Risk.TakeProfitPct = 4
	c.Risk.PositionSize = 10000
	if err := c.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}

	sup := &fakeSupervisor{phase: types.PhaseStopped}
	log := &fakeLog{decisions: []types.Decision{{Symbol: "EURUSD", Action: types.ActionHold}}}
	return NewServer(sup, store.NewStore(&c), log, NewHub()), sup
}

func do(s *Server, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestLifecycleEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	if w := do(s, http.MethodPost, "/api/v1/trading/start", nil); w.Code != http.StatusOK {
		t.Fatalf("start: got %d, want 200 (%s)", w.Code, w.Body.String())
	}
	if w := do(s, http.MethodPost, "/api/v1/trading/start", nil); w.Code != http.StatusConflict {
		t.Fatalf("double start: got %d, want 409", w.Code)
	}

	if w := do(s, http.MethodPost, "/api/v1/trading/emergency-stop", []byte(`{"reason":"oops"}`)); w.Code != http.StatusOK {
		t.Fatalf("emergency-stop: got %d, want 200", w.Code)
	}
	if w := do(s, http.MethodPost, "/api/v1/trading/clear-emergency", nil); w.Code != http.StatusOK {
		t.Fatalf("clear-emergency: got %d, want 200", w.Code)
	}
	if w := do(s, http.MethodPost, "/api/v1/trading/stop", nil); w.Code != http.StatusConflict {
		t.Fatalf("stop while stopped: got %d, want 409", w.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	s, sup := newTestServer(t)
	sup.phase = types.PhaseRunning

	w := do(s, http.MethodGet, "/api/v1/trading/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", w.Code)
	}
	var st types.SupervisorStatus
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if st.Phase != types.PhaseRunning {
		t.Fatalf("phase: got %s, want running", st.Phase)
	}
}

func TestDecisionsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	if w := do(s, http.MethodGet, "/api/v1/trading/decisions", nil); w.Code != http.StatusOK {
		t.Fatalf("decisions: got %d, want 200", w.Code)
	}
	if w := do(s, http.MethodGet, "/api/v1/trading/decisions?limit=abc", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad limit: got %d, want 400", w.Code)
	}
	if w := do(s, http.MethodGet, "/api/v1/trading/decisions?limit=-3", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("negative limit: got %d, want 400", w.Code)
	}
}

func TestUpdateConfigValidation(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(s, http.MethodPatch, "/api/v1/trading/config", []byte(`{"min_confidence_level": 75}`))
	if w.Code != http.StatusOK {
		t.Fatalf("valid patch: got %d, want 200 (%s)", w.Code, w.Body.String())
	}
	if got := s.cfg.Snapshot().MinConfidenceLevel; got != 75 {
		t.Fatalf("min confidence: got %.0f, want 75", got)
	}

	// Out-of-range value is rejected and the active config keeps its value.
	w = do(s, http.MethodPatch, "/api/v1/trading/config", []byte(`{"min_confidence_level": 150}`))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid patch: got %d, want 422 (%s)", w.Code, w.Body.String())
	}
	if got := s.cfg.Snapshot().MinConfidenceLevel; got != 75 {
		t.Fatalf("config changed after rejected patch: %.0f", got)
	}
}
