package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taoyao-code/panel-relay/internal/journal"
	"github.com/taoyao-code/panel-relay/internal/relay"
)

// stubRelay 可编程的桥接器替身
type stubRelay struct {
	snap     relay.Snapshot
	powerErr error
	lastOn   bool
	lastSrc  string
	toggled  bool
}

func (s *stubRelay) Snapshot() relay.Snapshot { return s.snap }

func (s *stubRelay) SendPower(on bool, source string) error {
	if s.powerErr != nil {
		return s.powerErr
	}
	s.lastOn, s.lastSrc = on, source
	return nil
}

func (s *stubRelay) TogglePower(source string) (bool, error) {
	if s.powerErr != nil {
		return false, s.powerErr
	}
	s.toggled = true
	s.lastOn, s.lastSrc = !s.lastOn, source
	return s.lastOn, nil
}

// stubStore 固定返回的日志查询替身
type stubStore struct {
	sessions []journal.LinkSession
	events   []journal.PowerEvent
	limit    int
}

func (s *stubStore) RecentSessions(ctx context.Context, limit int) ([]journal.LinkSession, error) {
	s.limit = limit
	return s.sessions, nil
}

func (s *stubStore) RecentPowerEvents(ctx context.Context, limit int) ([]journal.PowerEvent, error) {
	s.limit = limit
	return s.events, nil
}

type stubConfig struct{}

func (stubConfig) Dump() ([]byte, error) { return []byte("app:\n  name: panel-relay\n"), nil }

func newTestRouter(t *testing.T, br Relay, store Store) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewHandler(br, stubConfig{}, store, zap.NewNop())
	RegisterRoutes(r, handler, zap.NewNop())
	return r
}

func doJSON(r *gin.Engine, method, path string, body []byte) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rr, req)
	return rr
}

func TestStatusEndpoint(t *testing.T) {
	now := time.Now()
	br := &stubRelay{snap: relay.Snapshot{
		LinkUp:    true,
		SessionID: "abc",
		PeerAddr:  "10.0.0.2:51000",
		StartedAt: &now,
		PowerOn:   true,
	}}
	r := newTestRouter(t, br, nil)

	rr := doJSON(r, http.MethodGet, "/api/v1/status", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var got relay.Snapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.True(t, got.LinkUp)
	assert.Equal(t, "abc", got.SessionID)
	assert.True(t, got.PowerOn)
}

func TestConfigEndpoint(t *testing.T) {
	r := newTestRouter(t, &stubRelay{}, nil)

	rr := doJSON(r, http.MethodGet, "/api/v1/config", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "yaml")
	assert.Contains(t, rr.Body.String(), "panel-relay")
}

func TestPowerEndpoint(t *testing.T) {
	t.Run("显式设置", func(t *testing.T) {
		br := &stubRelay{}
		r := newTestRouter(t, br, nil)

		rr := doJSON(r, http.MethodPost, "/api/v1/power", []byte(`{"on":true}`))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.True(t, br.lastOn)
		assert.Equal(t, "api", br.lastSrc)
	})

	t.Run("切换", func(t *testing.T) {
		br := &stubRelay{}
		r := newTestRouter(t, br, nil)

		rr := doJSON(r, http.MethodPost, "/api/v1/power", []byte(`{"toggle":true}`))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.True(t, br.toggled)

		var resp map[string]bool
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.True(t, resp["power_on"])
	})

	t.Run("无链路返回409", func(t *testing.T) {
		br := &stubRelay{powerErr: relay.ErrNoLink}
		r := newTestRouter(t, br, nil)

		rr := doJSON(r, http.MethodPost, "/api/v1/power", []byte(`{"on":false}`))
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("空请求返回400", func(t *testing.T) {
		r := newTestRouter(t, &stubRelay{}, nil)

		rr := doJSON(r, http.MethodPost, "/api/v1/power", []byte(`{}`))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestSessionsEndpoint(t *testing.T) {
	store := &stubStore{sessions: []journal.LinkSession{
		{SessionID: "s1", PeerAddr: "10.0.0.2:51000", StartedAt: time.Now()},
	}}
	r := newTestRouter(t, &stubRelay{}, store)

	rr := doJSON(r, http.MethodGet, "/api/v1/sessions?limit=5", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 5, store.limit)
	assert.Contains(t, rr.Body.String(), "s1")
}

func TestPowerEventsEndpoint(t *testing.T) {
	store := &stubStore{events: []journal.PowerEvent{
		{Source: "gpio", PowerOn: true, OccurredAt: time.Now()},
	}}
	r := newTestRouter(t, &stubRelay{}, store)

	rr := doJSON(r, http.MethodGet, "/api/v1/power/events", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 20, store.limit)
	assert.Contains(t, rr.Body.String(), "gpio")
}

func TestStoreRoutesHiddenWithoutJournal(t *testing.T) {
	r := newTestRouter(t, &stubRelay{}, nil)

	rr := doJSON(r, http.MethodGet, "/api/v1/sessions", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
