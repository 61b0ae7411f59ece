package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cagefight/config"
	"cagefight/database"
	"cagefight/fight"
	"cagefight/scheduler"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	srv   *Server
	sched *scheduler.Scheduler
	repo  *database.Repository
}

func newTestServer(t *testing.T, tick time.Duration) *testServer {
	t.Helper()
	db, err := database.Open(":memory:", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		ServerBaseURL:    "http://localhost:8080",
		SessionSecret:    "test-secret-test-secret-test-secret",
		Timezone:         "UTC",
		TickInterval:     tick,
		SimSpeed:         1000,
		ScheduleInterval: time.Hour,
		CardSize:         2,
		CardStartHour:    12,
		BoutSpacing:      30 * time.Minute,
		BalanceWorkers:   2,
	}
	repo := database.NewRepository(db, zerolog.Nop())
	engine := fight.NewDecisionEngine(fight.MustLoadCatalog())
	broadcaster := NewMatchBroadcaster(zerolog.Nop())
	sched, err := scheduler.NewScheduler(cfg, repo, engine, broadcaster, nil, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(sched.Stop)

	return &testServer{
		srv:   NewServer(cfg, repo, sched, engine, broadcaster, zerolog.Nop()),
		sched: sched,
		repo:  repo,
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) createFighter(t *testing.T, name string, attrs fight.Attributes) fighterView {
	t.Helper()
	rec := ts.do(t, "POST", "/api/fighters", map[string]interface{}{
		"name":       name,
		"attributes": attrs,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var f fighterView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &f))
	return f
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestFighterEndpoints(t *testing.T) {
	ts := newTestServer(t, time.Millisecond)

	f := ts.createFighter(t, "Southpaw", fight.Attributes{Strength: 150, Technique: 70, Speed: 65})
	assert.NotEmpty(t, f.ID)
	assert.Equal(t, 100, f.Strength, "attributes are clamped")
	assert.Equal(t, "auto", f.Strategy)
	assert.Equal(t, "0-0-0", f.RecordLine)
	assert.Equal(t, "lightweight", f.WeightClass)
	assert.Equal(t, fight.DefaultPopularity, f.Popularity)
	assert.True(t, f.Ready)

	rec := ts.do(t, "GET", "/api/fighters/"+f.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Southpaw", decode[fighterView](t, rec).Name)

	rec = ts.do(t, "GET", "/api/fighters", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]fighterView](t, rec), 1)

	assert.Equal(t, http.StatusNotFound, ts.do(t, "GET", "/api/fighters/nope", nil).Code)
	assert.Equal(t, http.StatusConflict, ts.do(t, "POST", "/api/fighters", map[string]string{"name": "Southpaw"}).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, "POST", "/api/fighters", map[string]string{"name": "X", "strategy": "chaos"}).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, "POST", "/api/fighters", map[string]string{"name": "  "}).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, "POST", "/api/fighters", map[string]string{"name": "Y", "bogus": "1"}).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, "POST", "/api/fighters", map[string]string{"name": "Z", "weight_class": "catchweight"}).Code)

	rec = ts.do(t, "POST", "/api/fighters", map[string]string{"name": "Big Man", "weight_class": "Heavyweight"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "heavyweight", decode[fighterView](t, rec).WeightClass)
}

func TestSimulateAndFollowMatch(t *testing.T) {
	ts := newTestServer(t, time.Millisecond)
	red := ts.createFighter(t, "Red", fight.Attributes{Strength: 80, Technique: 70, Speed: 60, Stamina: 60, Defense: 50, Wrestling: 40, Grappling: 30})
	blue := ts.createFighter(t, "Blue", fight.Attributes{Strength: 50, Technique: 50, Speed: 50, Stamina: 70, Defense: 60, Wrestling: 85, Grappling: 90})

	rec := ts.do(t, "POST", "/api/matches/simulate", map[string]interface{}{
		"red_id":     red.ID,
		"blue_id":    blue.ID,
		"event_type": "main_event",
		"seed":       5,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sim := decode[matchView](t, rec)
	require.NotNil(t, sim.Match)
	require.NotNil(t, sim.Result)
	assert.Equal(t, fight.MainEvent, sim.Result.EventType)
	assert.NotEmpty(t, sim.Summary)

	rec = ts.do(t, "GET", "/api/matches/"+sim.Match.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[matchView](t, rec)
	require.NotNil(t, got.Result)
	assert.Equal(t, sim.Result.Method, got.Result.Method)
	assert.Equal(t, sim.Result.WinnerID, got.Result.WinnerID)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies, "viewing a match sets the session cookie")
	rec = ts.do(t, "GET", "/api/following", nil, cookies...)
	require.Equal(t, http.StatusOK, rec.Code)
	following := decode[map[string]interface{}](t, rec)
	assert.Equal(t, sim.Match.ID, following["match_id"])
	assert.Equal(t, false, following["live"])

	rec = ts.do(t, "GET", "/api/matches/recent?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]database.Match](t, rec), 1)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, "GET", "/api/matches/recent?limit=zero", nil).Code)

	assert.Equal(t, http.StatusNotFound, ts.do(t, "GET", "/api/matches/missing", nil).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, "POST", "/api/matches/simulate", map[string]string{"red_id": red.ID, "blue_id": red.ID}).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, "POST", "/api/matches/simulate", map[string]string{"red_id": red.ID, "blue_id": "ghost"}).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, "POST", "/api/matches/simulate", map[string]string{"red_id": red.ID, "blue_id": blue.ID, "event_type": "exhibition"}).Code)
}

func TestCatalogAndBalance(t *testing.T) {
	ts := newTestServer(t, time.Millisecond)

	rec := ts.do(t, "GET", "/api/catalog", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	actions := decode[[]map[string]interface{}](t, rec)
	assert.NotEmpty(t, actions)
	assert.Contains(t, actions[0], "category")

	red := ts.createFighter(t, "Red", fight.Attributes{Strength: 90, Technique: 80, Speed: 70})
	blue := ts.createFighter(t, "Blue", fight.Attributes{Wrestling: 90, Grappling: 90, Stamina: 70})

	rec = ts.do(t, "POST", "/api/balance", map[string]interface{}{"red_id": red.ID, "blue_id": blue.ID, "runs": 12, "seed": 3})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decode[map[string]interface{}](t, rec)
	assert.EqualValues(t, 12, report["runs"])
	assert.InDelta(t, 1.0, report["red_rate"].(float64)+report["blue_rate"].(float64)+report["draw_rate"].(float64), 1e-9)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, "POST", "/api/balance", map[string]interface{}{"red_id": red.ID, "blue_id": blue.ID, "runs": 0}).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, "POST", "/api/balance", map[string]interface{}{"red_id": red.ID, "blue_id": red.ID, "runs": 1}).Code)
}

func TestRequestIDHeader(t *testing.T) {
	ts := newTestServer(t, time.Millisecond)

	rec := ts.do(t, "GET", "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	req := httptest.NewRequest("GET", "/api/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

type wsMessage struct {
	Type        string             `json:"type"`
	Live        bool               `json:"live"`
	History     []fight.LiveAction `json:"history"`
	Action      *fight.LiveAction  `json:"action"`
	ViewerCount int                `json:"viewer_count"`
}

func TestLiveMatchStreamsOverWebsocket(t *testing.T) {
	// the ticker never fires during the test; Stop ends the bout
	ts := newTestServer(t, time.Hour)
	red := ts.createFighter(t, "Red", fight.Attributes{Strength: 70, Technique: 70, Speed: 70})
	blue := ts.createFighter(t, "Blue", fight.Attributes{Wrestling: 70, Grappling: 70, Stamina: 70})

	rec := ts.do(t, "POST", "/api/matches/live", map[string]interface{}{"red_id": red.ID, "blue_id": blue.ID, "seed": 9})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	started := decode[struct {
		Match     database.Match `json:"match"`
		WebSocket string         `json:"websocket"`
	}](t, rec)
	assert.Equal(t, database.StatusLive, started.Match.Status)

	rec = ts.do(t, "GET", "/api/matches/current", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	current := decode[[]liveMatchView](t, rec)
	require.Len(t, current, 1)
	assert.Equal(t, 1, current[0].Snapshot.Round)

	httpSrv := httptest.NewServer(ts.srv.Handler())
	defer httpSrv.Close()

	url := "ws" + strings.TrimPrefix(httpSrv.URL, "http") + started.WebSocket
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))

	var first wsMessage
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "state", first.Type)
	assert.True(t, first.Live)
	require.NotEmpty(t, first.History)
	assert.Equal(t, "round_start", first.History[0].Type)

	var count wsMessage
	require.NoError(t, conn.ReadJSON(&count))
	assert.Equal(t, "viewer_count", count.Type)
	assert.Equal(t, 1, count.ViewerCount)

	go ts.sched.Stop()

	var sawResult bool
	for {
		var msg wsMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == "action" && msg.Action != nil && msg.Action.Type == "result" {
			sawResult = true
		}
		if msg.Type == "closed" {
			break
		}
	}
	assert.True(t, sawResult)

	ts.sched.Stop()
	stored, err := ts.repo.GetMatch(context.Background(), started.Match.ID)
	require.NoError(t, err)
	assert.Equal(t, database.StatusNoContest, stored.Status)
}
