package service

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"battle-tracker/internal/api"
	"battle-tracker/internal/config"
	"battle-tracker/internal/engine"
	"battle-tracker/internal/events"
	"battle-tracker/internal/push"
	"battle-tracker/internal/repository"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const snapshotBody = `{
	"success": true,
	"data": {
		"BattleStats": {
			"arena1": {
				"startTime": 1700000000000,
				"duration": 300,
				"win": 1,
				"mapName": "Malinovka",
				"players": {
					"p1": {"name": "Alice", "damage": 1000, "kills": 2, "points": 1600, "vehicle": "T-34"}
				}
			}
		},
		"PlayerInfo": {"p1": "Alice"}
	}
}`

type fixture struct {
	svc  *TrackerService
	eng  *engine.Engine
	repo *repository.StateRepository
}

func setup(t *testing.T, handler http.HandlerFunc) *fixture {
	t.Helper()

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// A second pooled connection would see a separate empty in-memory db.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(`CREATE TABLE tracker_state (
		id TEXT PRIMARY KEY,
		access_key TEXT NOT NULL,
		blob TEXT NOT NULL,
		saved_at TIMESTAMP NOT NULL
	)`)
	require.NoError(t, err)

	cfg := &config.Config{
		AccessKey:     "key1",
		ServerBaseURL: ts.URL,
		DBPath:        ":memory:",
		PollInterval:  time.Hour,
		DebounceDelay: 10 * time.Millisecond,
	}

	logger := zerolog.Nop()
	eng := engine.New(events.NewBus(), logger)
	repo := repository.NewStateRepository(db, logger)
	svc := NewTrackerService(
		api.NewStatsClient(cfg),
		push.NewListener(cfg, logger),
		eng,
		repo,
		cfg,
		logger,
	)
	return &fixture{svc: svc, eng: eng, repo: repo}
}

func snapshotHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key1", r.Header.Get("X-API-Key"))
		switch r.Method {
		case http.MethodGet:
			w.Write([]byte(snapshotBody))
		case http.MethodDelete:
			w.Write([]byte(`{"success": true}`))
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}
}

func TestLoadFromServerMergesAndPersists(t *testing.T) {
	f := setup(t, snapshotHandler(t))
	ctx := context.Background()

	require.NoError(t, f.svc.LoadFromServer(ctx))

	battles := f.eng.Battles()
	require.Len(t, battles, 1)
	assert.Equal(t, "Malinovka", battles[0].MapName)
	assert.Equal(t, "Alice", battles[0].Players["p1"].Name)

	persisted, err := f.repo.Load(ctx, "key1")
	require.NoError(t, err)
	require.NotNil(t, persisted)
	assert.Len(t, persisted.Battles, 1)
}

func TestRepeatedLoadIsIdempotent(t *testing.T) {
	f := setup(t, snapshotHandler(t))
	ctx := context.Background()

	require.NoError(t, f.svc.LoadFromServer(ctx))
	first := f.eng.Snapshot()

	require.NoError(t, f.svc.LoadFromServer(ctx))
	assert.Equal(t, first, f.eng.Snapshot())
}

func TestTransportFailureLeavesModelUnchanged(t *testing.T) {
	f := setup(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	err := f.svc.LoadFromServer(context.Background())
	require.Error(t, err)
	assert.Empty(t, f.eng.Battles())
}

func TestClearServerDataResetsEverything(t *testing.T) {
	f := setup(t, snapshotHandler(t))
	ctx := context.Background()

	require.NoError(t, f.svc.LoadFromServer(ctx))
	require.NoError(t, f.svc.ClearServerData(ctx))

	assert.Empty(t, f.eng.Battles())
	assert.Zero(t, f.eng.TeamTotals().Battles)

	persisted, err := f.repo.Load(ctx, "key1")
	require.NoError(t, err)
	assert.Nil(t, persisted, "persisted blob must be cleared with the model")
}

func TestRestoreSeedsEngineFromBlob(t *testing.T) {
	f := setup(t, snapshotHandler(t))
	ctx := context.Background()

	require.NoError(t, f.svc.LoadFromServer(ctx))

	// A fresh engine restored from the same repository sees the same model.
	logger := zerolog.Nop()
	eng2 := engine.New(events.NewBus(), logger)
	cfg := &config.Config{AccessKey: "key1", DebounceDelay: time.Millisecond}
	svc2 := NewTrackerService(nil, push.NewListener(cfg, logger), eng2, f.repo, cfg, logger)
	svc2.Restore(ctx)

	assert.Equal(t, f.eng.Battles(), eng2.Battles())
}

func TestRequestRefreshCoalescesBursts(t *testing.T) {
	var pulls int32
	f := setup(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&pulls, 1)
		w.Write([]byte(snapshotBody))
	})

	for i := 0; i < 5; i++ {
		f.svc.RequestRefresh()
	}

	require.Eventually(t, func() bool {
		return len(f.eng.Battles()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&pulls), "a burst collapses into one pull")
}

func TestHandlePushMergesDelta(t *testing.T) {
	f := setup(t, snapshotHandler(t))
	ctx := context.Background()
	require.NoError(t, f.svc.LoadFromServer(ctx))

	delta := []byte(`{
		"BattleStats": {
			"arena2": {"startTime": 1700000100000, "duration": 0, "win": -1, "mapName": "Ensk", "players": {}}
		}
	}`)
	f.svc.handlePush(delta)

	assert.Len(t, f.eng.Battles(), 2, "push delta must merge additively")
}
