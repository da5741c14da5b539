// Package service wires the transport gateways to the engine and the
// persistence gateway. Every inbound payload flows normalize → merge →
// invalidate → persist; persistence failures are logged and swallowed so the
// in-memory model keeps serving.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"battle-tracker/internal/api"
	"battle-tracker/internal/config"
	"battle-tracker/internal/constants"
	"battle-tracker/internal/engine"
	"battle-tracker/internal/normalize"
	"battle-tracker/internal/push"
	"battle-tracker/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type TrackerService struct {
	client     *api.StatsClient
	listener   *push.Listener
	engine     *engine.Engine
	normalizer *normalize.Normalizer
	stateRepo  *repository.StateRepository
	cfg        *config.Config
	logger     zerolog.Logger

	debounceMu    sync.Mutex
	debounceTimer *time.Timer
}

func NewTrackerService(
	client *api.StatsClient,
	listener *push.Listener,
	eng *engine.Engine,
	stateRepo *repository.StateRepository,
	cfg *config.Config,
	logger zerolog.Logger,
) *TrackerService {
	s := &TrackerService{
		client:     client,
		listener:   listener,
		engine:     eng,
		normalizer: normalize.New(),
		stateRepo:  stateRepo,
		cfg:        cfg,
		logger:     logger,
	}
	listener.SetHandler(s.handlePush)
	listener.SetNotify(s.RequestRefresh)
	return s
}

// Restore seeds the engine from the persisted blob. A load failure leaves the
// engine empty and operating purely in memory.
func (s *TrackerService) Restore(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	model, err := s.stateRepo.Load(ctx, s.cfg.AccessKey)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to load persisted state, starting empty")
		return
	}
	if model == nil {
		s.logger.Debug().Msg("no persisted state found")
		return
	}
	s.engine.Restore(model)
	s.logger.Info().Int("battles", len(model.Battles)).Msg("state restored")
}

// LoadFromServer pulls a full snapshot and merges it. Transport failures
// propagate to the caller with the model unchanged.
func (s *TrackerService) LoadFromServer(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	raw, err := s.client.GetData(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch snapshot: %w", err)
	}
	return s.applyPayload(raw)
}

// RequestRefresh schedules a debounced pull so that a burst of change
// notifications collapses into one outbound request.
func (s *TrackerService) RequestRefresh() {
	s.debounceMu.Lock()
	defer s.debounceMu.Unlock()

	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
	}
	s.debounceTimer = time.AfterFunc(s.cfg.DebounceDelay, func() {
		if err := s.LoadFromServer(context.Background()); err != nil {
			s.logger.Warn().Err(err).Msg("debounced refresh failed")
		}
	})
}

// handlePush merges a raw payload delivered over the push channel.
func (s *TrackerService) handlePush(raw []byte) {
	if err := s.applyPayload(raw); err != nil {
		s.logger.Warn().Err(err).Msg("failed to apply push payload")
	}
}

// applyPayload is the single ingest path: normalize, merge, persist on
// change.
func (s *TrackerService) applyPayload(raw []byte) error {
	payload, err := s.normalizer.Parse(raw)
	if err != nil {
		return fmt.Errorf("failed to parse payload: %w", err)
	}

	fragment := s.normalizer.Fragment(payload, s.engine.Directory())
	if !s.engine.Merge(fragment) {
		s.logger.Debug().Msg("payload produced no changes")
		return nil
	}

	s.persist()
	return nil
}

// persist snapshots the model to the state repository. Failures never
// propagate: the model keeps operating in memory for the session.
func (s *TrackerService) persist() {
	ctx, cancel := context.WithTimeout(context.Background(), constants.DatabaseTimeout)
	defer cancel()

	if err := s.stateRepo.Save(ctx, s.cfg.AccessKey, s.engine.Snapshot()); err != nil {
		s.logger.Warn().Err(err).Msg("failed to persist state")
	}
}

// RefreshLocalData drops local state and rebuilds it from a fresh snapshot.
func (s *TrackerService) RefreshLocalData(ctx context.Context) error {
	s.engine.Reset()
	if err := s.LoadFromServer(ctx); err != nil {
		return err
	}
	s.persist()
	return nil
}

// ClearServerData clears the server-side data, the local model, and the
// persisted blob together.
func (s *TrackerService) ClearServerData(ctx context.Context) error {
	reqCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	if err := s.client.DeleteData(reqCtx); err != nil {
		return fmt.Errorf("failed to clear server data: %w", err)
	}
	s.Reset(ctx)
	return nil
}

// Reset clears the local model and the persisted blob. This is the only path
// on which totals decrease.
func (s *TrackerService) Reset(ctx context.Context) {
	s.engine.Reset()

	dbCtx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	if err := s.stateRepo.Clear(dbCtx, s.cfg.AccessKey); err != nil {
		s.logger.Warn().Err(err).Msg("failed to clear persisted state")
	}
}

// DeleteBattle removes a battle on the server and locally.
func (s *TrackerService) DeleteBattle(ctx context.Context, arenaID string) error {
	reqCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	if err := s.client.DeleteBattle(reqCtx, arenaID); err != nil {
		return fmt.Errorf("failed to delete battle %s: %w", arenaID, err)
	}
	if s.engine.DeleteBattle(arenaID) {
		s.persist()
	}
	return nil
}

// Run drives the periodic pull and the push listener until ctx is cancelled.
func (s *TrackerService) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.listener.Run(gCtx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(s.cfg.PollInterval)
		defer ticker.Stop()

		if err := s.LoadFromServer(gCtx); err != nil {
			s.logger.Warn().Err(err).Msg("initial snapshot pull failed")
		}
		for {
			select {
			case <-gCtx.Done():
				return gCtx.Err()
			case <-ticker.C:
				if err := s.LoadFromServer(gCtx); err != nil {
					s.logger.Warn().Err(err).Msg("snapshot pull failed")
				}
			}
		}
	})

	return g.Wait()
}
