// Package engine owns the canonical model and applies every mutation to it.
// Incoming snapshots and deltas go through the monotonic merge rules, so the
// final state converges regardless of arrival order; only Reset ever makes
// totals decrease.
package engine

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"battle-tracker/internal/cache"
	"battle-tracker/internal/constants"
	"battle-tracker/internal/domain"
	"battle-tracker/internal/events"
	"battle-tracker/internal/stats"

	"github.com/rs/zerolog"
)

type Engine struct {
	mu     sync.Mutex
	model  *domain.Model
	cache  *cache.Cache
	bus    *events.Bus
	logger zerolog.Logger
}

func New(bus *events.Bus, logger zerolog.Logger) *Engine {
	return &Engine{
		model:  domain.NewModel(),
		cache:  cache.New(),
		bus:    bus,
		logger: logger,
	}
}

// Restore seeds the model from a previously persisted state without emitting
// change notifications.
func (e *Engine) Restore(m *domain.Model) {
	if m == nil {
		return
	}
	e.mu.Lock()
	e.model = m.Clone()
	if e.model.Battles == nil {
		e.model.Battles = make(map[string]domain.Battle)
	}
	if e.model.Players == nil {
		e.model.Players = make(map[string]string)
	}
	e.mu.Unlock()
	e.cache.InvalidateAll()
}

// Merge applies a normalized fragment to the model. It reports whether
// anything changed; on change the aggregate cache is invalidated and a
// statsUpdated notification goes out.
func (e *Engine) Merge(fragment *domain.Model) bool {
	if fragment == nil {
		return false
	}

	e.mu.Lock()
	directoryChanged := mergeDirectory(e.model.Players, fragment.Players)
	battlesChanged := false
	for arenaID, incoming := range fragment.Battles {
		if mergeBattle(e.model.Battles, arenaID, incoming) {
			battlesChanged = true
		}
	}
	battleCount := len(e.model.Battles)
	e.mu.Unlock()

	// Aggregates depend on battles only; a directory-only change leaves every
	// cached value valid.
	if battlesChanged {
		e.cache.InvalidateAll()
	}

	changed := battlesChanged || directoryChanged
	if changed {
		e.logger.Debug().
			Int("incoming_battles", len(fragment.Battles)).
			Int("total_battles", battleCount).
			Msg("merge applied")
		e.bus.Emit(events.StatsUpdated, nil)
	}
	return changed
}

// mergeBattle folds one incoming battle into the battles map. Every rule is
// monotonic: numeric fields keep the maximum, a known result is never
// replaced by "in progress", placeholders never overwrite real values.
func mergeBattle(battles map[string]domain.Battle, arenaID string, incoming domain.Battle) bool {
	existing, ok := battles[arenaID]
	if !ok {
		battles[arenaID] = incoming.Clone()
		return true
	}

	changed := false
	merged := existing.Clone()

	// Keep the earliest known start time.
	if incoming.StartTime > 0 && (merged.StartTime == 0 || incoming.StartTime < merged.StartTime) {
		merged.StartTime = incoming.StartTime
		changed = true
	}
	if incoming.Duration > merged.Duration {
		merged.Duration = incoming.Duration
		changed = true
	}
	if incoming.Win != constants.ResultInBattle && incoming.Win != merged.Win {
		merged.Win = incoming.Win
		changed = true
	}
	if merged.MapName == "" || merged.MapName == constants.UnknownMap {
		if incoming.MapName != "" && incoming.MapName != merged.MapName {
			merged.MapName = incoming.MapName
			changed = true
		}
	}

	for pid, p := range incoming.Players {
		if mergePlayer(merged.Players, pid, p) {
			changed = true
		}
	}

	if changed {
		battles[arenaID] = merged
	}
	return changed
}

func mergePlayer(players map[string]domain.PlayerContribution, pid string, incoming domain.PlayerContribution) bool {
	existing, ok := players[pid]
	if !ok {
		players[pid] = incoming
		return true
	}

	changed := false
	if incoming.Damage > existing.Damage {
		existing.Damage = incoming.Damage
		changed = true
	}
	if incoming.Kills > existing.Kills {
		existing.Kills = incoming.Kills
		changed = true
	}
	if incoming.Points > existing.Points {
		existing.Points = incoming.Points
		changed = true
	}
	if existing.Name == "" || existing.Name == constants.UnknownPlayer {
		if incoming.Name != "" && incoming.Name != existing.Name {
			existing.Name = incoming.Name
			changed = true
		}
	}
	if existing.Vehicle == "" || existing.Vehicle == constants.UnknownVehicle {
		if incoming.Vehicle != "" && incoming.Vehicle != existing.Vehicle {
			existing.Vehicle = incoming.Vehicle
			changed = true
		}
	}

	if changed {
		players[pid] = existing
	}
	return changed
}

// mergeDirectory unions incoming directory entries. An existing real name is
// kept; placeholder-equivalent values may be replaced.
func mergeDirectory(directory map[string]string, incoming map[string]string) bool {
	changed := false
	for id, name := range incoming {
		if name == "" {
			continue
		}
		existing, ok := directory[id]
		if ok && existing != "" && existing != constants.UnknownPlayer {
			continue
		}
		if existing == name {
			continue
		}
		directory[id] = name
		changed = true
	}
	return changed
}

// Reset clears the model. It is the only path on which battle counts drop to
// zero; merges never delete.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.model = domain.NewModel()
	e.mu.Unlock()

	e.cache.InvalidateAll()
	e.logger.Info().Msg("model reset")
	e.bus.Emit(events.HistoryCleared, nil)
}

// DeleteBattle removes a single battle. Reports whether it was present.
func (e *Engine) DeleteBattle(arenaID string) bool {
	e.mu.Lock()
	_, ok := e.model.Battles[arenaID]
	if ok {
		delete(e.model.Battles, arenaID)
		if e.model.CurrentArenaID == arenaID {
			e.model.CurrentArenaID = ""
		}
	}
	e.mu.Unlock()

	if ok {
		e.cache.InvalidateBattle(arenaID)
		e.logger.Info().Str("arena_id", arenaID).Msg("battle deleted")
		e.bus.Emit(events.BattleDeleted, arenaID)
	}
	return ok
}

// Snapshot returns a deep copy of the model for persistence.
func (e *Engine) Snapshot() *domain.Model {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.model.Clone()
}

// version derives the cache token spanning all battles: the battle count plus
// the sorted arena ids.
func (e *Engine) version() string {
	ids := stats.SortedArenaIDs(e.model.Battles)
	return fmt.Sprintf("%d:%s", len(ids), strings.Join(ids, ","))
}

func (e *Engine) countVersion() string {
	return fmt.Sprintf("%d", len(e.model.Battles))
}

// TeamTotals returns the cached team aggregate, computing it on a miss.
func (e *Engine) TeamTotals() domain.TeamTotals {
	e.mu.Lock()
	defer e.mu.Unlock()

	v := e.cache.GetOrCompute(cache.TeamKey(e.countVersion()), func() any {
		return stats.TeamTotals(e.model.Battles)
	})
	return v.(domain.TeamTotals)
}

// PlayerTotals returns the cached per-player aggregate.
func (e *Engine) PlayerTotals(playerID string) domain.PlayerTotals {
	e.mu.Lock()
	defer e.mu.Unlock()

	v := e.cache.GetOrCompute(cache.PlayerKey(playerID, e.countVersion()), func() any {
		return stats.PlayerTotals(e.model.Battles, playerID)
	})
	return v.(domain.PlayerTotals)
}

// BattleTotals returns the cached per-battle aggregate; zero totals when the
// arena is unknown.
func (e *Engine) BattleTotals(arenaID string) domain.BattleTotals {
	e.mu.Lock()
	defer e.mu.Unlock()

	battle, ok := e.model.Battles[arenaID]
	if !ok {
		return domain.BattleTotals{}
	}
	v := e.cache.GetOrCompute(cache.BattleKey(arenaID, e.countVersion()), func() any {
		return stats.BattleTotals(battle)
	})
	return v.(domain.BattleTotals)
}

// BestWorst returns the cached best/worst battle selection.
func (e *Engine) BestWorst() domain.BestWorst {
	e.mu.Lock()
	defer e.mu.Unlock()

	v := e.cache.GetOrCompute(cache.BestWorstKey(e.version()), func() any {
		return stats.BestWorst(e.model.Battles)
	})
	return v.(domain.BestWorst)
}

// CurrentBattleID reports the in-progress battle with the latest start time.
func (e *Engine) CurrentBattleID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return stats.CurrentBattleID(e.model.Battles)
}

// Battles lists all battles in ascending arena-id order.
func (e *Engine) Battles() []domain.BattleListItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	items := stats.BattleList(e.model.Battles)
	for i := range items {
		items[i].Battle = items[i].Battle.Clone()
	}
	return items
}

// Directory returns a copy of the player directory.
func (e *Engine) Directory() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]string, len(e.model.Players))
	for id, name := range e.model.Players {
		out[id] = name
	}
	return out
}

// PlayerIDs lists numeric directory keys in sorted order.
func (e *Engine) PlayerIDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.model.Players))
	for id := range e.model.Players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ApplyFilters projects the battle list through a filter set and emits
// filtersApplied with the narrowed list.
func (e *Engine) ApplyFilters(f stats.Filters) []domain.BattleListItem {
	filtered := f.Apply(e.Battles())
	e.bus.Emit(events.FiltersApplied, filtered)
	return filtered
}
