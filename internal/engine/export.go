package engine

import (
	"encoding/json"
	"fmt"

	"battle-tracker/internal/domain"
	"battle-tracker/internal/events"
)

// Export serializes all battles as an indented, human-readable JSON blob.
func (e *Engine) Export() ([]byte, error) {
	e.mu.Lock()
	battles := make(map[string]domain.Battle, len(e.model.Battles))
	for arenaID, b := range e.model.Battles {
		battles[arenaID] = b.Clone()
	}
	e.mu.Unlock()

	out, err := json.MarshalIndent(battles, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export battles: %w", err)
	}
	return out, nil
}

// importBattle is the strict shape Import expects. Pointers distinguish a
// missing field from a zero value.
type importBattle struct {
	StartTime *int64                  `json:"startTime"`
	Duration  *int                    `json:"duration"`
	Win       *int                    `json:"win"`
	MapName   *string                 `json:"mapName"`
	Players   map[string]importPlayer `json:"players"`
}

type importPlayer struct {
	Name    *string  `json:"name"`
	Damage  *float64 `json:"damage"`
	Kills   *float64 `json:"kills"`
	Points  *float64 `json:"points"`
	Vehicle *string  `json:"vehicle"`
}

// Import validates a candidate battles payload and merges it additively.
// Validation is all-or-nothing: one bad record rejects the whole payload and
// the model is left untouched.
func (e *Engine) Import(raw []byte) error {
	var candidate map[string]importBattle
	if err := json.Unmarshal(raw, &candidate); err != nil {
		return fmt.Errorf("import: payload is not a battle map: %w", err)
	}

	fragment := domain.NewModel()
	for arenaID, b := range candidate {
		battle, err := validateImportBattle(b)
		if err != nil {
			return fmt.Errorf("import: battle %q: %w", arenaID, err)
		}
		fragment.Battles[arenaID] = battle
	}

	e.Merge(fragment)
	e.logger.Info().Int("battles", len(fragment.Battles)).Msg("data imported")
	e.bus.Emit(events.DataImported, len(fragment.Battles))
	return nil
}

func validateImportBattle(b importBattle) (domain.Battle, error) {
	switch {
	case b.StartTime == nil:
		return domain.Battle{}, fmt.Errorf("missing required field startTime")
	case b.Duration == nil:
		return domain.Battle{}, fmt.Errorf("missing required field duration")
	case b.Win == nil:
		return domain.Battle{}, fmt.Errorf("missing required field win")
	case b.MapName == nil:
		return domain.Battle{}, fmt.Errorf("missing required field mapName")
	case b.Players == nil:
		return domain.Battle{}, fmt.Errorf("missing required field players")
	}

	players := make(map[string]domain.PlayerContribution, len(b.Players))
	for pid, p := range b.Players {
		contribution, err := validateImportPlayer(p)
		if err != nil {
			return domain.Battle{}, fmt.Errorf("player %q: %w", pid, err)
		}
		players[pid] = contribution
	}

	return domain.Battle{
		StartTime: *b.StartTime,
		Duration:  *b.Duration,
		Win:       *b.Win,
		MapName:   *b.MapName,
		Players:   players,
	}, nil
}

func validateImportPlayer(p importPlayer) (domain.PlayerContribution, error) {
	switch {
	case p.Name == nil:
		return domain.PlayerContribution{}, fmt.Errorf("missing required field name")
	case p.Damage == nil:
		return domain.PlayerContribution{}, fmt.Errorf("missing required field damage")
	case p.Kills == nil:
		return domain.PlayerContribution{}, fmt.Errorf("missing required field kills")
	case p.Points == nil:
		return domain.PlayerContribution{}, fmt.Errorf("missing required field points")
	case p.Vehicle == nil:
		return domain.PlayerContribution{}, fmt.Errorf("missing required field vehicle")
	}

	return domain.PlayerContribution{
		Name:    *p.Name,
		Damage:  int(*p.Damage),
		Kills:   int(*p.Kills),
		Points:  int(*p.Points),
		Vehicle: *p.Vehicle,
	}, nil
}
