package stats

import (
	"time"

	"battle-tracker/internal/constants"
	"battle-tracker/internal/domain"
)

// Filters narrows a battle list. Zero-valued fields are no-ops; active fields
// combine as a logical AND, so application order never changes the result.
type Filters struct {
	Map     string
	Vehicle string
	Result  string
	Date    string // YYYY-MM-DD, matched against the battle's local day
	Player  string
}

var resultCodes = map[string]int{
	"victory":  constants.ResultVictory,
	"defeat":   constants.ResultDefeat,
	"draw":     constants.ResultDraw,
	"inBattle": constants.ResultInBattle,
}

// BattleList projects the battles map into a slice ordered by ascending
// arena id.
func BattleList(battles map[string]domain.Battle) []domain.BattleListItem {
	items := make([]domain.BattleListItem, 0, len(battles))
	for _, arenaID := range SortedArenaIDs(battles) {
		items = append(items, domain.BattleListItem{ArenaID: arenaID, Battle: battles[arenaID]})
	}
	return items
}

// Apply runs each active filter in sequence, each narrowing the previous
// result.
func (f Filters) Apply(battles []domain.BattleListItem) []domain.BattleListItem {
	out := battles

	if f.Map != "" {
		out = filterBattles(out, func(b domain.BattleListItem) bool {
			return b.MapName == f.Map
		})
	}
	if f.Vehicle != "" {
		out = filterBattles(out, func(b domain.BattleListItem) bool {
			return anyPlayer(b.Battle, func(p domain.PlayerContribution) bool {
				return p.Vehicle == f.Vehicle
			})
		})
	}
	if f.Result != "" {
		code, ok := resultCodes[f.Result]
		if ok {
			out = filterBattles(out, func(b domain.BattleListItem) bool {
				return b.Win == code
			})
		} else {
			out = nil
		}
	}
	if f.Date != "" {
		if day, err := time.ParseInLocation("2006-01-02", f.Date, time.Local); err == nil {
			out = filterBattles(out, func(b domain.BattleListItem) bool {
				if b.StartTime == 0 {
					return false
				}
				started := time.UnixMilli(b.StartTime).In(time.Local)
				y, m, d := started.Date()
				return time.Date(y, m, d, 0, 0, 0, 0, time.Local).Equal(day)
			})
		} else {
			out = nil
		}
	}
	if f.Player != "" {
		out = filterBattles(out, func(b domain.BattleListItem) bool {
			return anyPlayer(b.Battle, func(p domain.PlayerContribution) bool {
				return p.Name == f.Player
			})
		})
	}

	if out == nil {
		out = []domain.BattleListItem{}
	}
	return out
}

func filterBattles(in []domain.BattleListItem, keep func(domain.BattleListItem) bool) []domain.BattleListItem {
	out := make([]domain.BattleListItem, 0, len(in))
	for _, b := range in {
		if keep(b) {
			out = append(out, b)
		}
	}
	return out
}

func anyPlayer(b domain.Battle, match func(domain.PlayerContribution) bool) bool {
	for _, p := range b.Players {
		if match(p) {
			return true
		}
	}
	return false
}
