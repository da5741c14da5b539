// Package stats holds the pure aggregate and projection functions over the
// canonical model. Nothing here mutates its inputs; the engine layers caching
// on top.
package stats

import (
	"sort"

	"battle-tracker/internal/constants"
	"battle-tracker/internal/domain"
)

// SortedArenaIDs fixes the battle iteration order to ascending lexicographic
// arena id. Best/worst tie-breaking depends on this order being stable.
func SortedArenaIDs(battles map[string]domain.Battle) []string {
	ids := make([]string, 0, len(battles))
	for id := range battles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// TeamTotals sums every battle, in-progress ones included. The team win bonus
// counts once per victorious battle.
func TeamTotals(battles map[string]domain.Battle) domain.TeamTotals {
	var t domain.TeamTotals
	t.Battles = len(battles)

	for _, battle := range battles {
		if battle.Win == constants.ResultVictory {
			t.TeamPoints += constants.PointsPerTeamWin
			t.Wins++
		}
		for _, p := range battle.Players {
			t.TeamPoints += p.Points
			t.TeamDamage += p.Damage
			t.TeamKills += p.Kills
		}
	}
	return t
}

// BattleTotals sums one battle's player contributions plus the win bonus.
func BattleTotals(battle domain.Battle) domain.BattleTotals {
	var t domain.BattleTotals
	if battle.Win == constants.ResultVictory {
		t.BattlePoints = constants.PointsPerTeamWin
	}
	for _, p := range battle.Players {
		t.BattlePoints += p.Points
		t.BattleDamage += p.Damage
		t.BattleKills += p.Kills
	}
	return t
}

// PlayerTotals sums one player's contributions across all battles. Battles
// the player is absent from contribute zero.
func PlayerTotals(battles map[string]domain.Battle, playerID string) domain.PlayerTotals {
	var t domain.PlayerTotals
	for _, battle := range battles {
		p, ok := battle.Players[playerID]
		if !ok {
			continue
		}
		t.PlayerPoints += p.Points
		t.PlayerDamage += p.Damage
		t.PlayerKills += p.Kills
	}
	return t
}

// BattlePoints is the score used to rank battles against each other.
func BattlePoints(battle domain.Battle) int {
	points := 0
	if battle.Win == constants.ResultVictory {
		points = constants.PointsPerTeamWin
	}
	for _, p := range battle.Players {
		points += p.Points
	}
	return points
}

// BestWorst scans completed battles once, tracking the running minimum and
// maximum of battle points. Ties keep the first-encountered battle in
// ascending arena-id order. Both results are nil when nothing has finished.
func BestWorst(battles map[string]domain.Battle) domain.BestWorst {
	var result domain.BestWorst

	for _, arenaID := range SortedArenaIDs(battles) {
		battle := battles[arenaID]
		if battle.Win == constants.ResultInBattle {
			continue
		}
		points := BattlePoints(battle)

		if result.Best == nil || points > result.Best.Points {
			result.Best = &domain.RatedBattle{ArenaID: arenaID, Battle: battle, Points: points}
		}
		if result.Worst == nil || points < result.Worst.Points {
			result.Worst = &domain.RatedBattle{ArenaID: arenaID, Battle: battle, Points: points}
		}
	}
	return result
}

// CurrentBattleID picks the in-progress battle with the latest start time,
// or "" when every known battle has finished.
func CurrentBattleID(battles map[string]domain.Battle) string {
	currentID := ""
	var latest int64 = -1

	for _, arenaID := range SortedArenaIDs(battles) {
		battle := battles[arenaID]
		if battle.Duration == 0 && battle.StartTime > latest {
			latest = battle.StartTime
			currentID = arenaID
		}
	}
	return currentID
}
