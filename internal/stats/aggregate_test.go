package stats

import (
	"testing"

	"battle-tracker/internal/constants"
	"battle-tracker/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func battleWith(win int, points ...int) domain.Battle {
	players := make(map[string]domain.PlayerContribution, len(points))
	for i, p := range points {
		players[string(rune('a'+i))] = domain.PlayerContribution{
			Name:    "Player",
			Points:  p,
			Vehicle: "T-34",
		}
	}
	return domain.Battle{
		StartTime: 1700000000000,
		Duration:  300,
		Win:       win,
		MapName:   "Ensk",
		Players:   players,
	}
}

func TestTeamTotalsScenario(t *testing.T) {
	battles := map[string]domain.Battle{
		"arena1": battleWith(constants.ResultVictory, 30),
		"arena2": battleWith(constants.ResultDefeat, 10),
	}

	totals := TeamTotals(battles)
	assert.Equal(t, constants.PointsPerTeamWin+40, totals.TeamPoints)
	assert.Equal(t, 1, totals.Wins)
	assert.Equal(t, 2, totals.Battles)
}

func TestTeamTotalsCountsInProgressBattles(t *testing.T) {
	battles := map[string]domain.Battle{
		"arena1": battleWith(constants.ResultInBattle, 5),
	}

	totals := TeamTotals(battles)
	assert.Equal(t, 1, totals.Battles)
	assert.Equal(t, 5, totals.TeamPoints)
	assert.Zero(t, totals.Wins)
}

func TestBattleTotals(t *testing.T) {
	b := battleWith(constants.ResultVictory)
	b.Players = map[string]domain.PlayerContribution{
		"p1": {Points: 100, Damage: 400, Kills: 2},
		"p2": {Points: 50, Damage: 150, Kills: 1},
	}

	totals := BattleTotals(b)
	assert.Equal(t, constants.PointsPerTeamWin+150, totals.BattlePoints)
	assert.Equal(t, 550, totals.BattleDamage)
	assert.Equal(t, 3, totals.BattleKills)
}

func TestPlayerTotalsAbsenceContributesZero(t *testing.T) {
	battles := map[string]domain.Battle{
		"arena1": {Players: map[string]domain.PlayerContribution{
			"p1": {Points: 10, Damage: 100, Kills: 1},
		}},
		"arena2": {Players: map[string]domain.PlayerContribution{
			"p2": {Points: 99, Damage: 999, Kills: 9},
		}},
	}

	totals := PlayerTotals(battles, "p1")
	assert.Equal(t, 10, totals.PlayerPoints)
	assert.Equal(t, 100, totals.PlayerDamage)
	assert.Equal(t, 1, totals.PlayerKills)
}

func TestBestWorstSelection(t *testing.T) {
	battles := map[string]domain.Battle{
		"a": battleWith(constants.ResultVictory, 100),
		"b": battleWith(constants.ResultDefeat, 50),
		"c": battleWith(constants.ResultDefeat, 100),
	}

	result := BestWorst(battles)
	require.NotNil(t, result.Best)
	require.NotNil(t, result.Worst)
	assert.Equal(t, "a", result.Best.ArenaID)
	assert.Equal(t, constants.PointsPerTeamWin+100, result.Best.Points)
	assert.Equal(t, "b", result.Worst.ArenaID)
	assert.Equal(t, 50, result.Worst.Points)
}

func TestBestWorstTieKeepsFirstInArenaOrder(t *testing.T) {
	battles := map[string]domain.Battle{
		"a": battleWith(constants.ResultDefeat, 100),
		"b": battleWith(constants.ResultDefeat, 100),
	}

	result := BestWorst(battles)
	require.NotNil(t, result.Best)
	assert.Equal(t, "a", result.Best.ArenaID, "equal points must not re-assign the running maximum")
	assert.Equal(t, "a", result.Worst.ArenaID)
}

func TestBestWorstIgnoresInProgressBattles(t *testing.T) {
	battles := map[string]domain.Battle{
		"arena1": battleWith(constants.ResultInBattle, 9999),
		"arena2": battleWith(constants.ResultDefeat, 10),
	}

	result := BestWorst(battles)
	require.NotNil(t, result.Best)
	assert.Equal(t, "arena2", result.Best.ArenaID)
	assert.Equal(t, "arena2", result.Worst.ArenaID)
}

func TestBestWorstEmptyWhenNothingCompleted(t *testing.T) {
	result := BestWorst(map[string]domain.Battle{
		"arena1": battleWith(constants.ResultInBattle, 10),
	})
	assert.Nil(t, result.Best)
	assert.Nil(t, result.Worst)

	result = BestWorst(map[string]domain.Battle{})
	assert.Nil(t, result.Best)
	assert.Nil(t, result.Worst)
}

func TestCurrentBattleIDPicksLatestInProgress(t *testing.T) {
	battles := map[string]domain.Battle{
		"arena1": {Duration: 300, StartTime: 3000},
		"arena2": {Duration: 0, StartTime: 1000},
		"arena3": {Duration: 0, StartTime: 2000},
	}

	assert.Equal(t, "arena3", CurrentBattleID(battles))
	assert.Equal(t, "", CurrentBattleID(map[string]domain.Battle{
		"arena1": {Duration: 300, StartTime: 3000},
	}))
}
