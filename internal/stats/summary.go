package stats

import (
	"sort"
	"strings"

	"battle-tracker/internal/constants"
	"battle-tracker/internal/domain"
)

type accumulator struct {
	battles int
	wins    int
	damage  int
	kills   int
	points  int
}

func (a *accumulator) add(win int, p domain.PlayerContribution) {
	a.battles++
	if win == constants.ResultVictory {
		a.wins++
	}
	a.damage += p.Damage
	a.kills += p.Kills
	a.points += p.Points
}

func ratio(sum, battles int) float64 {
	if battles == 0 {
		return 0
	}
	return float64(sum) / float64(battles)
}

// PlayerSummaries groups all contributions by display name (not id) and
// derives win rate and per-battle averages. Rows come back in ascending name
// order before any explicit sort is applied.
func PlayerSummaries(battles []domain.BattleListItem) []domain.PlayerSummary {
	acc := make(map[string]*accumulator)
	for _, b := range battles {
		for _, p := range b.Players {
			if p.Name == "" {
				continue
			}
			a, ok := acc[p.Name]
			if !ok {
				a = &accumulator{}
				acc[p.Name] = a
			}
			a.add(b.Win, p)
		}
	}

	rows := make([]domain.PlayerSummary, 0, len(acc))
	for name, a := range acc {
		rows = append(rows, domain.PlayerSummary{
			Name:      name,
			Battles:   a.battles,
			Wins:      a.wins,
			WinRate:   ratio(a.wins, a.battles) * 100,
			Damage:    a.damage,
			AvgDamage: ratio(a.damage, a.battles),
			Kills:     a.kills,
			AvgKills:  ratio(a.kills, a.battles),
			Points:    a.points,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows
}

// VehicleSummaries groups all contributions by vehicle name.
func VehicleSummaries(battles []domain.BattleListItem) []domain.VehicleSummary {
	acc := make(map[string]*accumulator)
	for _, b := range battles {
		for _, p := range b.Players {
			if p.Vehicle == "" {
				continue
			}
			a, ok := acc[p.Vehicle]
			if !ok {
				a = &accumulator{}
				acc[p.Vehicle] = a
			}
			a.add(b.Win, p)
		}
	}

	rows := make([]domain.VehicleSummary, 0, len(acc))
	for vehicle, a := range acc {
		rows = append(rows, domain.VehicleSummary{
			Vehicle:   vehicle,
			Battles:   a.battles,
			Wins:      a.wins,
			WinRate:   ratio(a.wins, a.battles) * 100,
			Damage:    a.damage,
			AvgDamage: ratio(a.damage, a.battles),
			Kills:     a.kills,
			AvgKills:  ratio(a.kills, a.battles),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Vehicle < rows[j].Vehicle })
	return rows
}

// SortPlayers stably sorts rows on a named column. Text columns compare
// case-insensitively; unknown columns leave the order unchanged.
func SortPlayers(rows []domain.PlayerSummary, column string, descending bool) {
	less := playerLess(column)
	if less == nil {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if descending {
			return less(rows[j], rows[i])
		}
		return less(rows[i], rows[j])
	})
}

func playerLess(column string) func(a, b domain.PlayerSummary) bool {
	switch column {
	case "name":
		return func(a, b domain.PlayerSummary) bool {
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
	case "battles":
		return func(a, b domain.PlayerSummary) bool { return a.Battles < b.Battles }
	case "wins":
		return func(a, b domain.PlayerSummary) bool { return a.Wins < b.Wins }
	case "winRate":
		return func(a, b domain.PlayerSummary) bool { return a.WinRate < b.WinRate }
	case "damage":
		return func(a, b domain.PlayerSummary) bool { return a.Damage < b.Damage }
	case "avgDamage":
		return func(a, b domain.PlayerSummary) bool { return a.AvgDamage < b.AvgDamage }
	case "kills":
		return func(a, b domain.PlayerSummary) bool { return a.Kills < b.Kills }
	case "avgKills":
		return func(a, b domain.PlayerSummary) bool { return a.AvgKills < b.AvgKills }
	case "points":
		return func(a, b domain.PlayerSummary) bool { return a.Points < b.Points }
	}
	return nil
}

// SortVehicles stably sorts rows on a named column.
func SortVehicles(rows []domain.VehicleSummary, column string, descending bool) {
	less := vehicleLess(column)
	if less == nil {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if descending {
			return less(rows[j], rows[i])
		}
		return less(rows[i], rows[j])
	})
}

func vehicleLess(column string) func(a, b domain.VehicleSummary) bool {
	switch column {
	case "vehicle":
		return func(a, b domain.VehicleSummary) bool {
			return strings.ToLower(a.Vehicle) < strings.ToLower(b.Vehicle)
		}
	case "battles":
		return func(a, b domain.VehicleSummary) bool { return a.Battles < b.Battles }
	case "wins":
		return func(a, b domain.VehicleSummary) bool { return a.Wins < b.Wins }
	case "winRate":
		return func(a, b domain.VehicleSummary) bool { return a.WinRate < b.WinRate }
	case "damage":
		return func(a, b domain.VehicleSummary) bool { return a.Damage < b.Damage }
	case "avgDamage":
		return func(a, b domain.VehicleSummary) bool { return a.AvgDamage < b.AvgDamage }
	case "kills":
		return func(a, b domain.VehicleSummary) bool { return a.Kills < b.Kills }
	case "avgKills":
		return func(a, b domain.VehicleSummary) bool { return a.AvgKills < b.AvgKills }
	}
	return nil
}
