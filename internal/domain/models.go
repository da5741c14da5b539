package domain

// PlayerContribution is one player's share of a single battle. Numeric fields
// are monotonic: a merge keeps the maximum of the old and new values.
type PlayerContribution struct {
	Name    string `json:"name"`
	Damage  int    `json:"damage"`
	Kills   int    `json:"kills"`
	Points  int    `json:"points"`
	Vehicle string `json:"vehicle"`
}

// Battle is one completed or in-progress match, keyed by arena id.
type Battle struct {
	// StartTime is a unix timestamp in milliseconds. Set once, never regresses.
	StartTime int64 `json:"startTime"`
	// Duration of 0 marks an in-progress battle. Once positive it never decreases.
	Duration int `json:"duration"`
	// Win is -1 while in progress, 0 defeat, 1 victory, 2 draw. Once set it is
	// never downgraded back to -1.
	Win      int                           `json:"win"`
	MapName  string                        `json:"mapName"`
	Players  map[string]PlayerContribution `json:"players"`
}

// Model is the canonical in-memory state: all known battles plus the player
// directory. The engine owns the single instance per session; everything else
// sees copies or read-only projections.
type Model struct {
	Battles        map[string]Battle `json:"BattleStats"`
	Players        map[string]string `json:"PlayersInfo"`
	CurrentArenaID string            `json:"curentArenaId,omitempty"`
}

func NewModel() *Model {
	return &Model{
		Battles: make(map[string]Battle),
		Players: make(map[string]string),
	}
}

// Clone returns a deep copy. Merge inputs stay untouched from the caller's
// perspective; internally the engine mutates its own copy.
func (m *Model) Clone() *Model {
	out := &Model{
		Battles:        make(map[string]Battle, len(m.Battles)),
		Players:        make(map[string]string, len(m.Players)),
		CurrentArenaID: m.CurrentArenaID,
	}
	for arenaID, battle := range m.Battles {
		out.Battles[arenaID] = battle.Clone()
	}
	for id, name := range m.Players {
		out.Players[id] = name
	}
	return out
}

func (b Battle) Clone() Battle {
	players := make(map[string]PlayerContribution, len(b.Players))
	for id, p := range b.Players {
		players[id] = p
	}
	b.Players = players
	return b
}

// BattleListItem is a battle paired with its arena id for list views.
type BattleListItem struct {
	ArenaID string `json:"id"`
	Battle
}

type TeamTotals struct {
	TeamPoints int `json:"teamPoints"`
	TeamDamage int `json:"teamDamage"`
	TeamKills  int `json:"teamKills"`
	Wins       int `json:"wins"`
	Battles    int `json:"battles"`
}

type BattleTotals struct {
	BattlePoints int `json:"battlePoints"`
	BattleDamage int `json:"battleDamage"`
	BattleKills  int `json:"battleKills"`
}

type PlayerTotals struct {
	PlayerPoints int `json:"playerPoints"`
	PlayerDamage int `json:"playerDamage"`
	PlayerKills  int `json:"playerKills"`
}

// RatedBattle is a battle together with its total points, as produced by the
// best/worst selection.
type RatedBattle struct {
	ArenaID string `json:"arenaId"`
	Battle  Battle `json:"battle"`
	Points  int    `json:"points"`
}

// BestWorst holds the highest- and lowest-scoring completed battles. Both are
// nil when no battle has finished yet.
type BestWorst struct {
	Best  *RatedBattle `json:"bestBattle"`
	Worst *RatedBattle `json:"worstBattle"`
}

// PlayerSummary is one row of the per-player table, grouped by display name.
type PlayerSummary struct {
	Name      string  `json:"name"`
	Battles   int     `json:"battles"`
	Wins      int     `json:"wins"`
	WinRate   float64 `json:"winRate"`
	Damage    int     `json:"damage"`
	AvgDamage float64 `json:"avgDamage"`
	Kills     int     `json:"kills"`
	AvgKills  float64 `json:"avgKills"`
	Points    int     `json:"points"`
}

// VehicleSummary is one row of the per-vehicle table.
type VehicleSummary struct {
	Vehicle   string  `json:"vehicle"`
	Battles   int     `json:"battles"`
	Wins      int     `json:"wins"`
	WinRate   float64 `json:"winRate"`
	Damage    int     `json:"damage"`
	AvgDamage float64 `json:"avgDamage"`
	Kills     int     `json:"kills"`
	AvgKills  float64 `json:"avgKills"`
}
