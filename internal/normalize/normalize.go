// Package normalize converts raw, loosely-typed payloads from the stats
// server into canonical model fragments, substituting defaults for missing or
// malformed fields. Malformed records never fail the whole payload; only a
// non-object payload root is an error.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"battle-tracker/internal/constants"
	"battle-tracker/internal/domain"
)

var ErrNotAnObject = errors.New("payload root is not a structured object")

// Payload mirrors the wire shape sent by the stats server. Both maps may
// arrive as JSON objects or as association lists; pairList accepts either.
type Payload struct {
	BattleStats pairList `json:"BattleStats"`
	PlayerInfo  pairList `json:"PlayerInfo"`
}

type pair struct {
	Key   string
	Value json.RawMessage
}

// pairList iterates key/value pairs of an inbound structure regardless of
// whether it was encoded as an object, a list of [key, value] tuples, or a
// list of {"key":..,"value":..} records.
type pairList []pair

func (pl *pairList) UnmarshalJSON(data []byte) error {
	var asObject map[string]json.RawMessage
	if err := json.Unmarshal(data, &asObject); err == nil {
		*pl = make(pairList, 0, len(asObject))
		for k, v := range asObject {
			*pl = append(*pl, pair{Key: k, Value: v})
		}
		return nil
	}

	var asTuples [][2]json.RawMessage
	if err := json.Unmarshal(data, &asTuples); err == nil {
		*pl = make(pairList, 0, len(asTuples))
		for _, t := range asTuples {
			var key string
			if err := json.Unmarshal(t[0], &key); err != nil {
				continue
			}
			*pl = append(*pl, pair{Key: key, Value: t[1]})
		}
		return nil
	}

	var asRecords []struct {
		Key   string          `json:"key"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &asRecords); err == nil {
		*pl = make(pairList, 0, len(asRecords))
		for _, r := range asRecords {
			if r.Key == "" {
				continue
			}
			*pl = append(*pl, pair{Key: r.Key, Value: r.Value})
		}
		return nil
	}

	// Any other shape is malformed per-record data, not a hard failure.
	*pl = nil
	return nil
}

// looseInt decodes a JSON number, tolerating anything else. ok reports
// whether a usable number was present; decoding never fails.
type looseInt struct {
	val int64
	ok  bool
}

func (l *looseInt) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		l.val, l.ok = int64(f), true
	}
	return nil
}

func (l looseInt) or(fallback int64) int64 {
	if l.ok {
		return l.val
	}
	return fallback
}

// looseString decodes a JSON string, tolerating anything else.
type looseString string

func (l *looseString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*l = looseString(s)
	}
	return nil
}

// rawBattle tolerates any field arriving with the wrong type.
type rawBattle struct {
	StartTime looseInt    `json:"startTime"`
	Duration  looseInt    `json:"duration"`
	Win       looseInt    `json:"win"`
	MapName   looseString `json:"mapName"`
	Players   pairList    `json:"players"`
}

type rawPlayer struct {
	Name    looseString `json:"name"`
	Damage  looseInt    `json:"damage"`
	Kills   looseInt    `json:"kills"`
	Points  looseInt    `json:"points"`
	Vehicle looseString `json:"vehicle"`
}

// rawDirectoryEntry is either a plain display name or a record whose _id
// carries the name.
type rawDirectoryEntry struct {
	name string
}

func (e *rawDirectoryEntry) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		e.name = s
		return nil
	}
	var rec struct {
		ID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &rec); err == nil {
		e.name = rec.ID
		return nil
	}
	return nil
}

// Normalizer converts raw payloads into model fragments. The directory lookup
// resolves player names for records that arrive without one.
type Normalizer struct {
	now func() time.Time
}

func New() *Normalizer {
	return &Normalizer{now: time.Now}
}

// NewWithClock is for tests that need a fixed default start time.
func NewWithClock(now func() time.Time) *Normalizer {
	return &Normalizer{now: now}
}

// Parse decodes raw JSON into a Payload. It fails only when the root is not
// a structured object.
func (n *Normalizer) Parse(raw []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode payload: %w", ErrNotAnObject)
	}
	return &p, nil
}

// Fragment normalizes a payload into a canonical model fragment. directory is
// the currently known player directory, consulted by the name resolution
// chain (payload name, then directory, then placeholder).
func (n *Normalizer) Fragment(p *Payload, directory map[string]string) *domain.Model {
	frag := domain.NewModel()

	for _, entry := range p.PlayerInfo {
		var e rawDirectoryEntry
		if err := json.Unmarshal(entry.Value, &e); err != nil {
			continue
		}
		if e.name != "" {
			frag.Players[entry.Key] = e.name
		}
	}

	// Payload directory entries take precedence over the caller's.
	resolve := func(pid string) string {
		if name, ok := frag.Players[pid]; ok {
			return name
		}
		return directory[pid]
	}

	for _, entry := range p.BattleStats {
		var rb rawBattle
		if err := json.Unmarshal(entry.Value, &rb); err != nil {
			continue
		}
		frag.Battles[entry.Key] = n.battle(rb, resolve)
	}

	return frag
}

func (n *Normalizer) battle(rb rawBattle, resolve func(string) string) domain.Battle {
	players := make(map[string]domain.PlayerContribution, len(rb.Players))
	for _, pe := range rb.Players {
		var rp rawPlayer
		if err := json.Unmarshal(pe.Value, &rp); err != nil {
			continue
		}
		players[pe.Key] = n.player(pe.Key, rp, resolve)
	}

	startTime := rb.StartTime.or(0)
	if startTime == 0 {
		startTime = n.now().UnixMilli()
	}

	mapName := string(rb.MapName)
	if mapName == "" {
		mapName = constants.UnknownMap
	}

	return domain.Battle{
		StartTime: startTime,
		Duration:  int(rb.Duration.or(0)),
		Win:       int(rb.Win.or(constants.ResultInBattle)),
		MapName:   mapName,
		Players:   players,
	}
}

func (n *Normalizer) player(pid string, rp rawPlayer, resolve func(string) string) domain.PlayerContribution {
	kills := int(rp.Kills.or(0))
	damage := int(rp.Damage.or(0))
	points := damage + kills*constants.PointsPerFrag
	if rp.Points.ok {
		points = int(rp.Points.val)
	}

	name := string(rp.Name)
	if name == "" {
		name = resolve(pid)
	}
	if name == "" {
		name = constants.UnknownPlayer
	}

	vehicle := string(rp.Vehicle)
	if vehicle == "" {
		vehicle = constants.UnknownVehicle
	}

	return domain.PlayerContribution{
		Name:    name,
		Damage:  damage,
		Kills:   kills,
		Points:  points,
		Vehicle: vehicle,
	}
}
