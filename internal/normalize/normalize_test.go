package normalize

import (
	"testing"
	"time"

	"battle-tracker/internal/constants"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time {
	return time.UnixMilli(1700000000000)
}

func TestFragmentDefaultsMissingFields(t *testing.T) {
	n := NewWithClock(fixedClock)

	raw := []byte(`{
		"BattleStats": {
			"arena1": {
				"players": {
					"p1": {"kills": 2}
				}
			}
		}
	}`)

	payload, err := n.Parse(raw)
	require.NoError(t, err)
	frag := n.Fragment(payload, nil)

	b, ok := frag.Battles["arena1"]
	require.True(t, ok)
	assert.Equal(t, fixedClock().UnixMilli(), b.StartTime)
	assert.Equal(t, 0, b.Duration)
	assert.Equal(t, constants.ResultInBattle, b.Win)
	assert.Equal(t, constants.UnknownMap, b.MapName)

	p := b.Players["p1"]
	assert.Equal(t, constants.UnknownPlayer, p.Name)
	assert.Equal(t, constants.UnknownVehicle, p.Vehicle)
	assert.Equal(t, 0, p.Damage)
	assert.Equal(t, 2, p.Kills)
	assert.Equal(t, 2*constants.PointsPerFrag, p.Points, "points derived from damage and kills")
}

func TestFragmentTolerantOfWrongTypes(t *testing.T) {
	n := NewWithClock(fixedClock)

	raw := []byte(`{
		"BattleStats": {
			"arena1": {
				"startTime": "soon",
				"duration": null,
				"win": "victory",
				"mapName": 7,
				"players": {
					"p1": {"name": 12, "kills": "many", "damage": 350.0, "points": true, "vehicle": null}
				}
			}
		}
	}`)

	payload, err := n.Parse(raw)
	require.NoError(t, err)
	frag := n.Fragment(payload, nil)

	b := frag.Battles["arena1"]
	assert.Equal(t, constants.ResultInBattle, b.Win)
	assert.Equal(t, constants.UnknownMap, b.MapName)

	p := b.Players["p1"]
	assert.Equal(t, 350, p.Damage)
	assert.Equal(t, 0, p.Kills)
	assert.Equal(t, 350, p.Points)
}

func TestFragmentAcceptsAssociationLists(t *testing.T) {
	n := NewWithClock(fixedClock)

	asObject := []byte(`{
		"BattleStats": {"arena1": {"mapName": "Ensk", "win": 1, "duration": 1, "startTime": 5, "players": {}}},
		"PlayerInfo": {"1": "Alice"}
	}`)
	asTuples := []byte(`{
		"BattleStats": [["arena1", {"mapName": "Ensk", "win": 1, "duration": 1, "startTime": 5, "players": {}}]],
		"PlayerInfo": [["1", "Alice"]]
	}`)
	asRecords := []byte(`{
		"BattleStats": [{"key": "arena1", "value": {"mapName": "Ensk", "win": 1, "duration": 1, "startTime": 5, "players": {}}}],
		"PlayerInfo": [{"key": "1", "value": "Alice"}]
	}`)

	var frags []*struct {
		battles int
		mapName string
		name    string
	}
	for _, raw := range [][]byte{asObject, asTuples, asRecords} {
		payload, err := n.Parse(raw)
		require.NoError(t, err)
		frag := n.Fragment(payload, nil)
		frags = append(frags, &struct {
			battles int
			mapName string
			name    string
		}{len(frag.Battles), frag.Battles["arena1"].MapName, frag.Players["1"]})
	}

	for _, got := range frags {
		assert.Equal(t, 1, got.battles)
		assert.Equal(t, "Ensk", got.mapName)
		assert.Equal(t, "Alice", got.name)
	}
}

func TestFragmentNameResolutionChain(t *testing.T) {
	n := NewWithClock(fixedClock)

	raw := []byte(`{
		"BattleStats": {
			"arena1": {
				"players": {
					"p1": {"name": "FromPayload"},
					"p2": {},
					"p3": {}
				}
			}
		},
		"PlayerInfo": {"p2": "FromPayloadDirectory"}
	}`)

	payload, err := n.Parse(raw)
	require.NoError(t, err)
	frag := n.Fragment(payload, map[string]string{"p3": "FromKnownDirectory"})

	assert.Equal(t, "FromPayload", frag.Battles["arena1"].Players["p1"].Name)
	assert.Equal(t, "FromPayloadDirectory", frag.Battles["arena1"].Players["p2"].Name)
	assert.Equal(t, "FromKnownDirectory", frag.Battles["arena1"].Players["p3"].Name)
}

func TestFragmentDirectoryRecordsWithID(t *testing.T) {
	n := NewWithClock(fixedClock)

	raw := []byte(`{"PlayerInfo": {"1": {"_id": "Alice"}, "2": "Bob"}}`)
	payload, err := n.Parse(raw)
	require.NoError(t, err)
	frag := n.Fragment(payload, nil)

	assert.Equal(t, "Alice", frag.Players["1"])
	assert.Equal(t, "Bob", frag.Players["2"])
}

func TestFragmentSkipsMalformedRecords(t *testing.T) {
	n := NewWithClock(fixedClock)

	raw := []byte(`{
		"BattleStats": {
			"broken": 42,
			"ok": {"mapName": "Ensk", "players": {"p1": "nope", "p2": {"kills": 1}}}
		}
	}`)

	payload, err := n.Parse(raw)
	require.NoError(t, err)
	frag := n.Fragment(payload, nil)

	require.Len(t, frag.Battles, 1)
	b := frag.Battles["ok"]
	require.Len(t, b.Players, 1)
	assert.Contains(t, b.Players, "p2")
}

func TestParseFailsOnNonObjectRoot(t *testing.T) {
	n := New()

	for _, raw := range [][]byte{
		[]byte(`"just a string"`),
		[]byte(`42`),
		[]byte(`not json at all`),
	} {
		_, err := n.Parse(raw)
		assert.Error(t, err, "payload %s", raw)
	}
}
