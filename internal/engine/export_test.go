package engine

import (
	"encoding/json"
	"testing"

	"battle-tracker/internal/domain"
	"battle-tracker/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportRoundTripsThroughImport(t *testing.T) {
	e := newTestEngine()
	e.Merge(fragment(map[string]domain.Battle{
		"arena1": battle(1, 300, "Malinovka", map[string]domain.PlayerContribution{
			"p1": {Name: "Alice", Damage: 1500, Kills: 2, Points: 2100, Vehicle: "IS-7"},
		}),
	}))

	blob, err := e.Export()
	require.NoError(t, err)

	// The export is a plain battles map, indented for humans.
	var battles map[string]domain.Battle
	require.NoError(t, json.Unmarshal(blob, &battles))
	require.Contains(t, battles, "arena1")

	fresh := newTestEngine()
	require.NoError(t, fresh.Import(blob))
	assert.Equal(t, e.Battles(), fresh.Battles())
}

func TestImportRejectsMissingBattleField(t *testing.T) {
	e := newTestEngine()
	blob := []byte(`{
		"arena1": {"startTime": 1, "duration": 2, "win": 1, "players": {}}
	}`)

	err := e.Import(blob)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mapName")
	assert.Empty(t, e.Battles(), "no partial apply on rejection")
}

func TestImportRejectsInvalidPlayerField(t *testing.T) {
	e := newTestEngine()
	blob := []byte(`{
		"good": {
			"startTime": 1, "duration": 2, "win": 1, "mapName": "Ensk",
			"players": {"p1": {"name": "Alice", "damage": 1, "kills": 1, "points": 1, "vehicle": "T-34"}}
		},
		"bad": {
			"startTime": 1, "duration": 2, "win": 1, "mapName": "Ensk",
			"players": {"p1": {"name": "Bob", "damage": 1, "kills": 1, "vehicle": "T-34"}}
		}
	}`)

	err := e.Import(blob)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "points")
	assert.Empty(t, e.Battles(), "one bad record must reject the whole payload")
}

func TestImportRejectsNonNumericPlayerField(t *testing.T) {
	e := newTestEngine()
	blob := []byte(`{
		"arena1": {
			"startTime": 1, "duration": 2, "win": 1, "mapName": "Ensk",
			"players": {"p1": {"name": "Alice", "damage": "lots", "kills": 1, "points": 1, "vehicle": "T-34"}}
		}
	}`)

	require.Error(t, e.Import(blob))
	assert.Empty(t, e.Battles())
}

func TestImportMergesAdditively(t *testing.T) {
	e := newTestEngine()
	e.Merge(fragment(map[string]domain.Battle{
		"arena1": battle(1, 300, "Malinovka", nil),
	}))

	imported := 0
	e.bus.Subscribe(events.DataImported, func(any) { imported++ })

	blob := []byte(`{
		"arena2": {
			"startTime": 5, "duration": 200, "win": 0, "mapName": "Ensk",
			"players": {}
		}
	}`)
	require.NoError(t, e.Import(blob))

	assert.Len(t, e.Battles(), 2, "import must not drop existing battles")
	assert.Equal(t, 1, imported)
}
