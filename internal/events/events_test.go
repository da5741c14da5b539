package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmitReachesAllSubscribers(t *testing.T) {
	bus := NewBus()
	var got []any

	bus.Subscribe(StatsUpdated, func(p any) { got = append(got, p) })
	bus.Subscribe(StatsUpdated, func(p any) { got = append(got, p) })
	bus.Emit(StatsUpdated, "payload")

	assert.Len(t, got, 2)
	assert.Equal(t, "payload", got[0])
}

func TestEmitSkipsOtherTopics(t *testing.T) {
	bus := NewBus()
	called := false

	bus.Subscribe(BattleDeleted, func(any) { called = true })
	bus.Emit(StatsUpdated, nil)

	assert.False(t, called)
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus()
	calls := 0

	cancel := bus.Subscribe(StatsUpdated, func(any) { calls++ })
	bus.Emit(StatsUpdated, nil)
	cancel()
	bus.Emit(StatsUpdated, nil)

	assert.Equal(t, 1, calls)
}
