// Package cache memoizes derived aggregates keyed by what they depend on.
// Entries are disposable: a miss always recomputes correctly from the
// canonical model, so invalidation can only cost time, never correctness.
package cache

import "sync"

type Kind int

const (
	KindTeam Kind = iota
	KindPlayer
	KindBattle
	KindBestWorst
)

// Key identifies one cached aggregate. ID scopes player and battle keys;
// Version is a token derived from the model state the aggregate depends on
// (battle count, sorted arena ids), so a stale entry can never be returned
// for a key whose underlying data changed.
type Key struct {
	Kind    Kind
	ID      string
	Version string
}

func TeamKey(version string) Key { return Key{Kind: KindTeam, Version: version} }

func PlayerKey(id, version string) Key {
	return Key{Kind: KindPlayer, ID: id, Version: version}
}

func BattleKey(arenaID, version string) Key {
	return Key{Kind: KindBattle, ID: arenaID, Version: version}
}

func BestWorstKey(version string) Key { return Key{Kind: KindBestWorst, Version: version} }

type Cache struct {
	mu      sync.Mutex
	entries map[Key]any
}

func New() *Cache {
	return &Cache{entries: make(map[Key]any)}
}

// GetOrCompute returns the cached value for key, computing and storing it on
// a miss. compute runs outside any model lock the caller may hold; it must be
// a pure function of the state the key's version token was derived from.
func (c *Cache) GetOrCompute(key Key, compute func() any) any {
	c.mu.Lock()
	if v, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return v
	}
	c.mu.Unlock()

	v := compute()

	c.mu.Lock()
	c.entries[key] = v
	c.mu.Unlock()
	return v
}

func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Key]any)
}

// InvalidateKind drops every entry of one variant.
func (c *Cache) InvalidateKind(kind Kind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if k.Kind == kind {
			delete(c.entries, k)
		}
	}
}

// InvalidateBattle drops the per-battle entry for one arena along with every
// aggregate that spans battles.
func (c *Cache) InvalidateBattle(arenaID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		switch k.Kind {
		case KindBattle:
			if k.ID == arenaID {
				delete(c.entries, k)
			}
		case KindTeam, KindPlayer, KindBestWorst:
			delete(c.entries, k)
		}
	}
}

// Len is exposed for tests.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
