package model

// Game is the loaded set of maps plus the loot generator settings that
// apply to every map.
type Game struct {
	maps    []*Map
	byID    map[MapID]int
	lootCfg LootConfig
}

// LootConfig is the generator configuration shared by all maps.
type LootConfig struct {
	// Period is the base spawn interval in seconds.
	Period float64
	// Probability is the chance of a spawn within one period.
	Probability float64
}

// NewGame creates an empty game with the given loot settings.
func NewGame(lootCfg LootConfig) *Game {
	return &Game{
		byID:    make(map[MapID]int),
		lootCfg: lootCfg,
	}
}

// AddMap registers a map. Later maps with a duplicate id are ignored,
// first definition wins.
func (g *Game) AddMap(m *Map) {
	if _, ok := g.byID[m.ID()]; ok {
		return
	}
	g.maps = append(g.maps, m)
	g.byID[m.ID()] = len(g.maps) - 1
}

// Maps returns all maps in config order.
func (g *Game) Maps() []*Map {
	return g.maps
}

// FindMap returns the map with the given id, or nil.
func (g *Game) FindMap(id MapID) *Map {
	if i, ok := g.byID[id]; ok {
		return g.maps[i]
	}
	return nil
}

// LootConfig returns the shared loot generator settings.
func (g *Game) LootConfig() LootConfig {
	return g.lootCfg
}
