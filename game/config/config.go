// Package config loads the world definition consumed by the game: maps
// with roads, buildings, offices and loot catalogs, plus the defaults
// and loot generator settings that apply across maps.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/vkozyrev/dogwalk/game/model"
)

var (
	ErrNoMaps            = errors.New("config: no maps defined")
	ErrNoRoads           = errors.New("config: map has no roads")
	ErrNoLootTypes       = errors.New("config: map has no loot types")
	ErrBadRoad           = errors.New("config: road must be a non-degenerate horizontal or vertical segment")
	ErrMissingLootConfig = errors.New("config: lootGeneratorConfig is required")
)

// file mirrors the top-level config JSON schema.
type file struct {
	DefaultDogSpeed    *float64    `json:"defaultDogSpeed"`
	DefaultBagCapacity *int        `json:"defaultBagCapacity"`
	DogRetirementTime  *float64    `json:"dogRetirementTime"`
	LootGenerator      *lootConfig `json:"lootGeneratorConfig"`
	Maps               []mapJSON   `json:"maps"`
}

type lootConfig struct {
	Period      float64 `json:"period"`
	Probability float64 `json:"probability"`
}

type mapJSON struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	DogSpeed    *float64          `json:"dogSpeed"`
	BagCapacity *int              `json:"bagCapacity"`
	Roads       []roadJSON        `json:"roads"`
	Buildings   []buildingJSON    `json:"buildings"`
	Offices     []officeJSON      `json:"offices"`
	LootTypes   []json.RawMessage `json:"lootTypes"`
}

// roadJSON carries either x1 (horizontal) or y1 (vertical).
type roadJSON struct {
	X0 int  `json:"x0"`
	Y0 int  `json:"y0"`
	X1 *int `json:"x1"`
	Y1 *int `json:"y1"`
}

type buildingJSON struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

type officeJSON struct {
	ID      string `json:"id"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	OffsetX int    `json:"offsetX"`
	OffsetY int    `json:"offsetY"`
}

// lootTypeFields is the subset of a loot type entry the server needs;
// the rest of the object is client-side and passed through untouched.
type lootTypeFields struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Load reads and validates the config file at path and builds the game
// world from it.
func Load(path string) (*model.Game, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse builds the game world from raw config JSON.
func Parse(data []byte) (*model.Game, error) {
	var cfg file
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.LootGenerator == nil {
		return nil, ErrMissingLootConfig
	}
	if len(cfg.Maps) == 0 {
		return nil, ErrNoMaps
	}

	game := model.NewGame(model.LootConfig{
		Period:      cfg.LootGenerator.Period,
		Probability: cfg.LootGenerator.Probability,
	})

	for _, mj := range cfg.Maps {
		m, err := buildMap(&cfg, mj)
		if err != nil {
			return nil, fmt.Errorf("map %q: %w", mj.ID, err)
		}
		game.AddMap(m)
	}
	return game, nil
}

func buildMap(cfg *file, mj mapJSON) (*model.Map, error) {
	if len(mj.Roads) == 0 {
		return nil, ErrNoRoads
	}
	if len(mj.LootTypes) == 0 {
		return nil, ErrNoLootTypes
	}

	m := model.NewMap(model.MapID(mj.ID), mj.Name)

	switch {
	case mj.DogSpeed != nil:
		m.SetDogSpeed(*mj.DogSpeed)
	case cfg.DefaultDogSpeed != nil:
		m.SetDogSpeed(*cfg.DefaultDogSpeed)
	}
	switch {
	case mj.BagCapacity != nil:
		m.SetBagCapacity(*mj.BagCapacity)
	case cfg.DefaultBagCapacity != nil:
		m.SetBagCapacity(*cfg.DefaultBagCapacity)
	}
	if cfg.DogRetirementTime != nil {
		m.SetRetirementTime(*cfg.DogRetirementTime)
	}

	for _, rj := range mj.Roads {
		road, err := buildRoad(rj)
		if err != nil {
			return nil, err
		}
		m.AddRoad(road)
	}

	for _, bj := range mj.Buildings {
		m.AddBuilding(model.Building{X: bj.X, Y: bj.Y, W: bj.W, H: bj.H})
	}

	for _, oj := range mj.Offices {
		m.AddOffice(model.Office{
			ID:       model.OfficeID(oj.ID),
			Position: model.Point{X: oj.X, Y: oj.Y},
			Offset:   model.Offset{DX: oj.OffsetX, DY: oj.OffsetY},
		})
	}

	types := make([]model.LootType, 0, len(mj.LootTypes))
	for i, raw := range mj.LootTypes {
		var fields lootTypeFields
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("loot type %d: %w", i, err)
		}
		types = append(types, model.LootType{Name: fields.Name, Value: fields.Value, Raw: raw})
	}
	m.SetLootTypes(types)

	return m, nil
}

func buildRoad(rj roadJSON) (model.Road, error) {
	start := model.Point{X: rj.X0, Y: rj.Y0}
	switch {
	case rj.X1 != nil && rj.Y1 == nil:
		if *rj.X1 == rj.X0 {
			return model.Road{}, ErrBadRoad
		}
		return model.NewHorizontalRoad(start, *rj.X1), nil
	case rj.Y1 != nil && rj.X1 == nil:
		if *rj.Y1 == rj.Y0 {
			return model.Road{}, ErrBadRoad
		}
		return model.NewVerticalRoad(start, *rj.Y1), nil
	default:
		return model.Road{}, ErrBadRoad
	}
}
