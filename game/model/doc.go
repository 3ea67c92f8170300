// Package model defines the immutable world: maps with their road
// networks, buildings, delivery offices and loot catalogs.
//
// A Map is built once by the config loader and never mutated afterwards.
// The only geometry the world knows is axis-aligned road segments of
// fixed width; FitPositionToRoad clamps attempted movement into the
// corridor of the road under the mover.
package model
