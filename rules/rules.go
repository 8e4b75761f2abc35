// Package rules holds the damage oracle used by the match engine.
//
// An Oracle is a pure function of the attacking card's attack stat and the two
// elemental types; it never sees or mutates game state.
package rules

import (
	"math"

	"card-battle-server/card"
)

// Oracle computes the damage an attacker deals to a defender.
type Oracle interface {
	Damage(attack int, attacker, defender card.Type) int
}

// Flat ignores types and deals the attack stat unchanged.
type Flat struct{}

// Damage implements Oracle.
func (Flat) Damage(attack int, _, _ card.Type) int {
	if attack < 0 {
		return 0
	}
	return attack
}

// TypeChart scales the attack stat by a type-effectiveness multiplier.
// Pairs missing from the chart use a multiplier of 1.
type TypeChart struct {
	multipliers map[card.Type]map[card.Type]float64
}

// NewTypeChart returns an empty chart; every matchup is neutral until Set is called.
func NewTypeChart() *TypeChart {
	return &TypeChart{multipliers: make(map[card.Type]map[card.Type]float64)}
}

// Set records the multiplier for attacker against defender.
func (tc *TypeChart) Set(attacker, defender card.Type, multiplier float64) {
	row, ok := tc.multipliers[attacker]
	if !ok {
		row = make(map[card.Type]float64)
		tc.multipliers[attacker] = row
	}
	row[defender] = multiplier
}

// Multiplier returns the effectiveness of attacker against defender.
func (tc *TypeChart) Multiplier(attacker, defender card.Type) float64 {
	if row, ok := tc.multipliers[attacker]; ok {
		if m, ok := row[defender]; ok {
			return m
		}
	}
	return 1
}

// Damage implements Oracle. The result is rounded to the nearest integer and never negative.
func (tc *TypeChart) Damage(attack int, attacker, defender card.Type) int {
	if attack <= 0 {
		return 0
	}
	dmg := int(math.Round(float64(attack) * tc.Multiplier(attacker, defender)))
	if dmg < 0 {
		return 0
	}
	return dmg
}

const (
	superEffective   = 2.0
	notVeryEffective = 0.5
	noEffect         = 0.0
)

// StandardChart returns the default type chart.
func StandardChart() *TypeChart {
	tc := NewTypeChart()
	strong := func(att card.Type, defs ...card.Type) {
		for _, d := range defs {
			tc.Set(att, d, superEffective)
		}
	}
	weak := func(att card.Type, defs ...card.Type) {
		for _, d := range defs {
			tc.Set(att, d, notVeryEffective)
		}
	}
	immune := func(att card.Type, defs ...card.Type) {
		for _, d := range defs {
			tc.Set(att, d, noEffect)
		}
	}

	weak(card.Normal, card.Rock, card.Steel)
	immune(card.Normal, card.Ghost)

	strong(card.Fire, card.Grass, card.Ice, card.Bug, card.Steel)
	weak(card.Fire, card.Fire, card.Water, card.Rock, card.Dragon)

	strong(card.Water, card.Fire, card.Ground, card.Rock)
	weak(card.Water, card.Water, card.Grass, card.Dragon)

	strong(card.Grass, card.Water, card.Ground, card.Rock)
	weak(card.Grass, card.Fire, card.Grass, card.Poison, card.Flying, card.Bug, card.Dragon, card.Steel)

	strong(card.Electric, card.Water, card.Flying)
	weak(card.Electric, card.Electric, card.Grass, card.Dragon)
	immune(card.Electric, card.Ground)

	strong(card.Ice, card.Grass, card.Ground, card.Flying, card.Dragon)
	weak(card.Ice, card.Fire, card.Water, card.Ice, card.Steel)

	strong(card.Fighting, card.Normal, card.Ice, card.Rock, card.Dark, card.Steel)
	weak(card.Fighting, card.Poison, card.Flying, card.Psychic, card.Bug, card.Fairy)
	immune(card.Fighting, card.Ghost)

	strong(card.Poison, card.Grass, card.Fairy)
	weak(card.Poison, card.Poison, card.Ground, card.Rock, card.Ghost)
	immune(card.Poison, card.Steel)

	strong(card.Ground, card.Fire, card.Electric, card.Poison, card.Rock, card.Steel)
	weak(card.Ground, card.Grass, card.Bug)
	immune(card.Ground, card.Flying)

	strong(card.Flying, card.Grass, card.Fighting, card.Bug)
	weak(card.Flying, card.Electric, card.Rock, card.Steel)

	strong(card.Psychic, card.Fighting, card.Poison)
	weak(card.Psychic, card.Psychic, card.Steel)
	immune(card.Psychic, card.Dark)

	strong(card.Bug, card.Grass, card.Psychic, card.Dark)
	weak(card.Bug, card.Fire, card.Fighting, card.Poison, card.Flying, card.Ghost, card.Steel, card.Fairy)

	strong(card.Rock, card.Fire, card.Ice, card.Flying, card.Bug)
	weak(card.Rock, card.Fighting, card.Ground, card.Steel)

	strong(card.Ghost, card.Psychic, card.Ghost)
	weak(card.Ghost, card.Dark)
	immune(card.Ghost, card.Normal)

	strong(card.Dragon, card.Dragon)
	weak(card.Dragon, card.Steel)
	immune(card.Dragon, card.Fairy)

	strong(card.Dark, card.Psychic, card.Ghost)
	weak(card.Dark, card.Fighting, card.Dark, card.Fairy)

	strong(card.Steel, card.Ice, card.Rock, card.Fairy)
	weak(card.Steel, card.Fire, card.Water, card.Electric, card.Steel)

	strong(card.Fairy, card.Fighting, card.Dragon, card.Dark)
	weak(card.Fairy, card.Fire, card.Poison, card.Steel)

	return tc
}

// ByName returns the oracle for a configuration name: "flat" or anything else for the standard chart.
func ByName(name string) Oracle {
	if name == "flat" {
		return Flat{}
	}
	return StandardChart()
}
