package card

import "strings"

// Type is the elemental type of a card.
type Type string

const (
	Normal   Type = "NORMAL"
	Fire     Type = "FIRE"
	Water    Type = "WATER"
	Grass    Type = "GRASS"
	Electric Type = "ELECTRIC"
	Ice      Type = "ICE"
	Fighting Type = "FIGHTING"
	Poison   Type = "POISON"
	Ground   Type = "GROUND"
	Flying   Type = "FLYING"
	Psychic  Type = "PSYCHIC"
	Bug      Type = "BUG"
	Rock     Type = "ROCK"
	Ghost    Type = "GHOST"
	Dragon   Type = "DRAGON"
	Dark     Type = "DARK"
	Steel    Type = "STEEL"
	Fairy    Type = "FAIRY"
)

// AllTypes lists every known type in declaration order.
var AllTypes = []Type{
	Normal, Fire, Water, Grass, Electric, Ice, Fighting, Poison, Ground,
	Flying, Psychic, Bug, Rock, Ghost, Dragon, Dark, Steel, Fairy,
}

// ParseType returns the Type for s (case-insensitive). Unknown values map to Normal.
func ParseType(s string) Type {
	t := Type(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range AllTypes {
		if t == known {
			return t
		}
	}
	return Normal
}

// Card is a catalogue card. Values are read-only within the match engine;
// anything that mutates hit points works on a copy.
type Card struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	HP            int    `json:"hp"`
	Attack        int    `json:"attack"`
	Type          Type   `json:"type"`
	PokedexNumber int    `json:"pokedexNumber"`
	ImgURL        string `json:"imgUrl,omitempty"`
}

// Names returns the names of cards in order.
func Names(cards []Card) []string {
	names := make([]string, len(cards))
	for i, c := range cards {
		names[i] = c.Name
	}
	return names
}
