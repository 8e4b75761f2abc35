package storage

import (
	"fmt"

	"card-battle-server/card"
)

const artworkURL = "https://raw.githubusercontent.com/PokeAPI/sprites/master/sprites/pokemon/other/official-artwork/%d.png"

// starterCatalog is the demo catalogue inserted by SeedStarterData.
// Card ids are assigned by the store in slice order starting at 1.
var starterCatalog = []card.Card{
	{Name: "Bulbasaur", HP: 45, Attack: 49, Type: card.Grass, PokedexNumber: 1},
	{Name: "Ivysaur", HP: 60, Attack: 62, Type: card.Grass, PokedexNumber: 2},
	{Name: "Charmander", HP: 39, Attack: 52, Type: card.Fire, PokedexNumber: 4},
	{Name: "Charmeleon", HP: 58, Attack: 64, Type: card.Fire, PokedexNumber: 5},
	{Name: "Squirtle", HP: 44, Attack: 48, Type: card.Water, PokedexNumber: 7},
	{Name: "Wartortle", HP: 59, Attack: 63, Type: card.Water, PokedexNumber: 8},
	{Name: "Caterpie", HP: 45, Attack: 30, Type: card.Bug, PokedexNumber: 10},
	{Name: "Pidgey", HP: 40, Attack: 45, Type: card.Flying, PokedexNumber: 16},
	{Name: "Rattata", HP: 30, Attack: 56, Type: card.Normal, PokedexNumber: 19},
	{Name: "Pikachu", HP: 35, Attack: 55, Type: card.Electric, PokedexNumber: 25},
	{Name: "Sandshrew", HP: 50, Attack: 75, Type: card.Ground, PokedexNumber: 27},
	{Name: "Clefairy", HP: 70, Attack: 45, Type: card.Fairy, PokedexNumber: 35},
	{Name: "Zubat", HP: 40, Attack: 45, Type: card.Poison, PokedexNumber: 41},
	{Name: "Machop", HP: 70, Attack: 80, Type: card.Fighting, PokedexNumber: 66},
	{Name: "Geodude", HP: 40, Attack: 80, Type: card.Rock, PokedexNumber: 74},
	{Name: "Magnemite", HP: 25, Attack: 35, Type: card.Steel, PokedexNumber: 81},
	{Name: "Gastly", HP: 30, Attack: 35, Type: card.Ghost, PokedexNumber: 92},
	{Name: "Abra", HP: 25, Attack: 20, Type: card.Psychic, PokedexNumber: 63},
	{Name: "Jynx", HP: 65, Attack: 50, Type: card.Ice, PokedexNumber: 124},
	{Name: "Dratini", HP: 41, Attack: 64, Type: card.Dragon, PokedexNumber: 147},
}

// starterDeck is a demo deck; CardPositions index into starterCatalog.
type starterDeck struct {
	OwnerID       int64
	Name          string
	CardPositions []int
}

// Users 1 and 2 are the demo accounts created by the sign-up service seed.
var starterDecks = []starterDeck{
	{OwnerID: 1, Name: "Starter Deck", CardPositions: []int{0, 2, 4, 9, 10, 13, 14, 7, 8, 19}},
	{OwnerID: 2, Name: "Starter Deck", CardPositions: []int{1, 3, 5, 6, 11, 12, 15, 16, 17, 18}},
}

func starterCard(pos int) card.Card {
	c := starterCatalog[pos]
	c.ImgURL = fmt.Sprintf(artworkURL, c.PokedexNumber)
	return c
}
