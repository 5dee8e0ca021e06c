package testutil

import (
	"fmt"

	"github.com/Sternrassler/pokedex-client/pkg/pokeapi"
)

// Pokemon builds a Pokémon record whose species reference points at the
// mock server.
func (m *MockPokeAPI) Pokemon(id int, name string, hp, attack, defense int, moves ...string) pokeapi.Pokemon {
	artwork := pokeapi.ArtworkURL(fmt.Sprint(id))
	p := pokeapi.Pokemon{
		ID:     id,
		Name:   name,
		Height: 7,
		Weight: 69,
		Sprites: pokeapi.Sprites{
			Other: &pokeapi.OtherSprites{
				OfficialArtwork: &pokeapi.Artwork{FrontDefault: &artwork},
			},
		},
		Types: []pokeapi.TypeSlot{
			{Slot: 1, Type: pokeapi.NamedResource{Name: "grass"}},
		},
		Stats: []pokeapi.Stat{
			{Stat: pokeapi.NamedResource{Name: "hp"}, BaseStat: hp},
			{Stat: pokeapi.NamedResource{Name: "attack"}, BaseStat: attack},
			{Stat: pokeapi.NamedResource{Name: "defense"}, BaseStat: defense},
		},
		Abilities: []pokeapi.AbilitySlot{
			{Ability: pokeapi.NamedResource{Name: "chlorophyll"}, Slot: 1},
		},
		Species: &pokeapi.NamedResource{Name: name, URL: m.SpeciesURL(id)},
	}
	for _, mv := range moves {
		p.Moves = append(p.Moves, pokeapi.MoveSlot{Move: pokeapi.NamedResource{Name: mv}})
	}
	return p
}

// Species builds a species record; chainID 0 leaves out the evolution chain.
func (m *MockPokeAPI) Species(id int, name string, chainID int) pokeapi.Species {
	s := pokeapi.Species{
		ID:   id,
		Name: name,
		FlavorTextEntries: []pokeapi.FlavorTextEntry{
			{FlavorText: "Une graine\nétrange.", Language: pokeapi.NamedResource{Name: "fr"}},
			{FlavorText: "A strange seed was\nplanted on its\fback at birth.", Language: pokeapi.NamedResource{Name: "en"}},
		},
		Genera: []pokeapi.Genus{
			{Genus: "Seed Pokémon", Language: pokeapi.NamedResource{Name: "en"}},
		},
	}
	if chainID > 0 {
		s.EvolutionChain = &pokeapi.APIResource{URL: m.ChainURL(chainID)}
	}
	return s
}

// Link builds an evolution chain node.
func (m *MockPokeAPI) Link(id int, name string, details []pokeapi.EvolutionDetail, evolvesTo ...pokeapi.ChainLink) pokeapi.ChainLink {
	return pokeapi.ChainLink{
		Species:          pokeapi.NamedResource{Name: name, URL: m.SpeciesURL(id)},
		EvolutionDetails: details,
		EvolvesTo:        evolvesTo,
	}
}

// AtLevel is an evolution detail with a minimum level.
func AtLevel(level int) []pokeapi.EvolutionDetail {
	return []pokeapi.EvolutionDetail{{
		MinLevel: &level,
		Trigger:  &pokeapi.NamedResource{Name: "level-up"},
	}}
}

// WithItem is an evolution detail requiring an item.
func WithItem(item string) []pokeapi.EvolutionDetail {
	return []pokeapi.EvolutionDetail{{
		Item:    &pokeapi.NamedResource{Name: item},
		Trigger: &pokeapi.NamedResource{Name: "use-item"},
	}}
}

// AddBulbasaurLine registers bulbasaur -> ivysaur (16) -> venusaur (32)
// with species and chain 1.
func (m *MockPokeAPI) AddBulbasaurLine() {
	m.AddPokemon(m.Pokemon(1, "bulbasaur", 45, 49, 49, "razor-wind", "swords-dance", "cut", "bind"))
	m.AddPokemon(m.Pokemon(2, "ivysaur", 60, 62, 63, "swords-dance", "cut"))
	m.AddPokemon(m.Pokemon(3, "venusaur", 80, 82, 83, "swords-dance"))
	m.AddSpecies(m.Species(1, "bulbasaur", 1))
	m.AddSpecies(m.Species(2, "ivysaur", 1))
	m.AddSpecies(m.Species(3, "venusaur", 1))
	m.AddEvolutionChain(pokeapi.EvolutionChain{
		ID: 1,
		Chain: m.Link(1, "bulbasaur", nil,
			m.Link(2, "ivysaur", AtLevel(16),
				m.Link(3, "venusaur", AtLevel(32)))),
	})
}
