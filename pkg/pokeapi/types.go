// Package pokeapi describes the subset of the PokéAPI v2 JSON contract used by
// the client. Fields the upstream may omit are pointers or carry documented
// fallbacks; nothing here assumes a field is present.
package pokeapi

// NamedResource is the {name, url} pair PokéAPI uses for every reference.
type NamedResource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// APIResource is an unnamed reference, e.g. species.evolution_chain.
type APIResource struct {
	URL string `json:"url"`
}

// PokemonList is one page of the /pokemon listing.
type PokemonList struct {
	Count    int             `json:"count"`
	Next     *string         `json:"next"`
	Previous *string         `json:"previous"`
	Results  []NamedResource `json:"results"`
}

// Pokemon is the /pokemon/{name} record.
type Pokemon struct {
	ID        int            `json:"id"`
	Name      string         `json:"name"`
	Height    int            `json:"height"`
	Weight    int            `json:"weight"`
	Sprites   Sprites        `json:"sprites"`
	Types     []TypeSlot     `json:"types"`
	Stats     []Stat         `json:"stats"`
	Abilities []AbilitySlot  `json:"abilities"`
	Moves     []MoveSlot     `json:"moves"`
	Species   *NamedResource `json:"species"`
}

// Sprites holds the image references of a Pokémon.
type Sprites struct {
	FrontDefault *string       `json:"front_default"`
	Other        *OtherSprites `json:"other"`
}

// OtherSprites holds the alternative artwork sets.
type OtherSprites struct {
	OfficialArtwork *Artwork `json:"official-artwork"`
	DreamWorld      *Artwork `json:"dream_world"`
}

// Artwork is a single artwork set.
type Artwork struct {
	FrontDefault *string `json:"front_default"`
}

// TypeSlot binds a type to a slot.
type TypeSlot struct {
	Slot int           `json:"slot"`
	Type NamedResource `json:"type"`
}

// Stat is one base stat.
type Stat struct {
	Stat     NamedResource `json:"stat"`
	Effort   int           `json:"effort"`
	BaseStat int           `json:"base_stat"`
}

// AbilitySlot binds an ability to a slot.
type AbilitySlot struct {
	Ability  NamedResource `json:"ability"`
	IsHidden bool          `json:"is_hidden"`
	Slot     int           `json:"slot"`
}

// MoveSlot wraps a learnable move.
type MoveSlot struct {
	Move NamedResource `json:"move"`
}

// Species is the /pokemon-species/{id} record.
type Species struct {
	ID                int               `json:"id"`
	Name              string            `json:"name"`
	FlavorTextEntries []FlavorTextEntry `json:"flavor_text_entries"`
	Genera            []Genus           `json:"genera"`
	EvolutionChain    *APIResource      `json:"evolution_chain"`
}

// FlavorTextEntry is a localized Pokédex entry.
type FlavorTextEntry struct {
	FlavorText string        `json:"flavor_text"`
	Language   NamedResource `json:"language"`
	Version    NamedResource `json:"version"`
}

// Genus is a localized genus ("Lizard Pokémon").
type Genus struct {
	Genus    string        `json:"genus"`
	Language NamedResource `json:"language"`
}

// EvolutionChain is the /evolution-chain/{id} record.
type EvolutionChain struct {
	ID    int       `json:"id"`
	Chain ChainLink `json:"chain"`
}

// ChainLink is one node of the evolution tree.
type ChainLink struct {
	Species          NamedResource     `json:"species"`
	EvolvesTo        []ChainLink       `json:"evolves_to"`
	EvolutionDetails []EvolutionDetail `json:"evolution_details"`
}

// EvolutionDetail describes how a node is reached from its parent.
type EvolutionDetail struct {
	MinLevel *int           `json:"min_level"`
	Item     *NamedResource `json:"item"`
	Trigger  *NamedResource `json:"trigger"`
}
