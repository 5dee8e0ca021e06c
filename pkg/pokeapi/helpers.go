package pokeapi

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ArtworkBaseURL serves official artwork by numeric id.
const ArtworkBaseURL = "https://raw.githubusercontent.com/PokeAPI/sprites/master/sprites/pokemon/other/official-artwork/"

// Fallback texts for missing localized data.
const (
	NoDescription = "No description available."
	LanguageEN    = "en"
)

// PokemonListPath is the relative path of the Pokémon listing.
const PokemonListPath = "pokemon"

// PokemonPath returns the relative path of a Pokémon record.
func PokemonPath(nameOrID string) string {
	return "pokemon/" + strings.ToLower(strings.TrimSpace(nameOrID))
}

// ListPath returns the relative path of a /pokemon listing page.
func ListPath(limit, offset int) string {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	return PokemonListPath + "?" + q.Encode()
}

// ArtworkURL returns the official artwork URL for an id.
func ArtworkURL(id string) string {
	return ArtworkBaseURL + id + ".png"
}

// IDFromURL returns the trailing path segment of a resource URL,
// e.g. ".../pokemon-species/4/" -> "4".
func IDFromURL(resourceURL string) string {
	trimmed := strings.TrimRight(resourceURL, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

// ImageURL picks the best available image: official artwork, then dream
// world, then the default front sprite. Returns "" when none is present.
func (p *Pokemon) ImageURL() string {
	if o := p.Sprites.Other; o != nil {
		if o.OfficialArtwork != nil && nonEmpty(o.OfficialArtwork.FrontDefault) {
			return *o.OfficialArtwork.FrontDefault
		}
		if o.DreamWorld != nil && nonEmpty(o.DreamWorld.FrontDefault) {
			return *o.DreamWorld.FrontDefault
		}
	}
	if nonEmpty(p.Sprites.FrontDefault) {
		return *p.Sprites.FrontDefault
	}
	return ""
}

// ColorImageURL is the image used for colour derivation: official artwork or
// the default front sprite.
func (p *Pokemon) ColorImageURL() string {
	if o := p.Sprites.Other; o != nil && o.OfficialArtwork != nil && nonEmpty(o.OfficialArtwork.FrontDefault) {
		return *o.OfficialArtwork.FrontDefault
	}
	if nonEmpty(p.Sprites.FrontDefault) {
		return *p.Sprites.FrontDefault
	}
	return ""
}

// StatMap indexes base stats by stat name.
func (p *Pokemon) StatMap() map[string]int {
	stats := make(map[string]int, len(p.Stats))
	for _, s := range p.Stats {
		stats[s.Stat.Name] = s.BaseStat
	}
	return stats
}

// MoveNames returns up to max move names in upstream order.
func (p *Pokemon) MoveNames(max int) []string {
	names := make([]string, 0, max)
	for _, m := range p.Moves {
		if len(names) == max {
			break
		}
		names = append(names, m.Move.Name)
	}
	return names
}

// TypeNames returns the type names in slot order as delivered.
func (p *Pokemon) TypeNames() []string {
	names := make([]string, 0, len(p.Types))
	for _, t := range p.Types {
		names = append(names, t.Type.Name)
	}
	return names
}

// AbilityNames returns ability names with dashes replaced by spaces.
func (p *Pokemon) AbilityNames() []string {
	names := make([]string, 0, len(p.Abilities))
	for _, a := range p.Abilities {
		names = append(names, Humanize(a.Ability.Name))
	}
	return names
}

// HeightMeters converts decimetres to metres.
func (p *Pokemon) HeightMeters() string {
	return fmt.Sprintf("%.1f m", float64(p.Height)/10)
}

// WeightKilograms converts hectograms to kilograms.
func (p *Pokemon) WeightKilograms() string {
	return fmt.Sprintf("%.1f kg", float64(p.Weight)/10)
}

// SpeciesURL returns the species reference or "".
func (p *Pokemon) SpeciesURL() string {
	if p.Species == nil {
		return ""
	}
	return p.Species.URL
}

// EvolutionChainURL returns the evolution chain reference or "".
func (s *Species) EvolutionChainURL() string {
	if s.EvolutionChain == nil {
		return ""
	}
	return s.EvolutionChain.URL
}

var flavorReplacer = strings.NewReplacer("\n", " ", "\f", " ", "\r", " ")

// EnglishFlavorText returns the first English entry with line and form
// feeds flattened to spaces, or NoDescription.
func (s *Species) EnglishFlavorText() string {
	for _, e := range s.FlavorTextEntries {
		if e.Language.Name == LanguageEN {
			return flavorReplacer.Replace(e.FlavorText)
		}
	}
	return NoDescription
}

// EnglishGenus returns the first English genus or "".
func (s *Species) EnglishGenus() string {
	for _, g := range s.Genera {
		if g.Language.Name == LanguageEN {
			return g.Genus
		}
	}
	return ""
}

// Humanize turns an API slug ("thunder-stone") into words ("thunder stone").
func Humanize(slug string) string {
	return strings.ReplaceAll(slug, "-", " ")
}

func nonEmpty(s *string) bool {
	return s != nil && *s != ""
}
