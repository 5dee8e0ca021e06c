package aggregate

import (
	"strconv"

	"github.com/Sternrassler/pokedex-client/pkg/pokeapi"
)

// Transition labels.
const (
	BaseForm       = "Base Form"
	SpecialTrigger = "Special"
)

// EvolutionStage is one node of a flattened evolution chain.
type EvolutionStage struct {
	Name      string `json:"name"`
	ID        string `json:"id"`
	ImageURL  string `json:"image_url"`
	Trigger   string `json:"trigger"`
	IsCurrent bool   `json:"is_current"`
}

// FlattenEvolution walks the chain in pre-order. Each stage is labelled by
// its own evolution detail, inheriting the parent's label when it has
// none; the root is always BaseForm. Every stage named currentName is
// marked current.
func FlattenEvolution(root pokeapi.ChainLink, currentName string) []EvolutionStage {
	stages := flatten(root, BaseForm, currentName)
	if len(stages) > 0 {
		stages[0].Trigger = BaseForm
	}
	return stages
}

func flatten(link pokeapi.ChainLink, parentLabel, currentName string) []EvolutionStage {
	label := TriggerLabel(link.EvolutionDetails, parentLabel)
	id := pokeapi.IDFromURL(link.Species.URL)

	stages := []EvolutionStage{{
		Name:      link.Species.Name,
		ID:        id,
		ImageURL:  pokeapi.ArtworkURL(id),
		Trigger:   label,
		IsCurrent: link.Species.Name == currentName,
	}}
	for _, child := range link.EvolvesTo {
		stages = append(stages, flatten(child, label, currentName)...)
	}
	return stages
}

// TriggerLabel describes how a stage is reached from the first of its
// evolution details: minimum level, then item, then trigger name, then
// SpecialTrigger. Without details the inherited label is returned.
func TriggerLabel(details []pokeapi.EvolutionDetail, inherited string) string {
	if len(details) == 0 {
		return inherited
	}

	d := details[0]
	switch {
	case d.MinLevel != nil && *d.MinLevel != 0:
		return "Lvl " + strconv.Itoa(*d.MinLevel)
	case d.Item != nil && d.Item.Name != "":
		return "Use " + pokeapi.Humanize(d.Item.Name)
	case d.Trigger != nil && d.Trigger.Name != "":
		return pokeapi.Humanize(d.Trigger.Name)
	default:
		return SpecialTrigger
	}
}
