package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/pokedex-client/pkg/aggregate"
)

type showOptions struct {
	jsonOutput bool
}

func newShowCmd(rootFlags *rootFlags) *cobra.Command {
	opts := &showOptions{}

	cmd := &cobra.Command{
		Use:   "show <name|id>",
		Short: "Show the detail view of a Pokémon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, rootFlags, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output the detail as JSON")

	return cmd
}

func runShow(cmd *cobra.Command, rootFlags *rootFlags, subject string, opts *showOptions) error {
	if strings.TrimSpace(subject) == "" {
		return errors.New("name or id cannot be empty")
	}

	c, err := rootFlags.newClient(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer c.Close()

	detail, err := c.Detail(cmd.Context(), subject)
	if errors.Is(err, aggregate.ErrNotFound) {
		return fmt.Errorf("no Pokémon named %q: %w", subject, err)
	}
	if err != nil {
		return err
	}
	if detail.Cancelled {
		return cmd.Context().Err()
	}

	if opts.jsonOutput {
		return writeJSON(cmd, detail)
	}
	renderDetail(cmd, detail)
	return nil
}

func renderDetail(cmd *cobra.Command, d *aggregate.Detail) {
	out := cmd.OutOrStdout()
	p := d.Pokemon

	fmt.Fprintf(out, "#%d %s\n", p.ID, p.Name)
	if d.Genus != "" {
		fmt.Fprintf(out, "%s\n", d.Genus)
	}
	fmt.Fprintf(out, "\n%s\n\n", d.FlavorText)

	fmt.Fprintf(out, "Types:     %s\n", strings.Join(p.TypeNames(), ", "))
	fmt.Fprintf(out, "Abilities: %s\n", strings.Join(p.AbilityNames(), ", "))
	fmt.Fprintf(out, "Height:    %s\n", d.Height)
	fmt.Fprintf(out, "Weight:    %s\n", d.Weight)
	fmt.Fprintf(out, "Colours:   %s on %s\n", d.Colors.Text, d.Colors.Background)

	stats := p.StatMap()
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(out, "\nStats:")
	for _, name := range names {
		fmt.Fprintf(out, "  %-16s %3d\n", name, stats[name])
	}

	if len(d.Evolution) > 0 {
		fmt.Fprintln(out, "\nEvolution:")
		for _, stage := range d.Evolution {
			marker := " "
			if stage.IsCurrent {
				marker = ">"
			}
			fmt.Fprintf(out, "%s %-14s %s\n", marker, stage.Name, stage.Trigger)
		}
	}
}
