package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/pokedex-client/pkg/aggregate"
)

type listOptions struct {
	page       int
	jsonOutput bool
	all        bool
	favorites  []int
}

func newListCmd(rootFlags *rootFlags) *cobra.Command {
	opts := &listOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one gallery page of Pokémon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, rootFlags, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.page, "page", "p", 1, "Page number (1-based)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output the page as JSON")
	cmd.Flags().BoolVar(&opts.all, "all", false, "List every name instead of one enriched page")
	cmd.Flags().IntSliceVar(&opts.favorites, "favorite", nil, "Mark ids as favourites")

	return cmd
}

func runList(cmd *cobra.Command, rootFlags *rootFlags, opts *listOptions) error {
	if opts.page < 1 {
		return fmt.Errorf("page must be >= 1 (got %d)", opts.page)
	}

	c, err := rootFlags.newClient(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer c.Close()

	if opts.all {
		names, err := c.AllNames(cmd.Context())
		if err != nil {
			return fmt.Errorf("list names: %w", err)
		}
		if opts.jsonOutput {
			return writeJSON(cmd, names)
		}
		for _, n := range names {
			fmt.Fprintln(cmd.OutOrStdout(), n.Name)
		}
		return nil
	}

	for _, id := range opts.favorites {
		c.ToggleFavorite(id)
	}

	page, err := c.Page(cmd.Context(), opts.page)
	if err != nil {
		return fmt.Errorf("load page %d: %w", opts.page, err)
	}
	if page.Cancelled {
		return cmd.Context().Err()
	}

	if opts.jsonOutput {
		return writeJSON(cmd, page)
	}
	renderPage(cmd, page)
	return nil
}

func renderPage(cmd *cobra.Command, page *aggregate.Page) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Page %d (%d Pokémon in total)\n\n", page.Number, page.Total)

	for _, item := range page.Items {
		card := item.Payload
		marker := " "
		if card.IsFavorite {
			marker = "*"
		}
		fmt.Fprintf(out, "%s #%-5s %-14s", marker, item.Identity, card.Name)
		if item.Placeholder {
			fmt.Fprintln(out, "(unavailable)")
			continue
		}
		fmt.Fprintf(out, "%-16s %s\n", strings.Join(card.Types, "/"), card.Description)
	}

	if page.HasNext {
		fmt.Fprintf(out, "\nNext: pokedex list --page %d\n", page.Number+1)
	}
}

func writeJSON(cmd *cobra.Command, v any) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
