package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/erazemk/powerlister/internal/model"
	"github.com/erazemk/powerlister/internal/store"
)

// withApp wires the components, runs fn and releases them.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, opts.cfg, opts.logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func newSeedCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Store the demo items if the inventory is empty",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				seeded, err := store.SeedDemoItems(ctx, a.kv)
				if err != nil {
					return err
				}
				if seeded {
					fmt.Fprintf(cmd.OutOrStdout(), "Stored %d demo items.\n", len(store.DemoItems()))
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Inventory is not empty, nothing stored.")
				}
				return nil
			})
		},
	}
}

func newItemsCmd(opts *rootOptions) *cobra.Command {
	var filter store.ItemFilter

	cmd := &cobra.Command{
		Use:   "items",
		Short: "List inventory items",
		Example: `  powerlister items
  powerlister items --status listed
  powerlister items -q iphone --category Electronics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch filter.Status {
			case "", model.ItemStatusDraft, model.ItemStatusListed, model.ItemStatusSold:
			default:
				return fmt.Errorf("invalid status %q: must be draft, listed or sold", filter.Status)
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				items, err := store.ListItems(ctx, a.kv, filter)
				if err != nil {
					return err
				}
				printItems(cmd.OutOrStdout(), items)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&filter.Status, "status", "", "draft, listed or sold")
	cmd.Flags().StringVar(&filter.Category, "category", "", "category name")
	cmd.Flags().StringVarP(&filter.Query, "query", "q", "", "search title, description and brand")
	return cmd
}

func newItemCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "item <id>",
		Short: "Show a single item as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				item, err := store.GetItem(ctx, a.kv, args[0])
				if err != nil {
					return err
				}
				if item == nil {
					return fmt.Errorf("item %s not found", args[0])
				}
				return printJSON(cmd.OutOrStdout(), item)
			})
		},
	}
}

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <item> <marketplace>",
		Short: "List an item on a marketplace",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				item, err := a.lifecycle.List(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Listed %q on %s (listing %s). Status: %s\n",
					item.Title, args[1], item.ListingID(args[1]), item.Status())
				return nil
			})
		},
	}
}

func newUnlistCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unlist <item> <marketplace>",
		Short: "Take an item down from a marketplace",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				item, err := a.lifecycle.Unlist(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Unlisted %q from %s. Status: %s\n", item.Title, args[1], item.Status())
				return nil
			})
		},
	}
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show inventory statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				items, err := store.LoadItems(ctx, a.kv)
				if err != nil {
					return err
				}
				s := model.ComputeStats(items)

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintf(tw, "Total items:\t%d\n", s.TotalItems)
				fmt.Fprintf(tw, "Listed:\t%d\n", s.ListedItems)
				fmt.Fprintf(tw, "Sold:\t%d\n", s.SoldItems)
				fmt.Fprintf(tw, "Drafts:\t%d\n", s.DraftItems)
				fmt.Fprintf(tw, "Total value:\t$%.2f\n", s.TotalValue)
				fmt.Fprintf(tw, "Sold value:\t$%.2f\n", s.SoldValue)
				fmt.Fprintf(tw, "Average price:\t$%.2f\n", s.AvgPrice)
				fmt.Fprintf(tw, "Conversion rate:\t%.1f%%\n", s.ConversionRate)
				return tw.Flush()
			})
		},
	}
}

func newMarketplacesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "marketplaces",
		Short: "Show supported marketplaces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				conns, err := store.ListConnections(ctx, a.kv)
				if err != nil {
					return err
				}
				connected := make(map[string]bool, len(conns))
				for _, c := range conns {
					connected[c.MarketplaceID] = true
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tAPI\tCONNECTED")
				for _, d := range a.registry.All() {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.ID, d.Name, yesNo(d.HasAPI), yesNo(connected[d.ID]))
				}
				return tw.Flush()
			})
		},
	}
}

func printItems(w io.Writer, items []model.Item) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No items.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tPRICE\tSTATUS\tMARKETPLACES")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t$%.2f\t%s\t%s\n",
			it.ID, it.Title, it.Price, it.Status(), strings.Join(it.Marketplaces, ","))
	}
	tw.Flush()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
