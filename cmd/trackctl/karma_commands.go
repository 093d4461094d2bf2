package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
)

func newKarmaCommand(ctx *commandContext) *cobra.Command {
	karmaCmd := &cobra.Command{
		Use:   "karma",
		Short: "Inspect and rebuild user karma",
	}

	karmaCmd.AddCommand(&cobra.Command{
		Use:   "show <userID>",
		Short: "Show karma folded from the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agg, err := ctx.aggregator()
			if err != nil {
				return err
			}
			karma, err := agg.Karma(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("karma for user %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %s: %d\n", args[0], karma)
			return nil
		},
	})

	karmaCmd.AddCommand(&cobra.Command{
		Use:   "recompute [userID...]",
		Short: "Rebuild cached karma from the ledger (all users when no IDs are given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			agg, err := ctx.aggregator()
			if err != nil {
				return err
			}

			result := make(map[string]int, len(args))
			if len(args) == 0 {
				result, err = agg.RecomputeAll(cmd.Context())
				if err != nil {
					return fmt.Errorf("recompute karma: %w", err)
				}
			}
			for _, id := range args {
				karma, err := agg.Recompute(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("recompute karma for user %s: %w", id, err)
				}
				result[id] = karma
			}

			if len(result) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No ledger entries")
				return nil
			}

			ids := make([]string, 0, len(result))
			for id := range result {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			rows := make([][]string, 0, len(ids))
			for _, id := range ids {
				rows = append(rows, []string{id, strconv.Itoa(result[id])})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"User", "Karma"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	})

	return karmaCmd
}
