package main

import (
	"fmt"
	"strconv"

	"github.com/VitaminP8/trackid/internal/model"

	"github.com/spf13/cobra"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Moderation queue",
	}

	var asJSON bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List posts awaiting moderator review, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			stores, err := ctx.ensureStores()
			if err != nil {
				return err
			}
			posts, err := stores.Posts.ListByStatus(cmd.Context(), model.StatusCommunity)
			if err != nil {
				return fmt.Errorf("list pending posts: %w", err)
			}

			if asJSON {
				return writeJSON(cmd, posts)
			}
			if len(posts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
				return nil
			}

			rows := make([][]string, 0, len(posts))
			for _, p := range posts {
				rows = append(rows, []string{
					p.ID,
					p.AuthorID,
					p.VerifiedComment(),
					strconv.FormatInt(p.Version, 10),
					p.UpdatedAt.Format("2006-01-02 15:04"),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Post", "Author", "Comment", "Version", "Updated"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
	listCmd.Flags().BoolVar(&asJSON, "json", false, "Print posts as JSON")
	queueCmd.AddCommand(listCmd)

	return queueCmd
}
