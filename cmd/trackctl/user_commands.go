package main

import (
	"fmt"

	"github.com/VitaminP8/trackid/internal/model"

	"github.com/spf13/cobra"
)

func newUserCommand(ctx *commandContext) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "User administration",
	}

	var verifiedArtist bool
	roleCmd := &cobra.Command{
		Use:   "role <username> <user|artist|moderator>",
		Short: "Change the account type of a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			accountType := model.AccountType(args[1])
			if !accountType.Valid() {
				return fmt.Errorf("unknown account type %q", args[1])
			}
			if verifiedArtist && accountType != model.AccountArtist {
				return fmt.Errorf("--verified-artist requires account type %q", model.AccountArtist)
			}

			stores, err := ctx.ensureStores()
			if err != nil {
				return err
			}
			u, err := stores.Users.GetUserByUsername(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("find user %s: %w", args[0], err)
			}
			u, err = stores.Users.SetAccountType(cmd.Context(), u.ID, accountType, verifiedArtist)
			if err != nil {
				return fmt.Errorf("update user %s: %w", args[0], err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s (id %s) is now %s", u.Username, u.ID, u.AccountType)
			if u.VerifiedArtist {
				fmt.Fprint(cmd.OutOrStdout(), ", verified")
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
	roleCmd.Flags().BoolVar(&verifiedArtist, "verified-artist", false, "Mark the artist account as verified")
	userCmd.AddCommand(roleCmd)

	return userCmd
}
