package main

import (
	"errors"
	"fmt"
	"mend/internal/service"
	"strings"

	"github.com/spf13/cobra"
)

func accountsCmd(load func() (*app, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage links between users and Stripe accounts",
	}

	cmd.AddCommand(accountsLinkCmd(load))
	cmd.AddCommand(accountsDeleteCmd(load))

	return cmd
}

func accountsLinkCmd(load func() (*app, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "link [user-id] [stripe-account-id]",
		Short: "Link a user to a connected Stripe account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !strings.HasPrefix(args[1], "acct_") {
				return fmt.Errorf("stripe account id must start with acct_, got %q", args[1])
			}

			a, err := load()
			if err != nil {
				return err
			}

			link, err := a.accounts.Link(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "linked %s to %s\n", link.UserID, link.StripeAccountID)
			return nil
		},
	}
}

func accountsDeleteCmd(load func() (*app, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [user-id]",
		Short: "Soft-delete a user's Mend data once no commissions are pending",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load()
			if err != nil {
				return err
			}

			err = a.accounts.Delete(cmd.Context(), args[0])
			var pending *service.PendingCommissionsError
			if errors.As(err, &pending) {
				return fmt.Errorf("refused: $%s pending across %d commission(s)", service.FormatAmount(pending.AmountCents), pending.Count)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "deleted data for %s\n", args[0])
			return nil
		},
	}
}
