package main

import (
	"context"
	"encoding/json"
	"fmt"
	"mend/internal/model"
	"mend/internal/repository"
	"mend/internal/service"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func commissionsCmd(load func() (*app, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commissions",
		Short: "List commissions and move them through pending, invoiced and paid",
	}

	cmd.AddCommand(commissionsListCmd(load))
	cmd.AddCommand(commissionTransitionCmd(load, "mark-invoiced", "Mark a pending commission as invoiced",
		func(ctx context.Context, a *app, id, user string) (*model.Commission, error) {
			return a.commissions.MarkInvoiced(ctx, id, user)
		}))
	cmd.AddCommand(commissionTransitionCmd(load, "mark-paid", "Mark an invoiced commission as paid",
		func(ctx context.Context, a *app, id, user string) (*model.Commission, error) {
			return a.commissions.MarkPaid(ctx, id, user)
		}))

	return cmd
}

func commissionsListCmd(load func() (*app, error)) *cobra.Command {
	var (
		userID string
		status string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List commissions with totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load()
			if err != nil {
				return err
			}

			report, err := a.commissions.List(cmd.Context(), repository.CommissionFilter{
				UserID: userID,
				Status: model.CommissionStatus(status),
			}, false)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tUSER\tRECOVERED\tCOMMISSION\tSTATUS\tPERIOD")
			for _, c := range report.Commissions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					c.ID,
					c.UserID,
					service.FormatAmount(c.AmountRecovered),
					service.FormatAmount(c.CommissionAmount),
					c.Status,
					c.PeriodStart.Format("2006-01"),
				)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(out, "\nowed $%s  pending %d  invoiced %d  paid %d\n",
				service.FormatAmount(report.Stats.TotalOwed),
				report.Stats.PendingCount,
				report.Stats.InvoicedCount,
				report.Stats.PaidCount,
			)
			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "Only commissions owed by this user")
	cmd.Flags().StringVarP(&status, "status", "s", "", "Only commissions in this status (pending, invoiced, paid)")
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Output as JSON")

	return cmd
}

func commissionTransitionCmd(
	load func() (*app, error),
	use, short string,
	action func(ctx context.Context, a *app, id, user string) (*model.Commission, error),
) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   use + " [commission-id]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load()
			if err != nil {
				return err
			}

			commission, err := action(cmd.Context(), a, args[0], userID)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "commission %s is now %s\n", commission.ID, commission.Status)
			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "User the commission belongs to")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
