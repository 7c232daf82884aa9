package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"n8n-workflows/internal/services"
	"n8n-workflows/internal/workflowfile"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE...",
		Short: "Check workflow files without contacting n8n",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range args {
				definition, err := workflowfile.Load(path)
				if err == nil {
					err = workflowfile.Validate(definition)
				}
				var ve *workflowfile.ValidationError
				switch {
				case errors.As(err, &ve):
					failed++
					fmt.Fprintf(out, "%s: invalid\n", path)
					for _, p := range ve.Problems {
						fmt.Fprintf(out, "  - %s\n", p)
					}
				case err != nil:
					failed++
					fmt.Fprintf(out, "%s: %v\n", path, err)
				default:
					fmt.Fprintf(out, "%s: ok\n", path)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed validation", failed, len(args))
			}
			return nil
		},
	}
}

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded deploy-and-run attempts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := a.store(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()
			if store == nil {
				return fmt.Errorf("%w: set DB_HOST to record deployments", services.ErrNoHistory)
			}

			deployments, err := store.ListDeployments(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(deployments) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No deployments recorded")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CREATED\tSTATUS\tWORKFLOW\tNAME\tERROR")
			for _, d := range deployments {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					d.CreatedAt.Local().Format("2006-01-02 15:04:05"), d.Status, d.WorkflowID, d.WorkflowName, d.Error)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of deployments to show")
	return cmd
}
