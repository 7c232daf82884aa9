package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"n8n-workflows/internal/n8n"
	"n8n-workflows/internal/workflowfile"
	"n8n-workflows/pkg/models"
)

func newCreateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create FILE",
		Short: "Create a workflow from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			definition, err := workflowfile.Load(args[0])
			if err != nil {
				return err
			}
			client, err := a.client()
			if err != nil {
				return err
			}
			wf, err := client.Create(cmd.Context(), definition)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), wf)
		},
	}
}

func newUpdateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "update ID FILE",
		Short: "Replace a workflow with the definition in FILE",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			definition, err := workflowfile.Load(args[1])
			if err != nil {
				return err
			}
			client, err := a.client()
			if err != nil {
				return err
			}
			wf, err := client.Update(cmd.Context(), args[0], definition)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), wf)
		},
	}
}

func newGetCmd(a *app) *cobra.Command {
	var saveTo string
	cmd := &cobra.Command{
		Use:   "get ID",
		Short: "Print a workflow definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			wf, err := client.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if saveTo != "" {
				if err := workflowfile.Save(saveTo, wf); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved workflow %s to %s\n", wf.ID, saveTo)
				return nil
			}
			return printJSON(cmd.OutOrStdout(), wf)
		},
	}
	cmd.Flags().StringVar(&saveTo, "save-to", "", "Write the definition to this file instead of stdout")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var opts n8n.ListOptions
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List workflows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			page, err := client.ListPage(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), page)
			}
			printWorkflows(cmd, page.Data)
			if page.NextCursor != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "\nMore results: --cursor %s\n", page.NextCursor)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.ActiveOnly, "active", false, "Only list active workflows")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Page size")
	cmd.Flags().StringVar(&opts.Cursor, "cursor", "", "Cursor returned by a previous page")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw page as JSON")
	return cmd
}

func printWorkflows(cmd *cobra.Command, workflows []models.Workflow) {
	if len(workflows) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No workflows found")
		return
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tACTIVE\tNAME")
	for _, wf := range workflows {
		fmt.Fprintf(tw, "%s\t%t\t%s\n", wf.ID, wf.Active, wf.Name)
	}
	tw.Flush()
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			if err := client.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted workflow %s\n", args[0])
			return nil
		},
	}
}

func newToggleCmd(a *app, active bool) *cobra.Command {
	use, short := "activate ID", "Activate a workflow so its triggers start listening"
	if !active {
		use, short = "deactivate ID", "Deactivate a workflow"
	}
	var patch bool
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			var wf *models.Workflow
			switch {
			case patch:
				wf, err = client.SetActive(cmd.Context(), args[0], active)
			case active:
				wf, err = client.Activate(cmd.Context(), args[0])
			default:
				wf, err = client.Deactivate(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Workflow %s active=%t\n", wf.ID, wf.Active)
			return nil
		},
	}
	cmd.Flags().BoolVar(&patch, "patch", false, "Use PATCH /workflows/{id} instead of the activate endpoints")
	return cmd
}

func newExecuteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:        "execute ID",
		Short:      "Run a workflow through the execute endpoint",
		Deprecated: "most n8n versions do not expose it; use trigger or deploy instead",
		Args:       cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			//nolint:staticcheck
			result, err := client.Execute(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printRaw(cmd.OutOrStdout(), result)
		},
	}
}
