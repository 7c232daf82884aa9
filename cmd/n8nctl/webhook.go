package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"n8n-workflows/internal/n8n"
	"n8n-workflows/internal/workflowfile"
	"n8n-workflows/pkg/models"
)

func newTriggerCmd(a *app) *cobra.Command {
	var method, data string
	cmd := &cobra.Command{
		Use:   "trigger PATH",
		Short: "Call the production webhook of an active workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := parseData(data)
			if err != nil {
				return err
			}
			client, err := a.client()
			if err != nil {
				return err
			}
			result, err := client.TriggerWebhook(cmd.Context(), args[0], method, body)
			if err != nil {
				return err
			}
			return printRaw(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVarP(&method, "method", "X", "GET", "HTTP method: GET, POST, PUT or DELETE")
	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON body for POST and PUT, or @file")
	return cmd
}

func newWebhookURLCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "webhook-url ID",
		Short: "Print the production webhook URL of a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			path, ok, err := client.ResolveWebhookPath(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return &n8n.NoWebhookTriggerError{WorkflowID: args[0]}
			}
			fmt.Fprintln(cmd.OutOrStdout(), client.WebhookURL(path))
			return nil
		},
	}
}

func newDeployCmd(a *app) *cobra.Command {
	var opts n8n.DeployOptions
	var data string
	cmd := &cobra.Command{
		Use:   "deploy FILE",
		Short: "Create, activate and trigger the workflow in FILE",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := parseData(data)
			if err != nil {
				return err
			}
			opts.Body = body

			svc, _, closeStore, err := a.deployService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			result, err := svc.DeployFile(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			return printDeployResult(cmd, result)
		},
	}
	cmd.Flags().StringVar(&opts.WebhookPath, "path", "", "Webhook path to trigger instead of looking it up")
	cmd.Flags().StringVarP(&opts.Method, "method", "X", "GET", "HTTP method: GET, POST, PUT or DELETE")
	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON body for POST and PUT, or @file")
	return cmd
}

func newSeedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Deploy and trigger the bundled Hello World workflow",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, closeStore, err := a.deployService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			result, err := svc.DeployAndRun(cmd.Context(), workflowfile.HelloWorld(), n8n.DeployOptions{})
			if err != nil {
				return err
			}
			return printDeployResult(cmd, result)
		},
	}
}

func printDeployResult(cmd *cobra.Command, result *models.DeployResult) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Workflow:    %s (%s)\n", result.WorkflowName, result.WorkflowID)
	fmt.Fprintf(out, "Webhook URL: %s\n", result.WebhookURL)
	fmt.Fprintln(out, "Result:")
	return printRaw(out, result.ExecutionResult)
}
