package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"n8n-workflows/internal/config"
	"n8n-workflows/internal/logging"
	"n8n-workflows/internal/n8n"
	"n8n-workflows/internal/repository"
	"n8n-workflows/internal/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type app struct {
	envFile  string
	host     string
	apiKey   string
	logLevel string

	cfg    *config.Config
	logger *logging.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "n8nctl",
		Short:         "Manage and trigger n8n workflows",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.envFile, "env", "", "Path to .env file (default ./.env when present)")
	flags.StringVar(&a.host, "host", "", "n8n base URL (overrides N8N_HOST)")
	flags.StringVar(&a.apiKey, "api-key", "", "n8n API key (overrides N8N_API_KEY)")
	flags.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")

	root.AddCommand(
		newCreateCmd(a),
		newUpdateCmd(a),
		newGetCmd(a),
		newListCmd(a),
		newDeleteCmd(a),
		newToggleCmd(a, true),
		newToggleCmd(a, false),
		newExecuteCmd(a),
		newTriggerCmd(a),
		newWebhookURLCmd(a),
		newDeployCmd(a),
		newSeedCmd(a),
		newValidateCmd(a),
		newHistoryCmd(a),
		newServeCmd(a),
	)

	return root
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(a.envFile)
	if err != nil {
		return err
	}
	if a.host != "" {
		cfg.N8N.Host = config.NormalizeHost(a.host)
	}
	if a.apiKey != "" {
		cfg.N8N.APIKey = a.apiKey
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	a.cfg = cfg
	a.logger = logging.New(cmd.ErrOrStderr(), cfg.Log.Level)
	return nil
}

func (a *app) client() (*n8n.Client, error) {
	return n8n.NewFromConfig(a.cfg, n8n.WithLogger(a.logger))
}

// deployService returns a service that records history when a database is
// configured. The returned close function releases the connection pool.
func (a *app) deployService(ctx context.Context) (*services.DeployService, repository.DeploymentStore, func(), error) {
	client, err := a.client()
	if err != nil {
		return nil, nil, nil, err
	}
	store, closeStore, err := a.store(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	return services.NewDeployService(client, store, a.logger), store, closeStore, nil
}

// store opens the history database, or returns a nil store when none is
// configured.
func (a *app) store(ctx context.Context) (repository.DeploymentStore, func(), error) {
	if !a.cfg.DatabaseConfigured() {
		return nil, func() {}, nil
	}
	a.logger.Debug("Initializing database connection", "host", a.cfg.DB.Host, "database", a.cfg.DB.Name)
	pool, err := repository.Connect(ctx, a.cfg.DatabaseURL())
	if err != nil {
		return nil, nil, err
	}
	store := repository.NewPostgresDeploymentStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to create deployments table: %w", err)
	}
	return store, pool.Close, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printRaw pretty-prints a JSON response body.
func printRaw(w io.Writer, raw json.RawMessage) error {
	if len(raw) == 0 {
		_, err := fmt.Fprintln(w, "(no content)")
		return err
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		_, err = fmt.Fprintln(w, string(raw))
		return err
	}
	return printJSON(w, v)
}

// parseData decodes a --data flag value. "@file" reads the body from a file.
func parseData(data string) (interface{}, error) {
	if data == "" {
		return nil, nil
	}
	raw := []byte(data)
	if data[0] == '@' {
		b, err := os.ReadFile(data[1:])
		if err != nil {
			return nil, err
		}
		raw = b
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("--data is not valid JSON")
	}
	return json.RawMessage(raw), nil
}
