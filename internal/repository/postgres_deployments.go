package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"n8n-workflows/pkg/models"
)

const schema = `CREATE TABLE IF NOT EXISTS deployments (
	id TEXT PRIMARY KEY,
	workflow_id TEXT NOT NULL DEFAULT '',
	workflow_name TEXT NOT NULL,
	webhook_url TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	result JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS deployments_created_at_idx ON deployments (created_at DESC);`

const deploymentColumns = "id, workflow_id, workflow_name, webhook_url, status, error, result, created_at"

// DefaultListLimit caps ListDeployments when no positive limit is given.
const DefaultListLimit = 50

// PostgresDeploymentStore is a PostgreSQL implementation of the DeploymentStore interface.
type PostgresDeploymentStore struct {
	db *pgxpool.Pool
}

// NewPostgresDeploymentStore creates a new PostgresDeploymentStore.
func NewPostgresDeploymentStore(db *pgxpool.Pool) *PostgresDeploymentStore {
	return &PostgresDeploymentStore{db: db}
}

// Connect opens a pool for connString and verifies it with a ping.
func Connect(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the deployments table if it is missing.
func (s *PostgresDeploymentStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schema)
	return err
}

// SaveDeployment inserts d, or replaces the row with the same ID.
func (s *PostgresDeploymentStore) SaveDeployment(ctx context.Context, d *models.Deployment) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	var result []byte
	if len(d.Result) > 0 {
		result = d.Result
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO deployments (`+deploymentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			workflow_id = EXCLUDED.workflow_id,
			workflow_name = EXCLUDED.workflow_name,
			webhook_url = EXCLUDED.webhook_url,
			status = EXCLUDED.status,
			error = EXCLUDED.error,
			result = EXCLUDED.result`,
		d.ID, d.WorkflowID, d.WorkflowName, d.WebhookURL, string(d.Status), d.Error, result, d.CreatedAt)
	return err
}

// GetDeployment retrieves a deployment by its ID.
func (s *PostgresDeploymentStore) GetDeployment(ctx context.Context, id string) (*models.Deployment, error) {
	row := s.db.QueryRow(ctx, "SELECT "+deploymentColumns+" FROM deployments WHERE id = $1", id)
	d, err := scanDeployment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ListDeployments returns the most recent deployments, newest first.
func (s *PostgresDeploymentStore) ListDeployments(ctx context.Context, limit int) ([]*models.Deployment, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.Query(ctx, "SELECT "+deploymentColumns+" FROM deployments ORDER BY created_at DESC, id LIMIT $1", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	deployments := []*models.Deployment{}
	for rows.Next() {
		d, err := scanDeployment(rows)
		if err != nil {
			return nil, err
		}
		deployments = append(deployments, d)
	}
	return deployments, rows.Err()
}

// Ping checks that the database is reachable.
func (s *PostgresDeploymentStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func scanDeployment(row pgx.Row) (*models.Deployment, error) {
	var d models.Deployment
	var status string
	var result []byte
	if err := row.Scan(&d.ID, &d.WorkflowID, &d.WorkflowName, &d.WebhookURL, &status, &d.Error, &result, &d.CreatedAt); err != nil {
		return nil, err
	}
	d.Status = models.DeploymentStatus(status)
	if len(result) > 0 {
		d.Result = json.RawMessage(result)
	}
	return &d, nil
}
