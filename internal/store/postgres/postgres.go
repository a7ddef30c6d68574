// Package postgres is the pooled Deployment Store dialect: PostgreSQL via
// pgx's stdlib database/sql adapter, JSONB columns, and a real connection
// pool — the dialect of choice for a multi-node or higher-throughput
// control plane deployment, versus sqlite's single-writer file store.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"

	"github.com/corvus-paas/control-plane/internal/models"
	"github.com/corvus-paas/control-plane/internal/store"
	"github.com/corvus-paas/control-plane/internal/store/dialect"
)

const schema = `
CREATE TABLE IF NOT EXISTS deployments (
	id               TEXT PRIMARY KEY,
	project_name     TEXT NOT NULL,
	source           TEXT NOT NULL,
	repo             TEXT,
	branch           TEXT,
	filename         TEXT,
	deployment_type  TEXT NOT NULL,
	status           TEXT NOT NULL,
	container_id     TEXT,
	host_port        INTEGER,
	url              TEXT NOT NULL DEFAULT '',
	direct_url       TEXT NOT NULL DEFAULT '',
	config           JSONB NOT NULL DEFAULT '{}',
	environment_variables JSONB NOT NULL DEFAULT '[]',
	version          INTEGER NOT NULL DEFAULT 1,
	custom_domain    TEXT,
	volume_path      TEXT,
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_deployments_status ON deployments(status);
CREATE INDEX IF NOT EXISTS idx_deployments_container_id ON deployments(container_id);

CREATE TABLE IF NOT EXISTS deployment_versions (
	deployment_id TEXT NOT NULL,
	version       INTEGER NOT NULL,
	container_id  TEXT NOT NULL,
	timestamp     TIMESTAMPTZ NOT NULL,
	config_snapshot JSONB NOT NULL DEFAULT '{}',
	status        TEXT NOT NULL,
	PRIMARY KEY (deployment_id, version)
);

CREATE TABLE IF NOT EXISTS metrics (
	deployment_id TEXT NOT NULL,
	ts            TIMESTAMPTZ NOT NULL,
	cpu_percent   DOUBLE PRECISION NOT NULL,
	memory_mb     DOUBLE PRECISION NOT NULL,
	net_rx_mb     DOUBLE PRECISION NOT NULL,
	net_tx_mb     DOUBLE PRECISION NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_metrics_deployment_id ON metrics(deployment_id);
CREATE INDEX IF NOT EXISTS idx_metrics_timestamp ON metrics(ts);

CREATE TABLE IF NOT EXISTS custom_domains (
	deployment_id TEXT PRIMARY KEY,
	domain        TEXT UNIQUE NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL
);
`

// Store is the PostgreSQL-backed store.Store implementation.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

var _ store.Store = (*Store)(nil)

// Open connects to PostgreSQL via the pgx stdlib driver, configures a
// bounded connection pool (unlike sqlite, Postgres handles concurrent
// writers natively), and runs the idempotent schema migration.
func Open(dsn string, logger zerolog.Logger) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("postgres unreachable: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to migrate postgres schema: %w", err)
	}

	logger.Info().Msg("postgres store connected and schema migrated")
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const deploymentColumns = `
	id, project_name, source, repo, branch, filename,
	deployment_type, status, container_id, host_port,
	url, direct_url, config, environment_variables, version,
	custom_domain, volume_path, created_at, updated_at
`

func (s *Store) CreateDeployment(ctx context.Context, d *models.Deployment) error {
	now := store.UtcNow()
	d.CreatedAt, d.UpdatedAt = now, now
	return s.upsert(ctx, d)
}

func (s *Store) UpsertDeployment(ctx context.Context, d *models.Deployment) error {
	d.UpdatedAt = store.UtcNow()
	return s.upsert(ctx, d)
}

func (s *Store) upsert(ctx context.Context, d *models.Deployment) error {
	configJSON, envJSON, err := dialect.MarshalDeploymentJSON(d)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO deployments (` + deploymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (id) DO UPDATE SET
			project_name = excluded.project_name,
			source = excluded.source,
			repo = excluded.repo,
			branch = excluded.branch,
			filename = excluded.filename,
			deployment_type = excluded.deployment_type,
			status = excluded.status,
			container_id = excluded.container_id,
			host_port = excluded.host_port,
			url = excluded.url,
			direct_url = excluded.direct_url,
			config = excluded.config,
			environment_variables = excluded.environment_variables,
			version = excluded.version,
			custom_domain = excluded.custom_domain,
			volume_path = excluded.volume_path,
			updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, query,
		d.ID, d.ProjectName, d.Source, d.Repo, d.Branch, d.Filename,
		d.DeploymentType, d.Status, d.ContainerID, d.HostPort,
		d.URL, d.DirectURL, configJSON, envJSON, d.Version,
		d.CustomDomain, d.VolumePath, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert deployment %q: %w", d.ID, err)
	}
	return nil
}

func (s *Store) GetDeployment(ctx context.Context, id string) (*models.Deployment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+deploymentColumns+` FROM deployments WHERE id = $1`, id)
	d, err := dialect.ScanDeployment(row)
	if dialect.IsNoRows(err) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deployment %q: %w", id, err)
	}
	return d, nil
}

func (s *Store) ListDeployments(ctx context.Context) ([]*models.Deployment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+deploymentColumns+` FROM deployments ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list deployments: %w", err)
	}
	defer rows.Close()

	var out []*models.Deployment
	for rows.Next() {
		d, err := dialect.ScanDeployment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deployment row: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) DeleteDeployment(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM deployments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete deployment %q: %w", id, err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM deployment_versions WHERE deployment_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete versions for deployment %q: %w", id, err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM metrics WHERE deployment_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete metrics for deployment %q: %w", id, err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM custom_domains WHERE deployment_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete custom domain for deployment %q: %w", id, err)
	}
	return nil
}

func (s *Store) AddVersion(ctx context.Context, v *models.DeploymentVersion) error {
	configJSON, err := json.Marshal(v.ConfigSnapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal config_snapshot for %q v%d: %w", v.DeploymentID, v.Version, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO deployment_versions (deployment_id, version, container_id, timestamp, config_snapshot, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (deployment_id, version) DO UPDATE SET
			container_id = excluded.container_id,
			timestamp = excluded.timestamp,
			config_snapshot = excluded.config_snapshot,
			status = excluded.status
	`, v.DeploymentID, v.Version, v.ContainerID, v.Timestamp, string(configJSON), v.Status)
	if err != nil {
		return fmt.Errorf("failed to add version %d for deployment %q: %w", v.Version, v.DeploymentID, err)
	}
	return nil
}

func (s *Store) ListVersions(ctx context.Context, deploymentID string) ([]*models.DeploymentVersion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT deployment_id, version, container_id, timestamp, config_snapshot, status
		FROM deployment_versions WHERE deployment_id = $1 ORDER BY version DESC
	`, deploymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions for deployment %q: %w", deploymentID, err)
	}
	defer rows.Close()

	var out []*models.DeploymentVersion
	for rows.Next() {
		v, err := dialect.ScanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan version row: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) GetVersion(ctx context.Context, deploymentID string, version int) (*models.DeploymentVersion, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT deployment_id, version, container_id, timestamp, config_snapshot, status
		FROM deployment_versions WHERE deployment_id = $1 AND version = $2
	`, deploymentID, version)
	v, err := dialect.ScanVersion(row)
	if dialect.IsNoRows(err) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get version %d for deployment %q: %w", version, deploymentID, err)
	}
	return v, nil
}

func (s *Store) PruneVersions(ctx context.Context, deploymentID string, keep int) ([]*models.DeploymentVersion, error) {
	all, err := s.ListVersions(ctx, deploymentID)
	if err != nil {
		return nil, err
	}
	if len(all) <= keep {
		return nil, nil
	}

	pruned := all[keep:]
	for _, v := range pruned {
		if _, err := s.db.ExecContext(ctx, `
			DELETE FROM deployment_versions WHERE deployment_id = $1 AND version = $2
		`, deploymentID, v.Version); err != nil {
			return nil, fmt.Errorf("failed to prune version %d for deployment %q: %w", v.Version, deploymentID, err)
		}
	}
	return pruned, nil
}

func (s *Store) InsertMetricSample(ctx context.Context, m *models.MetricSample) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metrics (deployment_id, ts, cpu_percent, memory_mb, net_rx_mb, net_tx_mb)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, m.DeploymentID, m.Timestamp, m.CPUPercent, m.MemoryMB, m.NetRxMB, m.NetTxMB)
	if err != nil {
		return fmt.Errorf("failed to insert metric sample for deployment %q: %w", m.DeploymentID, err)
	}
	return nil
}

func (s *Store) QueryMetrics(ctx context.Context, deploymentID string, hours int) ([]*models.MetricSample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT deployment_id, ts, cpu_percent, memory_mb, net_rx_mb, net_tx_mb
		FROM metrics WHERE deployment_id = $1 ORDER BY ts DESC LIMIT $2
	`, deploymentID, store.MetricsLimit(hours))
	if err != nil {
		return nil, fmt.Errorf("failed to query metrics for deployment %q: %w", deploymentID, err)
	}
	defer rows.Close()

	var out []*models.MetricSample
	for rows.Next() {
		m, err := dialect.ScanMetric(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan metric row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) UpsertCustomDomain(ctx context.Context, c *models.CustomDomain) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = store.UtcNow()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO custom_domains (deployment_id, domain, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (deployment_id) DO UPDATE SET domain = excluded.domain
	`, c.DeploymentID, c.Domain, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert custom domain for deployment %q: %w", c.DeploymentID, err)
	}
	return nil
}

func (s *Store) GetCustomDomain(ctx context.Context, domain string) (*models.CustomDomain, error) {
	row := s.db.QueryRowContext(ctx, `SELECT deployment_id, domain, created_at FROM custom_domains WHERE domain = $1`, domain)
	c, err := dialect.ScanCustomDomain(row)
	if dialect.IsNoRows(err) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get custom domain %q: %w", domain, err)
	}
	return c, nil
}

func (s *Store) DeleteCustomDomain(ctx context.Context, deploymentID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM custom_domains WHERE deployment_id = $1`, deploymentID); err != nil {
		return fmt.Errorf("failed to delete custom domain for deployment %q: %w", deploymentID, err)
	}
	return nil
}
