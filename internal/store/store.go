// Package store is the Deployment Store: a relational persistence layer
// behind a single Store interface, with two interchangeable dialects
// (internal/store/sqlite, internal/store/postgres). Raw database/sql and
// hand-written SQL are used throughout, deliberately avoiding an ORM so the
// schema and every query stay auditable in the code itself.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/corvus-paas/control-plane/internal/models"
)

// ErrNotFound is returned when a lookup by ID matches no row.
var ErrNotFound = errors.New("store: record not found")

// Store is the persistence contract both dialects implement. Deployment,
// version and custom-domain writes are single-statement upserts keyed by
// their primary key; metric samples are plain inserts, and DeleteDeployment
// and PruneVersions run one DELETE statement per table or version.
type Store interface {
	CreateDeployment(ctx context.Context, d *models.Deployment) error
	UpsertDeployment(ctx context.Context, d *models.Deployment) error
	GetDeployment(ctx context.Context, id string) (*models.Deployment, error)
	ListDeployments(ctx context.Context) ([]*models.Deployment, error)
	DeleteDeployment(ctx context.Context, id string) error

	AddVersion(ctx context.Context, v *models.DeploymentVersion) error
	ListVersions(ctx context.Context, deploymentID string) ([]*models.DeploymentVersion, error)
	GetVersion(ctx context.Context, deploymentID string, version int) (*models.DeploymentVersion, error)
	// PruneVersions deletes every version beyond the most recent `keep` for a
	// deployment and returns the deleted versions so the caller can stop
	// their containers; the rows are already gone when it returns.
	PruneVersions(ctx context.Context, deploymentID string, keep int) ([]*models.DeploymentVersion, error)

	InsertMetricSample(ctx context.Context, m *models.MetricSample) error
	QueryMetrics(ctx context.Context, deploymentID string, hours int) ([]*models.MetricSample, error)

	UpsertCustomDomain(ctx context.Context, c *models.CustomDomain) error
	GetCustomDomain(ctx context.Context, domain string) (*models.CustomDomain, error)
	DeleteCustomDomain(ctx context.Context, deploymentID string) error

	Close() error
}

// MaxRetainedVersions is the cap on how many DeploymentVersion rows are kept
// per deployment before the oldest is evicted, per spec.md §3.
const MaxRetainedVersions = 10

// MetricsLimit bounds a QueryMetrics call to at most hours*60 rows, per
// spec.md §4.6 ("at most hours × 60 most-recent samples").
func MetricsLimit(hours int) int {
	if hours <= 0 {
		hours = 1
	}
	return hours * 60
}

// UtcNow is the single clock both dialects stamp created_at/updated_at
// with, keeping timestamps comparable regardless of server timezone.
func UtcNow() time.Time {
	return time.Now().UTC()
}
