// Package dialect holds SQL scanning/marshaling helpers shared by the
// sqlite and postgres Store implementations, so the two dialects stay
// structurally identical and only differ in placeholder syntax, driver
// name, and JSON column type.
package dialect

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/corvus-paas/control-plane/internal/models"
)

// Scanner abstracts over *sql.Row and *sql.Rows so ScanDeployment works for
// both QueryRow and Query call sites.
type Scanner interface {
	Scan(dest ...any) error
}

// ScanDeployment reads one deployments row, unmarshaling the JSON-encoded
// config and environment_variables columns back into their struct forms.
func ScanDeployment(s Scanner) (*models.Deployment, error) {
	var d models.Deployment
	var configJSON, envJSON string

	err := s.Scan(
		&d.ID, &d.ProjectName, &d.Source, &d.Repo, &d.Branch, &d.Filename,
		&d.DeploymentType, &d.Status, &d.ContainerID, &d.HostPort,
		&d.URL, &d.DirectURL, &configJSON, &envJSON, &d.Version,
		&d.CustomDomain, &d.VolumePath, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(configJSON), &d.Config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config for deployment %q: %w", d.ID, err)
	}
	if envJSON != "" {
		if err := json.Unmarshal([]byte(envJSON), &d.EnvironmentVariables); err != nil {
			return nil, fmt.Errorf("failed to unmarshal environment_variables for deployment %q: %w", d.ID, err)
		}
	}
	return &d, nil
}

// MarshalDeploymentJSON encodes the config/env columns ahead of an insert or
// upsert.
func MarshalDeploymentJSON(d *models.Deployment) (configJSON, envJSON string, err error) {
	configBytes, err := json.Marshal(d.Config)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal config for deployment %q: %w", d.ID, err)
	}
	envBytes, err := json.Marshal(d.EnvironmentVariables)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal environment_variables for deployment %q: %w", d.ID, err)
	}
	return string(configBytes), string(envBytes), nil
}

// ScanVersion reads one deployment_versions row.
func ScanVersion(s Scanner) (*models.DeploymentVersion, error) {
	var v models.DeploymentVersion
	var configJSON string

	if err := s.Scan(&v.DeploymentID, &v.Version, &v.ContainerID, &v.Timestamp, &configJSON, &v.Status); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(configJSON), &v.ConfigSnapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config_snapshot for %q v%d: %w", v.DeploymentID, v.Version, err)
	}
	return &v, nil
}

// ScanMetric reads one metrics row.
func ScanMetric(s Scanner) (*models.MetricSample, error) {
	var m models.MetricSample
	if err := s.Scan(&m.DeploymentID, &m.Timestamp, &m.CPUPercent, &m.MemoryMB, &m.NetRxMB, &m.NetTxMB); err != nil {
		return nil, err
	}
	return &m, nil
}

// ScanCustomDomain reads one custom_domains row.
func ScanCustomDomain(s Scanner) (*models.CustomDomain, error) {
	var c models.CustomDomain
	if err := s.Scan(&c.DeploymentID, &c.Domain, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// IsNoRows reports whether err is the sentinel "no matching row" error.
func IsNoRows(err error) bool {
	return err == sql.ErrNoRows
}
