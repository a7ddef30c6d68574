// Package models defines the data structures shared across the control plane.
// this package has no imports from other internal packages, making it the
// foundation of the dependency graph: store, executor, httpapi all import
// from here, never the other way around.
package models

import "time"

// DeploymentStatus is the lifecycle state of a Deployment. a named string
// type instead of a plain string enforces that only valid values are used
// at compile time when combined with the constants below.
type DeploymentStatus string

const (
	StatusQueued   DeploymentStatus = "queued"
	StatusBuilding DeploymentStatus = "building"
	StatusActive   DeploymentStatus = "active"
	StatusStopped  DeploymentStatus = "stopped"
	StatusFailed   DeploymentStatus = "failed"
)

// SourceKind is where a deployment's source files originate from.
type SourceKind string

const (
	SourceRemoteRepo      SourceKind = "remote_repo"
	SourceUploadedArchive SourceKind = "uploaded_archive"
)

// DeploymentType is the user's declared intent for the submission.
type DeploymentType string

const (
	TypeStatic  DeploymentType = "static"
	TypeService DeploymentType = "service"
)

// Runtime identifies the language/runtime the Project Detector recognized.
type Runtime string

const (
	RuntimePython Runtime = "python"
	RuntimeNode   Runtime = "nodejs"
	RuntimeJava   Runtime = "java"
	RuntimeStatic Runtime = "static"
)

// EnvVar is a single ordered environment-variable entry. EnvironmentVariables
// on Deployment is a slice of these, not a map, because spec order must be
// preserved across store round-trips and duplicate keys must not silently
// collapse the way a map would.
type EnvVar struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Config is the structured document of recognized deployment options,
// carried on Deployment.Config and snapshotted verbatim onto every
// DeploymentVersion at rollout time.
type Config struct {
	Runtime           Runtime `json:"runtime,omitempty"`
	EntryFile         string  `json:"entryFile,omitempty"`
	Port              int     `json:"port,omitempty"`
	BuildCommand      string  `json:"buildCommand,omitempty"`
	StartCommand      string  `json:"startCommand,omitempty"`
	PublishDir        string  `json:"publishDir,omitempty"`
	UseDevMode        bool    `json:"useDevMode,omitempty"`
	PersistentStorage bool    `json:"persistentStorage,omitempty"`
	VolumeName        string  `json:"volumeName,omitempty"`
	HealthCheckPath   string  `json:"healthCheckPath,omitempty"`
	AutoRestart       bool    `json:"autoRestart,omitempty"`
}

// Deployment is the root entity: a user-submitted project plus its running
// container and history.
type Deployment struct {
	ID             string         `json:"id" db:"id"`
	ProjectName    string         `json:"project_name" db:"project_name"`
	Source         SourceKind     `json:"source" db:"source"`
	Repo           *string        `json:"repo,omitempty" db:"repo"`
	Branch         *string        `json:"branch,omitempty" db:"branch"`
	Filename       *string        `json:"filename,omitempty" db:"filename"`
	DeploymentType DeploymentType `json:"deployment_type" db:"deployment_type"`
	Status         DeploymentStatus `json:"status" db:"status"`

	ContainerID *string `json:"container_id,omitempty" db:"container_id"`
	HostPort    *int    `json:"host_port,omitempty" db:"host_port"`

	URL       string `json:"url" db:"url"`
	DirectURL string `json:"direct_url" db:"direct_url"`

	Config               Config   `json:"config" db:"config"`
	EnvironmentVariables []EnvVar `json:"environment_variables" db:"environment_variables"`

	Version int `json:"version" db:"version"`

	CustomDomain *string `json:"custom_domain,omitempty" db:"custom_domain"`
	VolumePath   *string `json:"volume_path,omitempty" db:"volume_path"`

	CreatedAt time.Time `json:"timestamp" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ContainerLabelDeploymentID is the label key every engine-managed container
// carries so deletion/reconciliation can find every container for a
// deployment id without relying on naming conventions alone.
const ContainerLabelDeploymentID = "deployment_id"

// DeploymentVersion is a prior rollout of a deployment, retained for
// rollback. At most 10 are retained per deployment; adding an 11th deletes
// the oldest version's row, and the executor then stops that version's
// container.
type DeploymentVersion struct {
	DeploymentID   string    `json:"deployment_id" db:"deployment_id"`
	Version        int       `json:"version" db:"version"`
	ContainerID    string    `json:"container_id" db:"container_id"`
	Timestamp      time.Time `json:"timestamp" db:"timestamp"`
	ConfigSnapshot Config    `json:"config_snapshot" db:"config_snapshot"`
	Status         string    `json:"status" db:"status"` // always "previous" once superseded
}

// MetricSample is one point-in-time resource reading for a deployment's
// active container.
type MetricSample struct {
	DeploymentID string    `json:"deployment_id" db:"deployment_id"`
	Timestamp    time.Time `json:"ts" db:"ts"`
	CPUPercent   float64   `json:"cpu_percent" db:"cpu_percent"`
	MemoryMB     float64   `json:"memory_mb" db:"memory_mb"`
	NetRxMB      float64   `json:"net_rx_mb" db:"net_rx_mb"`
	NetTxMB      float64   `json:"net_tx_mb" db:"net_tx_mb"`
}

// CustomDomain records a deployment's custom domain, one row per deployment:
// an upsert replaces the domain, so earlier assignments are not kept. The
// value shown on a deployment is Deployment.CustomDomain; no request handler
// writes either one.
type CustomDomain struct {
	DeploymentID string    `json:"deployment_id" db:"deployment_id"`
	Domain       string    `json:"domain" db:"domain"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// DetectionResult is what the Project Detector produces from a directory
// tree: runtime/framework identification plus suggested build defaults.
type DetectionResult struct {
	Type      DeploymentType `json:"type"`
	Runtime   Runtime        `json:"runtime"`
	Framework string         `json:"framework"`
	Config    Config         `json:"config"`
}
