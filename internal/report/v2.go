package report

import (
	"context"
	"time"

	"github.com/felixgeelhaar/apidrift/internal/continuity"
	"github.com/felixgeelhaar/apidrift/internal/diff"
	"github.com/felixgeelhaar/apidrift/internal/drift"
	"github.com/felixgeelhaar/apidrift/internal/trend"
)

// SchemaVersion is written on every longitudinal report.
const SchemaVersion = "2.0"

// SpecChangeNote is the fixed note attached when the contract hash differs
// from the previous run's.
const SpecChangeNote = "Specification changed between compared runs"

// RunMetadata identifies one tracked run.
type RunMetadata struct {
	RunID       string    `json:"runId" yaml:"runId"`
	ExecutedAt  time.Time `json:"executedAt" yaml:"executedAt"`
	ServiceName string    `json:"serviceName" yaml:"serviceName"`
	Environment string    `json:"environment" yaml:"environment"`
	SpecHash    string    `json:"specHash" yaml:"specHash"`
	ToolVersion string    `json:"toolVersion" yaml:"toolVersion"`
}

// RunRef points at a stored run.
type RunRef struct {
	RunID       string    `json:"runId" yaml:"runId"`
	ExecutedAt  time.Time `json:"executedAt" yaml:"executedAt"`
	ServiceName string    `json:"serviceName,omitempty" yaml:"serviceName,omitempty"`
	Environment string    `json:"environment,omitempty" yaml:"environment,omitempty"`
}

// SpecChange records a contract hash change between the previous and the
// current run.
type SpecChange struct {
	PreviousHash string `json:"previousHash" yaml:"previousHash"`
	CurrentHash  string `json:"currentHash" yaml:"currentHash"`
	Note         string `json:"note" yaml:"note"`
}

// ReportV2 wraps an unmodified single-run report with run context.
type ReportV2 struct {
	SchemaVersion string             `json:"schemaVersion" yaml:"schemaVersion"`
	Report        drift.Report       `json:"report" yaml:"report"`
	Run           RunMetadata        `json:"run" yaml:"run"`
	PreviousRun   *RunRef            `json:"previousRun,omitempty" yaml:"previousRun,omitempty"`
	SpecChange    *SpecChange        `json:"specChange,omitempty" yaml:"specChange,omitempty"`
	Changes       []diff.ChangeEvent `json:"changes" yaml:"changes"`
	Trends        []trend.Summary    `json:"trends" yaml:"trends"`
	Continuity    *continuity.Signal `json:"continuity,omitempty" yaml:"continuity,omitempty"`
}

// Ref returns a reference to this report's run.
func (r *ReportV2) Ref() RunRef {
	return RunRef{
		RunID:       r.Run.RunID,
		ExecutedAt:  r.Run.ExecutedAt,
		ServiceName: r.Run.ServiceName,
		Environment: r.Run.Environment,
	}
}

// History is the read side of report storage. Lookup misses return nil
// values, not errors.
type History interface {
	LoadReport(ctx context.Context, runID string) (*ReportV2, error)
	PreviousRun(ctx context.Context, serviceName, environment string) (*RunRef, error)
	ListRecentRuns(ctx context.Context, serviceName, environment string, limit int) ([]RunRef, error)
}
