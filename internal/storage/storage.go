// Package storage persists longitudinal drift reports and the per
// service/environment run index used to find history.
package storage

import (
	"context"

	"github.com/felixgeelhaar/apidrift/internal/report"
)

// Storage is the read and write side of report history.
type Storage interface {
	report.History

	// SaveReport persists r and records it in its service/environment index.
	SaveReport(ctx context.Context, r *report.ReportV2) error
}
