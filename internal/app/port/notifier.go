package port

import (
	"context"

	"balance_tracker/internal/domain/entity"
)

// ReportSink receives every finished report.
type ReportSink interface {
	Publish(ctx context.Context, report *entity.Report) error
}

// Alerter delivers operational alerts (errors, fatal shutdowns) to a human.
type Alerter interface {
	Alert(ctx context.Context, text string) error
}
