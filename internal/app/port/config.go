package port

import "balance_tracker/internal/domain/entity"

// PlanProvider defines the interface for obtaining the tracking plan of the next cycle.
type PlanProvider interface {
	Plan() (*entity.TrackingPlan, error)
}
