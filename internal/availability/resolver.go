// Package availability resolves the bookable slots for a doctor on a date.
// Slot materialization is lazy on the backend, so resolution is two-phase:
// use the slots the availability endpoint returns, otherwise fetch them for
// the date's schedule.
package availability

import (
	"context"
	"fmt"

	"github.com/oakwell/portal-api/internal/ehr"
	"github.com/oakwell/portal-api/pkg/logging"
)

// Backend is the subset of the EHR client the resolver needs.
type Backend interface {
	Availability(ctx context.Context, doctorID, date, serviceID string) (*ehr.Availability, error)
	ScheduleSlots(ctx context.Context, scheduleID string) ([]ehr.Slot, error)
}

// Result is a point-in-time snapshot of a doctor's bookable slots.
// NoAvailability distinguishes "doctor has no schedule this day" from an
// empty-but-scheduled day and from resolution failures.
type Result struct {
	Slots          []ehr.Slot
	NoAvailability bool
}

// Resolver performs the two-phase slot lookup.
type Resolver struct {
	backend Backend
	logger  *logging.Logger
}

// NewResolver creates a resolver over the EHR backend.
func NewResolver(backend Backend, logger *logging.Logger) *Resolver {
	if backend == nil {
		panic("availability: backend required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{backend: backend, logger: logger}
}

// ResolveSlots returns the bookable slots for doctorID on date, optionally
// scoped to a medical service. The snapshot must be re-resolved whenever any
// input changes. Backend failures propagate; callers must not treat them as
// "no availability".
func (r *Resolver) ResolveSlots(ctx context.Context, doctorID, date, serviceID string) (*Result, error) {
	avail, err := r.backend.Availability(ctx, doctorID, date, serviceID)
	if err != nil {
		return nil, fmt.Errorf("availability: resolve %s/%s: %w", doctorID, date, err)
	}

	// Phase 1: the availability response already carries materialized slots.
	if len(avail.AvailableSlots) > 0 {
		return &Result{Slots: annotate(avail.AvailableSlots, date)}, nil
	}

	// Phase 2: schedules exist but slots were never materialized; fetch them
	// for the first schedule. Multiple schedules on one date is a backend
	// anomaly; only the first is used.
	if len(avail.Schedules) > 0 {
		if len(avail.Schedules) > 1 {
			r.logger.Warn("multiple schedules for one date, using first",
				"doctor_id", doctorID,
				"date", date,
				"schedules", len(avail.Schedules),
			)
		}
		sched := avail.Schedules[0]
		slots, err := r.backend.ScheduleSlots(ctx, sched.ID)
		if err != nil {
			return nil, fmt.Errorf("availability: materialize schedule %s: %w", sched.ID, err)
		}
		return &Result{Slots: annotate(slots, sched.Date)}, nil
	}

	// Neither slots nor schedules: the doctor has no availability this day.
	return &Result{Slots: []ehr.Slot{}, NoAvailability: true}, nil
}

func annotate(slots []ehr.Slot, date string) []ehr.Slot {
	out := make([]ehr.Slot, 0, len(slots))
	for _, s := range slots {
		if s.Date == "" {
			s.Date = date
		}
		out = append(out, s)
	}
	return out
}
