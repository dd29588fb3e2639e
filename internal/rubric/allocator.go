package rubric

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/campusmis/rubric/internal/events"
	"github.com/campusmis/rubric/internal/store"
)

// Allocator turns an administrator's "add a category" intent into exact
// per-item rows, subject to the 100% ceiling. All validation that needs the
// ledger runs inside the store transaction while the subject lock is held.
type Allocator struct {
	store  store.Store
	events events.Client
	logger *slog.Logger
}

func NewAllocator(s store.Store, ev events.Client, logger *slog.Logger) *Allocator {
	return &Allocator{store: s, events: ev, logger: logger}
}

// EqualSplitRequest creates quantity components of one type sharing
// TotalWeight equally, remainder to the last item.
type EqualSplitRequest struct {
	SubjectID    int64
	Type         store.ComponentType
	Quantity     int
	TotalWeight  float64
	DisplayOrder int
	Actor        string
}

// MidtermSplitRequest creates the fixed Practical/Theoretical midterm pair
// with caller-specified weights instead of an equal partition.
type MidtermSplitRequest struct {
	SubjectID         int64
	PracticalWeight   float64
	TheoreticalWeight float64
	DisplayOrder      int
	Actor             string
}

func validWeight(field string, w float64) error {
	if w < 0 || w > WeightCeiling {
		return &RangeError{Field: field, Detail: fmt.Sprintf("%.2f not in [0, 100]", w)}
	}
	return nil
}

// AllocateEqualSplit validates the request, partitions the total weight into
// exact shares, and persists the batch atomically. Names continue the
// category's numbering: with 3 homeworks on file, the next batch starts at
// "Homework 4". Single-item allocations use the bare category label.
func (a *Allocator) AllocateEqualSplit(ctx context.Context, req EqualSplitRequest) ([]*store.GradeComponent, error) {
	if !req.Type.Valid() {
		return nil, &RangeError{Field: "component_type", Detail: fmt.Sprintf("unknown type %q", string(req.Type))}
	}
	if err := validWeight("total_weight", req.TotalWeight); err != nil {
		return nil, err
	}
	if req.Quantity < 1 || req.Quantity > MaxQuantity {
		return nil, &RangeError{Field: "quantity", Detail: fmt.Sprintf("%d not in [1, %d]", req.Quantity, MaxQuantity)}
	}

	created, err := a.store.AllocateComponents(ctx, req.SubjectID, req.Type,
		func(currentTotal float64, existingOfType int) ([]*store.GradeComponent, error) {
			if err := checkCeiling(currentTotal, req.TotalWeight); err != nil {
				return nil, err
			}
			shares := SplitWeight(req.TotalWeight, req.Quantity)
			if err := VerifySum(shares, req.TotalWeight); err != nil {
				return nil, err
			}

			start := existingOfType + 1
			rows := make([]*store.GradeComponent, 0, req.Quantity)
			for i, share := range shares {
				name := req.Type.Label()
				if req.Quantity > 1 {
					name = fmt.Sprintf("%s %d", name, start+i)
				}
				rows = append(rows, &store.GradeComponent{
					SubjectID:    req.SubjectID,
					Type:         req.Type,
					Name:         name,
					MaxScore:     share,
					Weight:       share,
					DisplayOrder: req.DisplayOrder + i,
				})
			}
			return rows, nil
		})
	if err != nil {
		a.countFailure(err)
		return nil, err
	}

	allocationsTotal.WithLabelValues("allocated").Inc()
	a.logger.Info("components allocated",
		"subject_id", req.SubjectID,
		"component_type", req.Type,
		"quantity", req.Quantity,
		"total_weight", req.TotalWeight,
	)
	a.recordEvent(ctx, req.SubjectID, "components.allocated", req.Actor, map[string]interface{}{
		"component_type": string(req.Type),
		"quantity":       req.Quantity,
		"total_weight":   req.TotalWeight,
	})
	a.publish(events.SubjectComponentsAllocated(req.SubjectID), events.ComponentsAllocatedEvent{
		SubjectID:   req.SubjectID,
		Type:        string(req.Type),
		Count:       len(created),
		TotalWeight: req.TotalWeight,
		Names:       componentNames(created),
		Actor:       req.Actor,
	})
	return created, nil
}

// AllocateMidtermSplit bypasses the equal partition: exactly two midterm
// components with caller-specified weights, at DisplayOrder and
// DisplayOrder+1. The pair's combined weight is checked against the ceiling
// the same way an equal-split allocation is.
func (a *Allocator) AllocateMidtermSplit(ctx context.Context, req MidtermSplitRequest) ([]*store.GradeComponent, error) {
	if err := validWeight("practical_weight", req.PracticalWeight); err != nil {
		return nil, err
	}
	if err := validWeight("theoretical_weight", req.TheoreticalWeight); err != nil {
		return nil, err
	}

	combined := req.PracticalWeight + req.TheoreticalWeight
	created, err := a.store.AllocateComponents(ctx, req.SubjectID, store.TypeMidterm,
		func(currentTotal float64, _ int) ([]*store.GradeComponent, error) {
			if err := checkCeiling(currentTotal, combined); err != nil {
				return nil, err
			}
			return []*store.GradeComponent{
				{
					SubjectID:    req.SubjectID,
					Type:         store.TypeMidterm,
					Name:         "Midterm Practical",
					MaxScore:     req.PracticalWeight,
					Weight:       req.PracticalWeight,
					DisplayOrder: req.DisplayOrder,
				},
				{
					SubjectID:    req.SubjectID,
					Type:         store.TypeMidterm,
					Name:         "Midterm Theoretical",
					MaxScore:     req.TheoreticalWeight,
					Weight:       req.TheoreticalWeight,
					DisplayOrder: req.DisplayOrder + 1,
				},
			}, nil
		})
	if err != nil {
		a.countFailure(err)
		return nil, err
	}

	allocationsTotal.WithLabelValues("allocated").Inc()
	a.logger.Info("midterm split allocated",
		"subject_id", req.SubjectID,
		"practical_weight", req.PracticalWeight,
		"theoretical_weight", req.TheoreticalWeight,
	)
	a.recordEvent(ctx, req.SubjectID, "midterm.split_allocated", req.Actor, map[string]interface{}{
		"practical_weight":   req.PracticalWeight,
		"theoretical_weight": req.TheoreticalWeight,
	})
	a.publish(events.SubjectComponentsAllocated(req.SubjectID), events.ComponentsAllocatedEvent{
		SubjectID:   req.SubjectID,
		Type:        string(store.TypeMidterm),
		Count:       len(created),
		TotalWeight: combined,
		Names:       componentNames(created),
		Actor:       req.Actor,
	})
	return created, nil
}

func (a *Allocator) countFailure(err error) {
	var ce *CeilingError
	if errors.As(err, &ce) {
		ceilingRejectionsTotal.Inc()
		allocationsTotal.WithLabelValues("ceiling_exceeded").Inc()
		return
	}
	allocationsTotal.WithLabelValues("rejected").Inc()
}

func (a *Allocator) recordEvent(ctx context.Context, subjectID int64, action, actor string, payload map[string]interface{}) {
	err := a.store.CreateRubricEvent(ctx, &store.RubricEvent{
		SubjectID: subjectID,
		Action:    action,
		Actor:     actor,
		Payload:   payload,
	})
	if err != nil {
		a.logger.Warn("failed to record rubric event", "action", action, "error", err)
	}
}

func (a *Allocator) publish(subject string, data interface{}) {
	if a.events == nil {
		return
	}
	if err := a.events.Publish(subject, data); err != nil {
		a.logger.Warn("failed to publish event", "subject", subject, "error", err)
	}
}

func componentNames(components []*store.GradeComponent) []string {
	names := make([]string, len(components))
	for i, c := range components {
		names[i] = c.Name
	}
	return names
}
