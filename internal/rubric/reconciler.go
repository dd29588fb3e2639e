package rubric

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/campusmis/rubric/internal/events"
	"github.com/campusmis/rubric/internal/store"
)

// Reconciler operates on whole categories as units: delete, total-weight
// edits with equal re-split, display reordering, and single-item edits.
// Every operation is all-or-nothing against the ledger.
type Reconciler struct {
	store  store.Store
	events events.Client
	logger *slog.Logger
}

func NewReconciler(s store.Store, ev events.Client, logger *slog.Logger) *Reconciler {
	return &Reconciler{store: s, events: ev, logger: logger}
}

// DeleteCategory removes every component of the type for the subject and
// returns the removed rows. Deletion only lowers the total, so no ceiling
// check applies.
func (r *Reconciler) DeleteCategory(ctx context.Context, subjectID int64, t store.ComponentType, actor string) ([]*store.GradeComponent, error) {
	if !t.Valid() {
		return nil, &RangeError{Field: "component_type", Detail: fmt.Sprintf("unknown type %q", string(t))}
	}
	removed, err := r.store.DeleteCategory(ctx, subjectID, t)
	if err != nil {
		return nil, err
	}
	reconcileOpsTotal.WithLabelValues("delete_category").Inc()
	r.logger.Info("category deleted",
		"subject_id", subjectID, "component_type", t, "removed", len(removed))
	r.recordEvent(ctx, subjectID, "category.deleted", actor, map[string]interface{}{
		"component_type": string(t),
		"removed_count":  len(removed),
	})
	r.publish(events.SubjectCategoryDeleted(subjectID), events.CategoryDeletedEvent{
		SubjectID:    subjectID,
		Type:         string(t),
		RemovedCount: len(removed),
		Actor:        actor,
	})
	return removed, nil
}

// EditCategoryTotal re-splits newTotal equally across the category's
// existing items, with the same rounding rule as allocation. The ceiling is
// checked against the subject total minus the category's current subtotal
// plus the new one.
func (r *Reconciler) EditCategoryTotal(ctx context.Context, subjectID int64, t store.ComponentType, newTotal float64, actor string) (int, error) {
	if !t.Valid() {
		return 0, &RangeError{Field: "component_type", Detail: fmt.Sprintf("unknown type %q", string(t))}
	}
	if err := validWeight("total_weight", newTotal); err != nil {
		return 0, err
	}

	updated, err := r.store.RebalanceCategory(ctx, subjectID, t,
		func(subjectTotal, categoryTotal float64, count int) ([]float64, error) {
			if err := checkCeiling(subjectTotal-categoryTotal, newTotal); err != nil {
				ceilingRejectionsTotal.Inc()
				return nil, err
			}
			shares := SplitWeight(newTotal, count)
			if err := VerifySum(shares, newTotal); err != nil {
				return nil, err
			}
			return shares, nil
		})
	if err != nil {
		return 0, err
	}

	reconcileOpsTotal.WithLabelValues("edit_category_total").Inc()
	r.logger.Info("category rebalanced",
		"subject_id", subjectID, "component_type", t,
		"new_total", newTotal, "updated", updated)
	r.recordEvent(ctx, subjectID, "category.rebalanced", actor, map[string]interface{}{
		"component_type":   string(t),
		"new_total_weight": newTotal,
		"updated_count":    updated,
	})
	r.publish(events.SubjectCategoryRebalanced(subjectID), events.CategoryRebalancedEvent{
		SubjectID: subjectID,
		Type:      string(t),
		NewTotal:  newTotal,
		Count:     updated,
		Actor:     actor,
	})
	return updated, nil
}

// ReorderCategories renumbers display orders per the caller's category
// sequence: base 100*position per category, sequential within. Categories
// not listed keep their current orders. Weights are untouched, so the
// ceiling cannot be violated; only an empty list is rejected.
func (r *Reconciler) ReorderCategories(ctx context.Context, subjectID int64, ordered []store.ComponentType, actor string) (int, error) {
	if len(ordered) == 0 {
		return 0, ErrEmptyOrder
	}
	for _, t := range ordered {
		if !t.Valid() {
			return 0, &RangeError{Field: "order", Detail: fmt.Sprintf("unknown type %q", string(t))}
		}
	}

	reordered, err := r.store.ReorderComponents(ctx, subjectID,
		func(components []*store.GradeComponent) (map[int64]int, error) {
			return RenumberCategories(components, ordered), nil
		})
	if err != nil {
		return 0, err
	}

	reconcileOpsTotal.WithLabelValues("reorder").Inc()
	r.logger.Info("categories reordered",
		"subject_id", subjectID, "categories", len(ordered), "components", reordered)
	order := make([]string, len(ordered))
	for i, t := range ordered {
		order[i] = string(t)
	}
	r.recordEvent(ctx, subjectID, "categories.reordered", actor, map[string]interface{}{
		"order":           order,
		"reordered_count": reordered,
	})
	r.publish(events.SubjectCategoriesReordered(subjectID), events.CategoriesReorderedEvent{
		SubjectID: subjectID,
		Order:     order,
		Count:     reordered,
		Actor:     actor,
	})
	return reordered, nil
}

// ComponentEdit is a direct single-item edit. All fields are written as
// given; MaxScore may diverge from Weight here, unlike the allocation paths.
type ComponentEdit struct {
	ID           int64
	Type         store.ComponentType
	Name         string
	MaxScore     float64
	Weight       float64
	DisplayOrder int
	Actor        string
}

// EditComponent updates one component. The subject ceiling is re-checked
// with the edited weight in place, so a manual edit cannot push the subject
// past 100% either.
func (r *Reconciler) EditComponent(ctx context.Context, edit ComponentEdit) (*store.GradeComponent, error) {
	if edit.Name == "" {
		return nil, &MissingFieldError{Field: "component_name"}
	}
	if !edit.Type.Valid() {
		return nil, &RangeError{Field: "component_type", Detail: fmt.Sprintf("unknown type %q", string(edit.Type))}
	}
	if err := validWeight("weight_percentage", edit.Weight); err != nil {
		return nil, err
	}
	if edit.MaxScore <= 0 {
		return nil, &RangeError{Field: "max_score", Detail: fmt.Sprintf("%.2f must be positive", edit.MaxScore)}
	}

	existing, err := r.store.GetComponent(ctx, edit.ID)
	if err != nil {
		return nil, err
	}

	c := &store.GradeComponent{
		ID:           edit.ID,
		SubjectID:    existing.SubjectID,
		Type:         edit.Type,
		Name:         edit.Name,
		MaxScore:     edit.MaxScore,
		Weight:       edit.Weight,
		DisplayOrder: edit.DisplayOrder,
		CreatedAt:    existing.CreatedAt,
	}
	err = r.store.UpdateComponent(ctx, c, func(wouldBeTotal float64) error {
		if wouldBeTotal > WeightCeiling+Epsilon {
			ceilingRejectionsTotal.Inc()
			return &CeilingError{
				CurrentTotal: wouldBeTotal - edit.Weight,
				Requested:    edit.Weight,
				WouldBeTotal: wouldBeTotal,
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	reconcileOpsTotal.WithLabelValues("edit_component").Inc()
	r.logger.Info("component updated",
		"component_id", edit.ID, "subject_id", c.SubjectID, "weight", edit.Weight)
	r.recordEvent(ctx, c.SubjectID, "component.updated", edit.Actor, map[string]interface{}{
		"component_id":      edit.ID,
		"weight_percentage": edit.Weight,
	})
	r.publish(events.SubjectComponentUpdated(c.SubjectID), events.ComponentUpdatedEvent{
		SubjectID:   c.SubjectID,
		ComponentID: edit.ID,
		Weight:      edit.Weight,
		Actor:       edit.Actor,
	})
	return c, nil
}

// DeleteComponent removes a single rubric item.
func (r *Reconciler) DeleteComponent(ctx context.Context, id int64, actor string) (*store.GradeComponent, error) {
	removed, err := r.store.DeleteComponent(ctx, id)
	if err != nil {
		return nil, err
	}
	reconcileOpsTotal.WithLabelValues("delete_component").Inc()
	r.logger.Info("component deleted",
		"component_id", id, "subject_id", removed.SubjectID)
	r.recordEvent(ctx, removed.SubjectID, "component.deleted", actor, map[string]interface{}{
		"component_id": id,
	})
	r.publish(events.SubjectComponentDeleted(removed.SubjectID), events.ComponentDeletedEvent{
		SubjectID:   removed.SubjectID,
		ComponentID: id,
		Actor:       actor,
	})
	return removed, nil
}

// TotalWeight is the read-through callers use for validity indicators.
func (r *Reconciler) TotalWeight(ctx context.Context, subjectID int64) (float64, error) {
	return r.store.TotalWeight(ctx, subjectID)
}

func (r *Reconciler) recordEvent(ctx context.Context, subjectID int64, action, actor string, payload map[string]interface{}) {
	err := r.store.CreateRubricEvent(ctx, &store.RubricEvent{
		SubjectID: subjectID,
		Action:    action,
		Actor:     actor,
		Payload:   payload,
	})
	if err != nil {
		r.logger.Warn("failed to record rubric event", "action", action, "error", err)
	}
}

func (r *Reconciler) publish(subject string, data interface{}) {
	if r.events == nil {
		return
	}
	if err := r.events.Publish(subject, data); err != nil {
		r.logger.Warn("failed to publish event", "subject", subject, "error", err)
	}
}
