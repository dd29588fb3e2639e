package api

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/campusmis/rubric/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testStore is a minimal in-memory ledger backing handler tests. Callback
// errors leave it untouched, matching the transactional store.
type testStore struct {
	nextID     int64
	components map[int64]*store.GradeComponent
	events     []*store.RubricEvent
}

func newTestStore() *testStore {
	return &testStore{components: make(map[int64]*store.GradeComponent)}
}

func (m *testStore) sortedOf(subjectID int64) []*store.GradeComponent {
	var out []*store.GradeComponent
	for _, c := range m.components {
		if c.SubjectID == subjectID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *testStore) totalOf(subjectID int64) float64 {
	var total float64
	for _, c := range m.components {
		if c.SubjectID == subjectID {
			total += c.Weight
		}
	}
	return total
}

func (m *testStore) TotalWeight(_ context.Context, subjectID int64) (float64, error) {
	return m.totalOf(subjectID), nil
}

func (m *testStore) ComponentsOf(_ context.Context, subjectID int64) ([]*store.GradeComponent, error) {
	return m.sortedOf(subjectID), nil
}

func (m *testStore) CountOfType(_ context.Context, subjectID int64, t store.ComponentType) (int, error) {
	n := 0
	for _, c := range m.components {
		if c.SubjectID == subjectID && c.Type == t {
			n++
		}
	}
	return n, nil
}

func (m *testStore) GetComponent(_ context.Context, id int64) (*store.GradeComponent, error) {
	c, ok := m.components[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *testStore) WeightSummary(_ context.Context, subjectID int64) (*store.SubjectWeightSummary, error) {
	summary := &store.SubjectWeightSummary{SubjectID: subjectID}
	byType := make(map[store.ComponentType]int)
	for _, c := range m.sortedOf(subjectID) {
		idx, ok := byType[c.Type]
		if !ok {
			summary.Categories = append(summary.Categories, store.CategoryWeight{Type: c.Type})
			idx = len(summary.Categories) - 1
			byType[c.Type] = idx
		}
		summary.Categories[idx].Count++
		summary.Categories[idx].TotalWeight += c.Weight
		summary.TotalWeight += c.Weight
	}
	summary.Remaining = 100 - summary.TotalWeight
	return summary, nil
}

func (m *testStore) AllocateComponents(_ context.Context, subjectID int64, t store.ComponentType, fn store.AllocationFn) ([]*store.GradeComponent, error) {
	if !t.Valid() {
		return nil, store.ErrUnknownType
	}
	existing, _ := m.CountOfType(context.Background(), subjectID, t)
	rows, err := fn(m.totalOf(subjectID), existing)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	for _, c := range rows {
		m.nextID++
		c.ID = m.nextID
		c.CreatedAt = now
		c.UpdatedAt = now
		cp := *c
		m.components[c.ID] = &cp
	}
	return rows, nil
}

func (m *testStore) RebalanceCategory(_ context.Context, subjectID int64, t store.ComponentType, fn store.RebalanceFn) (int, error) {
	var members []*store.GradeComponent
	var categoryTotal float64
	for _, c := range m.sortedOf(subjectID) {
		if c.Type == t {
			members = append(members, c)
			categoryTotal += c.Weight
		}
	}
	if len(members) == 0 {
		return 0, store.ErrCategoryNotFound
	}
	weights, err := fn(m.totalOf(subjectID), categoryTotal, len(members))
	if err != nil {
		return 0, err
	}
	for i, c := range members {
		live := m.components[c.ID]
		live.Weight = weights[i]
		live.MaxScore = weights[i]
	}
	return len(members), nil
}

func (m *testStore) DeleteCategory(_ context.Context, subjectID int64, t store.ComponentType) ([]*store.GradeComponent, error) {
	var removed []*store.GradeComponent
	for _, c := range m.sortedOf(subjectID) {
		if c.Type == t {
			removed = append(removed, c)
			delete(m.components, c.ID)
		}
	}
	return removed, nil
}

func (m *testStore) ReorderComponents(_ context.Context, subjectID int64, fn store.ReorderFn) (int, error) {
	orders, err := fn(m.sortedOf(subjectID))
	if err != nil {
		return 0, err
	}
	for id, order := range orders {
		if c, ok := m.components[id]; ok {
			c.DisplayOrder = order
		}
	}
	return len(orders), nil
}

func (m *testStore) UpdateComponent(_ context.Context, c *store.GradeComponent, check store.CeilingCheckFn) error {
	existing, ok := m.components[c.ID]
	if !ok {
		return store.ErrNotFound
	}
	if check != nil {
		if err := check(m.totalOf(c.SubjectID) - existing.Weight + c.Weight); err != nil {
			return err
		}
	}
	cp := *c
	m.components[c.ID] = &cp
	return nil
}

func (m *testStore) DeleteComponent(_ context.Context, id int64) (*store.GradeComponent, error) {
	c, ok := m.components[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	delete(m.components, id)
	return c, nil
}

func (m *testStore) CreateRubricEvent(_ context.Context, e *store.RubricEvent) error {
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	m.events = append(m.events, e)
	return nil
}

func (m *testStore) GetRubricEvents(_ context.Context, subjectID int64, limit int) ([]*store.RubricEvent, error) {
	var out []*store.RubricEvent
	for i := len(m.events) - 1; i >= 0; i-- {
		if m.events[i].SubjectID != subjectID {
			continue
		}
		out = append(out, m.events[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *testStore) Close() error { return nil }
