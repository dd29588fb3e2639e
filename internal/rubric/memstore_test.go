package rubric

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campusmis/rubric/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore is an in-memory ledger for engine tests. Mutations mirror the
// Postgres store's transactional semantics: a callback error means nothing
// is applied.
type memStore struct {
	mu         sync.Mutex
	nextID     int64
	components map[int64]*store.GradeComponent
	events     []*store.RubricEvent
}

func newMemStore() *memStore {
	return &memStore{components: make(map[int64]*store.GradeComponent)}
}

func (m *memStore) sortedOf(subjectID int64) []*store.GradeComponent {
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

func (m *memStore) totalOf(subjectID int64) float64 {
	var total float64
	for _, c := range m.components {
		if c.SubjectID == subjectID {
			total += c.Weight
		}
	}
	return total
}

func (m *memStore) TotalWeight(_ context.Context, subjectID int64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalOf(subjectID), nil
}

func (m *memStore) ComponentsOf(_ context.Context, subjectID int64) ([]*store.GradeComponent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedOf(subjectID), nil
}

func (m *memStore) CountOfType(_ context.Context, subjectID int64, t store.ComponentType) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.components {
		if c.SubjectID == subjectID && c.Type == t {
			n++
		}
	}
	return n, nil
}

func (m *memStore) GetComponent(_ context.Context, id int64) (*store.GradeComponent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.components[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) WeightSummary(_ context.Context, subjectID int64) (*store.SubjectWeightSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	summary := &store.SubjectWeightSummary{SubjectID: subjectID}
	byType := make(map[store.ComponentType]*store.CategoryWeight)
	for _, c := range m.sortedOf(subjectID) {
		cw, ok := byType[c.Type]
		if !ok {
			summary.Categories = append(summary.Categories, store.CategoryWeight{Type: c.Type})
			cw = &summary.Categories[len(summary.Categories)-1]
			byType[c.Type] = cw
		}
		cw.Count++
		cw.TotalWeight += c.Weight
		summary.TotalWeight += c.Weight
	}
	summary.Remaining = 100 - summary.TotalWeight
	return summary, nil
}

func (m *memStore) AllocateComponents(_ context.Context, subjectID int64, t store.ComponentType, fn store.AllocationFn) ([]*store.GradeComponent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !t.Valid() {
		return nil, store.ErrUnknownType
	}
	existing := 0
	for _, c := range m.components {
		if c.SubjectID == subjectID && c.Type == t {
			existing++
		}
	}
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

func (m *memStore) RebalanceCategory(_ context.Context, subjectID int64, t store.ComponentType, fn store.RebalanceFn) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
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
		live.UpdatedAt = time.Now()
	}
	return len(members), nil
}

func (m *memStore) DeleteCategory(_ context.Context, subjectID int64, t store.ComponentType) ([]*store.GradeComponent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed []*store.GradeComponent
	for _, c := range m.sortedOf(subjectID) {
		if c.Type == t {
			removed = append(removed, c)
			delete(m.components, c.ID)
		}
	}
	return removed, nil
}

func (m *memStore) ReorderComponents(_ context.Context, subjectID int64, fn store.ReorderFn) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	orders, err := fn(m.sortedOf(subjectID))
	if err != nil {
		return 0, err
	}
	for id, order := range orders {
		if c, ok := m.components[id]; ok {
			c.DisplayOrder = order
			c.UpdatedAt = time.Now()
		}
	}
	return len(orders), nil
}

func (m *memStore) UpdateComponent(_ context.Context, c *store.GradeComponent, check store.CeilingCheckFn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.components[c.ID]
	if !ok {
		return store.ErrNotFound
	}
	if check != nil {
		if err := check(m.totalOf(c.SubjectID) - existing.Weight + c.Weight); err != nil {
			return err
		}
	}
	c.UpdatedAt = time.Now()
	cp := *c
	m.components[c.ID] = &cp
	return nil
}

func (m *memStore) DeleteComponent(_ context.Context, id int64) (*store.GradeComponent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.components[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	delete(m.components, id)
	return c, nil
}

func (m *memStore) CreateRubricEvent(_ context.Context, e *store.RubricEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	m.events = append(m.events, e)
	return nil
}

func (m *memStore) GetRubricEvents(_ context.Context, subjectID int64, limit int) ([]*store.RubricEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
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

func (m *memStore) Close() error { return nil }

// captureClient records published event subjects for assertions.
type captureClient struct {
	mu       sync.Mutex
	subjects []string
}

func (c *captureClient) Publish(subject string, _ interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subjects = append(c.subjects, subject)
	return nil
}

func (c *captureClient) Close() {}
