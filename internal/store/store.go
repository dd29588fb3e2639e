package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ComponentType tags a grade component with its category. The set of valid
// values is fixed and mirrored by a CHECK constraint on the table, so an
// insert with anything else fails at the storage boundary too.
type ComponentType string

const (
	TypeHomework  ComponentType = "homework"
	TypeQuiz      ComponentType = "quiz"
	TypeReport    ComponentType = "report"
	TypeProject   ComponentType = "project"
	TypeExam      ComponentType = "exam"
	TypeMidterm   ComponentType = "midterm"
	TypeFinal     ComponentType = "final"
	TypeLabReport ComponentType = "lab_report"
	TypeActivity  ComponentType = "activity"
	TypeSeminar   ComponentType = "seminar"
)

// ComponentTypes lists every valid category in canonical order.
var ComponentTypes = []ComponentType{
	TypeHomework, TypeQuiz, TypeReport, TypeProject, TypeExam,
	TypeMidterm, TypeFinal, TypeLabReport, TypeActivity, TypeSeminar,
}

var typeLabels = map[ComponentType]string{
	TypeHomework:  "Homework",
	TypeQuiz:      "Quiz",
	TypeReport:    "Report",
	TypeProject:   "Project",
	TypeExam:      "Exam",
	TypeMidterm:   "Midterm",
	TypeFinal:     "Final",
	TypeLabReport: "Lab Report",
	TypeActivity:  "Activity",
	TypeSeminar:   "Seminar",
}

// Valid reports whether t is one of the fixed component types.
func (t ComponentType) Valid() bool {
	_, ok := typeLabels[t]
	return ok
}

// Label returns the human-readable category name, e.g. "Lab Report".
func (t ComponentType) Label() string {
	if label, ok := typeLabels[t]; ok {
		return label
	}
	return string(t)
}

// ParseComponentType validates a raw category tag from a request.
func ParseComponentType(s string) (ComponentType, error) {
	t := ComponentType(s)
	if !t.Valid() {
		return "", ErrUnknownType
	}
	return t, nil
}

// GradeComponent is one gradable rubric item within a subject.
//
// MaxScore is written equal to Weight on every allocation path: a 5%-weight
// homework is graded out of 5 points, so downstream reporting can average
// raw scores straight into percentages. Only a direct component edit may
// diverge the two.
type GradeComponent struct {
	ID           int64         `json:"id"`
	SubjectID    int64         `json:"subject_id"`
	Type         ComponentType `json:"component_type"`
	Name         string        `json:"component_name"`
	MaxScore     float64       `json:"max_score"`
	Weight       float64       `json:"weight_percentage"`
	DisplayOrder int           `json:"display_order"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// CategoryWeight is a per-category slice of a subject's rubric.
type CategoryWeight struct {
	Type        ComponentType `json:"component_type"`
	Count       int           `json:"count"`
	TotalWeight float64       `json:"total_weight"`
}

// SubjectWeightSummary is the read model callers use to render validity
// indicators next to the rubric.
type SubjectWeightSummary struct {
	SubjectID   int64            `json:"subject_id"`
	TotalWeight float64          `json:"total_weight"`
	Remaining   float64          `json:"remaining"`
	Categories  []CategoryWeight `json:"categories"`
}

// RubricEvent is one audit row recording a structural rubric change.
type RubricEvent struct {
	ID        uuid.UUID              `json:"id"`
	SubjectID int64                  `json:"subject_id"`
	Action    string                 `json:"action"`
	Actor     string                 `json:"actor,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

var (
	// ErrUnknownType marks a component_type outside the fixed enumeration.
	ErrUnknownType = errors.New("unknown component type")
	// ErrNotFound marks a lookup of a component that does not exist.
	ErrNotFound = errors.New("component not found")
	// ErrCategoryNotFound marks a category operation against a type with no
	// components for the subject.
	ErrCategoryNotFound = errors.New("category has no components")
)

// AllocationFn builds the rows to insert for one allocation, given the
// subject's current total weight and how many components of the target type
// already exist. It runs inside the store transaction while the subject's
// advisory lock is held; returning an error aborts with nothing persisted.
type AllocationFn func(currentTotal float64, existingOfType int) ([]*GradeComponent, error)

// RebalanceFn recomputes per-item weights for an existing category given the
// subject's total weight, the category's current subtotal, and its item
// count. The returned slice must have exactly count entries; each component
// of the category, in (display_order, id) order, gets the matching weight
// and the same value as its max score.
type RebalanceFn func(subjectTotal, categoryTotal float64, count int) ([]float64, error)

// ReorderFn maps component IDs to new display_order values given the
// subject's current components in (display_order, component_type, id) order.
// IDs absent from the map are left untouched.
type ReorderFn func(components []*GradeComponent) (map[int64]int, error)

// CeilingCheckFn accepts or rejects the subject total that a single-item
// edit would produce.
type CeilingCheckFn func(wouldBeTotal float64) error

// Store is the weight ledger: the persisted source of truth for a subject's
// grade components. Mutating operations are transactional and serialize on a
// per-subject advisory lock so the ceiling check and the writes that depend
// on it are one indivisible unit under concurrent callers.
type Store interface {
	TotalWeight(ctx context.Context, subjectID int64) (float64, error)
	ComponentsOf(ctx context.Context, subjectID int64) ([]*GradeComponent, error)
	CountOfType(ctx context.Context, subjectID int64, t ComponentType) (int, error)
	GetComponent(ctx context.Context, id int64) (*GradeComponent, error)
	WeightSummary(ctx context.Context, subjectID int64) (*SubjectWeightSummary, error)

	AllocateComponents(ctx context.Context, subjectID int64, t ComponentType, fn AllocationFn) ([]*GradeComponent, error)
	RebalanceCategory(ctx context.Context, subjectID int64, t ComponentType, fn RebalanceFn) (int, error)
	DeleteCategory(ctx context.Context, subjectID int64, t ComponentType) ([]*GradeComponent, error)
	ReorderComponents(ctx context.Context, subjectID int64, fn ReorderFn) (int, error)
	UpdateComponent(ctx context.Context, c *GradeComponent, check CeilingCheckFn) error
	DeleteComponent(ctx context.Context, id int64) (*GradeComponent, error)

	CreateRubricEvent(ctx context.Context, e *RubricEvent) error
	GetRubricEvents(ctx context.Context, subjectID int64, limit int) ([]*RubricEvent, error)

	Close() error
}
