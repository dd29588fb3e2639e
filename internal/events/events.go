package events

type ComponentsAllocatedEvent struct {
	SubjectID   int64    `json:"subject_id"`
	Type        string   `json:"component_type"`
	Count       int      `json:"count"`
	TotalWeight float64  `json:"total_weight"`
	Names       []string `json:"names,omitempty"`
	Actor       string   `json:"actor,omitempty"`
}

type CategoryRebalancedEvent struct {
	SubjectID int64   `json:"subject_id"`
	Type      string  `json:"component_type"`
	NewTotal  float64 `json:"new_total_weight"`
	Count     int     `json:"count"`
	Actor     string  `json:"actor,omitempty"`
}

type CategoryDeletedEvent struct {
	SubjectID    int64  `json:"subject_id"`
	Type         string `json:"component_type"`
	RemovedCount int    `json:"removed_count"`
	Actor        string `json:"actor,omitempty"`
}

type CategoriesReorderedEvent struct {
	SubjectID int64    `json:"subject_id"`
	Order     []string `json:"order"`
	Count     int      `json:"reordered_count"`
	Actor     string   `json:"actor,omitempty"`
}

type ComponentUpdatedEvent struct {
	SubjectID   int64   `json:"subject_id"`
	ComponentID int64   `json:"component_id"`
	Weight      float64 `json:"weight_percentage"`
	Actor       string  `json:"actor,omitempty"`
}

type ComponentDeletedEvent struct {
	SubjectID   int64  `json:"subject_id"`
	ComponentID int64  `json:"component_id"`
	Actor       string `json:"actor,omitempty"`
}
