package model

// CompositeEvent groups consecutive memories that belong to one inferred
// real-world event, with an optional date range of its own.
type CompositeEvent struct {
	ID          string     `json:"id"`
	EventName   string     `json:"event_name"`
	Description string     `json:"description"`
	StartDate   string     `json:"start_date,omitempty"`
	EndDate     string     `json:"end_date,omitempty"`
	MemoryIDs   []MemoryID `json:"memory_ids"`
}

// Knowledge is a background fact inferred from the collection, retrieved as a
// side channel during query fusion and never unioned into the candidate set.
type Knowledge struct {
	ID        string     `json:"id"`
	Fact      string     `json:"knowledge"`
	MemoryIDs []MemoryID `json:"memory_ids"`
}
