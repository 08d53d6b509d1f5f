package model

// AugmentedQuery is the structured decomposition of a natural-language query.
// An empty field means the corresponding retrieval signal is skipped.
type AugmentedQuery struct {
	StartDate      string   `json:"start_date"`
	EndDate        string   `json:"end_date"`
	Location       string   `json:"location"`
	Objects        string   `json:"objects"`
	People         string   `json:"people"`
	Activities     string   `json:"activities"`
	ComplexContext string   `json:"complex_context"`
	Tags           []string `json:"tags,omitempty"`
}

// Answer is the structured result of the answer-generation step
type Answer struct {
	Text      string     `json:"answer"`
	MemoryIDs []MemoryID `json:"memory_ids,omitempty"`
}

// Usage accumulates token consumption and estimated cost across LLM calls
type Usage struct {
	PromptTokens int
	OutputTokens int
	Cost         float64
}

// Add merges another usage record into this one
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.OutputTokens += other.OutputTokens
	u.Cost += other.Cost
}
