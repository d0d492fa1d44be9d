package entities

// Status is the three-way validation verdict that drives orchestrator routing.
type Status string

const (
	StatusOK        Status = "ok"
	StatusMissing   Status = "missing"
	StatusAmbiguous Status = "ambiguous"
)

// Worst returns the more severe of two statuses (ambiguous > missing > ok).
func (s Status) Worst(other Status) Status {
	rank := map[Status]int{StatusOK: 0, StatusMissing: 1, StatusAmbiguous: 2}
	if rank[other] > rank[s] {
		return other
	}
	return s
}

// AmbiguousEntity is one unmatched input together with its fuzzy candidates,
// ordered by descending similarity.
type AmbiguousEntity struct {
	Input      string   `json:"input"`
	Candidates []string `json:"candidates"`
}

// Outcome is the validator's verdict for one turn. It is produced once and
// consumed only by the orchestrator's routing decision.
type Outcome struct {
	Status             Status                       `json:"status"`
	Entities           Bag                          `json:"entities"`
	InvalidEntities    map[string][]string          `json:"invalid_entities,omitempty"`
	MissingFields      []string                     `json:"missing_fields,omitempty"`
	AmbiguousEntities  map[string][]AmbiguousEntity `json:"ambiguous_entities,omitempty"`
	Suggestions        map[string][]string          `json:"suggestions,omitempty"`
	NeedsClarification bool                         `json:"needs_clarification"`
	Notes              string                       `json:"notes,omitempty"`
}
