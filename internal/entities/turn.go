package entities

import "time"

// Turn is one completed exchange kept in session history. The stored
// entities are the validated bag, so follow-up merges inherit corrected
// names rather than the user's raw spelling.
type Turn struct {
	Query     string    `json:"query"`
	Intent    Intent    `json:"intent"`
	Entities  Bag       `json:"entities"`
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}
