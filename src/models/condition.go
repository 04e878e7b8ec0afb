package models

// Condition is a node of a transaction rule. A node with And or Or set is a
// group; otherwise Field, Op and Value describe a single comparison.
type Condition struct {
	Field string      `json:"field,omitempty"`
	Op    string      `json:"op,omitempty"`
	Value interface{} `json:"value,omitempty"`
	And   []Condition `json:"and,omitempty"`
	Or    []Condition `json:"or,omitempty"`
}
