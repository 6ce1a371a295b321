package types

// Event is the wire form of a typed event emitted during state transitions.
// Attribute values are pre-rendered strings so subscribers never need the
// emitting module's types to decode them.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
