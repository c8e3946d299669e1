package types

// Event is the canonical structured payload describing a committed state
// change. Attributes hold display-ready string values so downstream consumers
// never re-derive amounts.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
