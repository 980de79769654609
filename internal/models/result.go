package models

// ResolveStatus is the outcome of a seat lookup
type ResolveStatus string

const (
	StatusTooShort ResolveStatus = "too_short"
	StatusNotFound ResolveStatus = "not_found"
	StatusTooMany  ResolveStatus = "too_many"
	StatusOK       ResolveStatus = "ok"
)

// Result is what the resolver hands to the reply formatter. Bundles is only
// populated when Status is StatusOK.
type Result struct {
	Status  ResolveStatus  `json:"status"`
	Bundles []FamilyBundle `json:"bundles,omitempty"`
}

// Message is one inbound chat message waiting to be answered
type Message struct {
	// ID is the platform event id, used for redelivery de-duplication.
	ID        string
	Recipient string
	Text      string
}
