package domain

// EventOrderChanged is the outbox event type emitted for every order
// insert or status update. Consumers treat it as a cue to re-fetch, not
// as an authoritative payload.
const EventOrderChanged = "OrderChanged"

type OrderChanged struct {
	OrderID string `json:"order_id"`
	OwnerID string `json:"owner_id"`
	Op      string `json:"op"` // "insert" or "update"
}
