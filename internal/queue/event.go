// Package queue defines message payloads exchanged over the message broker.
package queue

// Event types carried in RentalEvent.Type.
const (
	RentalCreated  = "rental.created"
	RentalReturned = "rental.returned"
	RentalExpired  = "rental.expired"
)

// RentalEvent is published after a rental lifecycle transaction commits.
// It carries enough for downstream consumers to log or notify without
// querying the primary database.
type RentalEvent struct {
	Type        string `json:"type"`
	RentalID    uint64 `json:"rental_id"`
	UserID      string `json:"user_id"`
	UserName    string `json:"user_name"`
	UmbrellaID  string `json:"umbrella_id"`
	CreditsUsed int    `json:"credits_used"`
	RentedAt    string `json:"rented_at"`
	DeadlineAt  string `json:"deadline_at,omitempty"`
	ReturnedAt  string `json:"returned_at,omitempty"`
	OccurredAt  string `json:"occurred_at"`
}
