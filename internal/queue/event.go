// Package queue defines message payloads exchanged over the message broker.
package queue

// Queue names.  Durable queues, routing key equals queue name.
const (
	ReservationConfirmedQueue = "reservation.confirmed"
	WaitlistPromotedQueue     = "waitlist.promoted"
)

// ReservationConfirmedEvent is published when a reservation is created
// with a confirmed spot.  It carries enough for downstream consumers to
// notify the student without querying the primary database.
type ReservationConfirmedEvent struct {
	ReservationID uint64 `json:"reservation_id"`
	Reference     string `json:"reference"`
	UserID        uint64 `json:"user_id"`
	UserEmail     string `json:"user_email"`
	UserName      string `json:"user_name"`
	ClassID       uint64 `json:"class_id"`
	ClassTitle    string `json:"class_title"`
	FrameSize     string `json:"frame_size"`
	StartsAt      string `json:"starts_at"`
	EndsAt        string `json:"ends_at"`
	ConfirmedAt   string `json:"confirmed_at"`
}

// WaitlistPromotedEvent is published when a cancellation frees a spot
// and the head of the waitlist is promoted into a reservation.
type WaitlistPromotedEvent struct {
	ReservationID uint64 `json:"reservation_id"`
	Reference     string `json:"reference"`
	UserID        uint64 `json:"user_id"`
	UserEmail     string `json:"user_email"`
	UserName      string `json:"user_name"`
	ClassID       uint64 `json:"class_id"`
	ClassTitle    string `json:"class_title"`
	FrameSize     string `json:"frame_size"`
	StartsAt      string `json:"starts_at"`
	PromotedAt    string `json:"promoted_at"`
}
