// Package notify defines account lifecycle notifications and the
// fire-and-forget dispatcher that hands them to a delivery sink.
package notify

import "time"

// Kind names the lifecycle event behind a notification.
type Kind string

const (
	KindWelcome      Kind = "welcome"
	KindCancellation Kind = "cancellation"
)

// Event is the payload handed to a Sink.  It is also the JSON body of the
// broker messages consumed by the mailer worker.
type Event struct {
	Kind       Kind      `json:"kind"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	OccurredAt time.Time `json:"occurred_at"`
}
