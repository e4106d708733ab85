package models

import "time"

// Outbox event kinds.
const (
	EventWelcome           = "welcome"
	EventOrderConfirmation = "order_confirmation"
)

// Outbox event statuses.
const (
	OutboxPending    = "pending"
	OutboxDispatched = "dispatched"
)

// OutboxEvent is a notification waiting to be written to a mailbox bucket.
// SubjectID is the user or order the notification is about.
type OutboxEvent struct {
	ID           string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Kind         string     `json:"kind" gorm:"type:varchar(40);not null"`
	SubjectID    string     `json:"subject_id" gorm:"index;type:varchar(36)"`
	Bucket       string     `json:"bucket" gorm:"type:varchar(100);not null"`
	ObjectKey    string     `json:"object_key" gorm:"type:varchar(255);not null"`
	Payload      []byte     `json:"payload" gorm:"not null"`
	Status       string     `json:"status" gorm:"index;type:varchar(20);not null"`
	Attempts     int        `json:"attempts"`
	LastError    string     `json:"last_error" gorm:"type:text"`
	CreatedAt    time.Time  `json:"created_at"`
	DispatchedAt *time.Time `json:"dispatched_at"`
}
