package models

import "time"

// IdempotencyEntry is one claimed idempotency key held by the relay
type IdempotencyEntry struct {
	Key       string    `bson:"_id" json:"key"`
	Completed bool      `bson:"completed" json:"completed"`
	Status    int       `bson:"status,omitempty" json:"status,omitempty"`
	Body      []byte    `bson:"body,omitempty" json:"body,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	ExpiresAt time.Time `bson:"expiresAt" json:"expiresAt"`
}
