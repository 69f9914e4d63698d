package entity

import "time"

// QueueBatch is one durable unit of deferred notification work. Payload is
// the encoded entry list produced by one call to Queue.
type QueueBatch struct {
	ID        int64
	Payload   string
	CreatedAt time.Time
}
