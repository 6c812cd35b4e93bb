package redisx

import "time"

const (
	// Cache status order: order_status:{order_id} -> {"status":"...","isActive":...,"fromCollectiveId":...}
	KeyOrderStatus = "order_status:%d"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
