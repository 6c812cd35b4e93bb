package activity

import (
	"encoding/json"
	"time"
)

const (
	TypeSubscriptionCanceled  = "subscription.canceled"
	TypeSubscriptionActivated = "subscription.activated"
)

// Activity is an append-only audit record of a transition.
type Activity struct {
	ID           int64
	Type         string
	CollectiveID int64
	UserID       int64
	Data         json.RawMessage
	CreatedAt    time.Time
	PublishedAt  *time.Time
}

// Envelope wraps every event published to Kafka.
type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid, stable per activity
	EventType     string          `json:"event_type"`    // activity type
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // activity id
	Payload       json.RawMessage `json:"payload"`
}

// ---- payload snapshots ----

type OrderSnapshot struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

type SubscriptionSnapshot struct {
	ID            int64      `json:"id"`
	Amount        int64      `json:"amount"`
	Currency      string     `json:"currency"`
	Interval      string     `json:"interval"`
	IsActive      bool       `json:"isActive"`
	ActivatedAt   *time.Time `json:"activatedAt,omitempty"`
	DeactivatedAt *time.Time `json:"deactivatedAt,omitempty"`
}

type CollectiveSnapshot struct {
	ID       int64  `json:"id"`
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	Currency string `json:"currency,omitempty"`
}

type UserSnapshot struct {
	ID           int64  `json:"id"`
	CollectiveID int64  `json:"CollectiveId"`
	Name         string `json:"name,omitempty"`
}

// SubscriptionData is the data blob of subscription.* activities.
type SubscriptionData struct {
	Order          OrderSnapshot        `json:"order"`
	Subscription   SubscriptionSnapshot `json:"subscription"`
	Collective     CollectiveSnapshot   `json:"collective"`
	User           UserSnapshot         `json:"user"`
	FromCollective CollectiveSnapshot   `json:"fromCollective"`
}
