package treasure

import (
	"encoding/json"
	"time"

	"inabottle/pkg/events"
)

type TreasureHunt struct {
	Selector    string                 `json:"selector" bson:"_id"`
	CreatedBy   string                 `json:"createdBy" bson:"createdBy"`
	CreatedAt   int64                  `json:"createdAt" bson:"createdAt"`
	Password    string                 `json:"password,omitempty" bson:"password,omitempty"`
	Reach       float64                `json:"reach" bson:"reach"`
	Latitude    float64                `json:"latitude" bson:"latitude"`
	Longitude   float64                `json:"longitude" bson:"longitude"`
	Status      string                 `json:"status,omitempty" bson:"status,omitempty"`
	Description string                 `json:"description,omitempty" bson:"description,omitempty"`
	Title       string                 `json:"title,omitempty" bson:"title,omitempty"`
	Messages    []events.DirectMessage `json:"messages,omitempty" bson:"messages,omitempty"`
	Points      *int                   `json:"points,omitempty" bson:"points,omitempty"`
	ExtraPoints *int                   `json:"extraPoints,omitempty" bson:"extraPoints,omitempty"`
	StartDate   *int64                 `json:"startDate,omitempty" bson:"startDate,omitempty"`
	EndDate     *int64                 `json:"endDate,omitempty" bson:"endDate,omitempty"`
	Rewards     string                 `json:"rewards,omitempty" bson:"rewards,omitempty"`

	// Outbox is written by the service, never accepted from clients.
	Outbox []OutboxEntry `json:"outbox,omitempty" bson:"outbox,omitempty"`
}

type OutboxStatus string

const (
	OutboxPending   OutboxStatus = "pending"
	OutboxPublished OutboxStatus = "published"
	OutboxFailed    OutboxStatus = "failed"
)

// OutboxEntry is an event the hunt still owes the broker. It is stored in the
// hunt document so that the hunt and its pending events are written together.
type OutboxEntry struct {
	EventID     string          `json:"eventId" bson:"eventId"`
	RoutingKey  string          `json:"routingKey" bson:"routingKey"`
	Payload     json.RawMessage `json:"payload" bson:"payload"`
	Status      OutboxStatus    `json:"status" bson:"status"`
	Attempts    int             `json:"attempts" bson:"attempts"`
	LastError   string          `json:"lastError,omitempty" bson:"lastError,omitempty"`
	CreatedAt   time.Time       `json:"createdAt" bson:"createdAt"`
	PublishedAt *time.Time      `json:"publishedAt,omitempty" bson:"publishedAt,omitempty"`
}

// PendingEntry is an outbox entry together with the hunt that owns it.
type PendingEntry struct {
	HuntID string `json:"huntId"`
	OutboxEntry
}

// Pending returns the entries not yet published or given up on.
func (h *TreasureHunt) Pending() []*OutboxEntry {
	var out []*OutboxEntry
	for i := range h.Outbox {
		if h.Outbox[i].Status == OutboxPending {
			out = append(out, &h.Outbox[i])
		}
	}
	return out
}
