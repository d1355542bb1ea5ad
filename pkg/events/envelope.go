package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Envelope is what travels on the broker. Payload holds the routing key's
// contract (see payloads.go) as raw JSON so consumers decode it strictly.
type Envelope struct {
	ID         string          `json:"id"`
	RoutingKey string          `json:"routing_key"`
	Source     string          `json:"source"`
	Timestamp  time.Time       `json:"timestamp"`
	Payload    json.RawMessage `json:"payload"`
	Metadata   Metadata        `json:"metadata"`
}

type Metadata struct {
	TraceID    string      `json:"trace_id,omitempty"`
	Attempt    int         `json:"attempt,omitempty"`
	DeadLetter *DeadLetter `json:"dead_letter,omitempty"`
}

// DeadLetter is stamped on an envelope before it is parked on a dead-letter queue.
type DeadLetter struct {
	Queue    string    `json:"queue"`
	Reason   string    `json:"reason"`
	Attempts int       `json:"attempts"`
	FailedAt time.Time `json:"failed_at"`
}

func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

func Unmarshal(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}
	return env, nil
}

// DecodePayload unmarshals the payload into v.
func (e Envelope) DecodePayload(v interface{}) error {
	if len(e.Payload) == 0 {
		return &ValidationError{Field: "payload", Message: "payload is empty"}
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", e.RoutingKey, err)
	}
	return nil
}

// DeadLettered returns a copy annotated with the failure.
func (e Envelope) DeadLettered(queue string, reason error, attempts int) Envelope {
	out := e
	out.Metadata.DeadLetter = &DeadLetter{
		Queue:    queue,
		Reason:   reason.Error(),
		Attempts: attempts,
		FailedAt: time.Now().UTC(),
	}
	return out
}
