package events

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// DirectMessage is one element of a direct.message.save batch. The same shape
// is embedded in treasure hunts and stored by the direct-message service.
type DirectMessage struct {
	Selector  string  `json:"selector" bson:"_id"`
	CreatedBy string  `json:"createdBy" bson:"createdBy"`
	CreatedAt int64   `json:"createdAt,omitempty" bson:"createdAt,omitempty"`
	Password  string  `json:"password,omitempty" bson:"password,omitempty"`
	Reach     float64 `json:"reach" bson:"reach"`
	Latitude  float64 `json:"latitude" bson:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude"`
	Status    string  `json:"status,omitempty" bson:"status,omitempty"`
	Text      string  `json:"text,omitempty" bson:"text,omitempty"`
	Title     string  `json:"title,omitempty" bson:"title,omitempty"`
	HuntID    string  `json:"huntId,omitempty" bson:"huntId,omitempty"`
}

// PointsEvent credits Amount points to CreatedBy because of the source
// identified by IDSource/TypeSource. Selector doubles as the idempotency key.
type PointsEvent struct {
	Selector   string `json:"selector" bson:"_id"`
	CreatedBy  string `json:"createdBy" bson:"createdBy"`
	IDSource   string `json:"idSource" bson:"idSource"`
	TypeSource string `json:"typeSource" bson:"typeSource"`
	Amount     int    `json:"amount" bson:"amount"`
}

// DecodeDirectMessageBatch converts every element of a batch payload or
// fails as a whole; a partially valid batch yields no messages.
func DecodeDirectMessageBatch(payload json.RawMessage) ([]DirectMessage, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, &ValidationError{Field: "payload", Message: fmt.Sprintf("batch is not a JSON array: %v", err)}
	}

	out := make([]DirectMessage, 0, len(raw))
	for i, elem := range raw {
		msg, err := decodeDirectMessage(elem)
		if err != nil {
			return nil, &ValidationError{Field: fmt.Sprintf("payload[%d]", i), Message: err.Error()}
		}
		out = append(out, msg)
	}
	return out, nil
}

func decodeDirectMessage(data json.RawMessage) (DirectMessage, error) {
	var msg DirectMessage
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&msg); err != nil {
		return DirectMessage{}, err
	}
	if err := msg.Validate(); err != nil {
		return DirectMessage{}, err
	}
	return msg, nil
}

func (m DirectMessage) Validate() error {
	if err := validUUID("selector", m.Selector, true); err != nil {
		return err
	}
	if m.CreatedBy == "" {
		return fmt.Errorf("createdBy is required")
	}
	return validUUID("huntId", m.HuntID, false)
}

func (p PointsEvent) Validate() error {
	if err := validUUID("selector", p.Selector, true); err != nil {
		return &ValidationError{Field: "selector", Message: err.Error()}
	}
	if p.CreatedBy == "" {
		return &ValidationError{Field: "createdBy", Message: "createdBy is required"}
	}
	if p.Amount == 0 {
		return &ValidationError{Field: "amount", Message: "amount must not be zero"}
	}
	return nil
}

func validUUID(field, value string, required bool) error {
	if value == "" {
		if required {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
	if _, err := uuid.Parse(value); err != nil {
		return fmt.Errorf("%s %q is not a UUID", field, value)
	}
	return nil
}
