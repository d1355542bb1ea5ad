package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type EnvelopeBuilder struct {
	envelope Envelope
	err      error
}

func NewEnvelopeBuilder() *EnvelopeBuilder {
	return &EnvelopeBuilder{}
}

func (b *EnvelopeBuilder) WithID(id string) *EnvelopeBuilder {
	b.envelope.ID = id
	return b
}

func (b *EnvelopeBuilder) WithRoutingKey(key string) *EnvelopeBuilder {
	b.envelope.RoutingKey = key
	return b
}

func (b *EnvelopeBuilder) WithSource(source string) *EnvelopeBuilder {
	b.envelope.Source = source
	return b
}

func (b *EnvelopeBuilder) WithTimestamp(timestamp time.Time) *EnvelopeBuilder {
	b.envelope.Timestamp = timestamp
	return b
}

// WithPayload marshals v as the payload. Raw JSON is stored as is.
func (b *EnvelopeBuilder) WithPayload(v interface{}) *EnvelopeBuilder {
	if raw, ok := v.(json.RawMessage); ok {
		b.envelope.Payload = raw
		return b
	}
	data, err := json.Marshal(v)
	if err != nil {
		b.err = fmt.Errorf("failed to marshal payload: %w", err)
		return b
	}
	b.envelope.Payload = data
	return b
}

func (b *EnvelopeBuilder) WithTraceID(traceID string) *EnvelopeBuilder {
	b.envelope.Metadata.TraceID = traceID
	return b
}

func (b *EnvelopeBuilder) Build() (Envelope, error) {
	if b.err != nil {
		return Envelope{}, b.err
	}
	if b.envelope.ID == "" {
		b.envelope.ID = uuid.NewString()
	}
	if b.envelope.Timestamp.IsZero() {
		b.envelope.Timestamp = time.Now().UTC()
	}
	if err := ValidateEnvelope(&b.envelope); err != nil {
		return Envelope{}, err
	}
	return b.envelope, nil
}
