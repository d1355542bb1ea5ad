package events

import "fmt"

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// IsFatal marks contract violations as not worth retrying.
func (e *ValidationError) IsFatal() bool {
	return true
}

func ValidateEnvelope(env *Envelope) error {
	if env == nil {
		return &ValidationError{Field: "envelope", Message: "envelope cannot be nil"}
	}

	if env.ID == "" {
		return &ValidationError{Field: "id", Message: "envelope ID is required"}
	}

	if env.RoutingKey == "" {
		return &ValidationError{Field: "routing_key", Message: "routing key is required"}
	}

	if env.Source == "" {
		return &ValidationError{Field: "source", Message: "envelope source is required"}
	}

	if env.Timestamp.IsZero() {
		return &ValidationError{Field: "timestamp", Message: "envelope timestamp is required"}
	}

	if len(env.Payload) == 0 {
		return &ValidationError{Field: "payload", Message: "envelope payload cannot be empty"}
	}

	return nil
}
