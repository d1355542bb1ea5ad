package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubChecker struct {
	name string
	err  error
}

func (s stubChecker) Name() string                  { return s.name }
func (s stubChecker) Check(_ context.Context) error { return s.err }

type stubPinger struct{ err error }

func (p stubPinger) Ping(_ context.Context) error { return p.err }

func TestRegistryStatus(t *testing.T) {
	tests := []struct {
		name     string
		required error
		optional error
		want     Status
	}{
		{name: "all healthy", want: StatusHealthy},
		{name: "optional down", optional: errors.New("redis down"), want: StatusDegraded},
		{name: "required down", required: errors.New("mongo down"), want: StatusUnhealthy},
		{name: "both down", required: errors.New("x"), optional: errors.New("y"), want: StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewCheckerRegistry()
			r.Register(stubChecker{name: "mongodb", err: tt.required})
			r.RegisterOptional(stubChecker{name: "redis", err: tt.optional})

			h := r.Check(context.Background())
			assert.Equal(t, tt.want, h.Status)
			assert.Len(t, h.Checks, 2)
		})
	}
}

func TestBrokerChecker(t *testing.T) {
	ok := NewBrokerChecker(stubPinger{})
	assert.Equal(t, "broker", ok.Name())
	assert.NoError(t, ok.Check(context.Background()))

	down := NewBrokerChecker(stubPinger{err: errors.New("connection refused")})
	assert.ErrorContains(t, down.Check(context.Background()), "connection refused")
}
