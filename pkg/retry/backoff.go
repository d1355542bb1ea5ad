package retry

import (
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

func (p Policy) exponential(maxElapsed time.Duration) *backoff.ExponentialBackOff {
	exp := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		exp.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		exp.MaxInterval = p.MaxInterval
	}
	if p.Multiplier > 0 {
		exp.Multiplier = p.Multiplier
	}
	exp.MaxElapsedTime = maxElapsed
	exp.Reset()
	return exp
}

// CalculateBackoffDuration is the nominal (unjittered) delay after attempt n,
// counted from zero.
func CalculateBackoffDuration(attempt int, initialInterval time.Duration, multiplier float64, maxInterval time.Duration) time.Duration {
	duration := float64(initialInterval) * math.Pow(multiplier, float64(attempt))
	if maxInterval > 0 && duration > float64(maxInterval) {
		return maxInterval
	}
	return time.Duration(duration)
}
