package helpers

import (
	"time"

	"golang.org/x/time/rate"
)

// NewThrottle returns a rate.Sometimes that runs its first call and then at most once per interval.
func NewThrottle(interval time.Duration) *rate.Sometimes {
	return &rate.Sometimes{Interval: interval}
}
