package retry

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// 无抖动时 Delay 对 attempt 单调不减且不超过 MaxDelay
func TestPolicy_DelayLaws(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("monotonically non-decreasing", prop.ForAll(
		func(baseMs int, maxMs int, multTimes10 int, attempt int) bool {
			p := &Policy{
				BaseDelay:  time.Duration(baseMs) * time.Millisecond,
				MaxDelay:   time.Duration(maxMs) * time.Millisecond,
				Multiplier: float64(multTimes10) / 10.0,
			}
			return p.Delay(attempt+1) >= p.Delay(attempt)
		},
		gen.IntRange(1, 1000),
		gen.IntRange(1000, 60000),
		gen.IntRange(10, 40),
		gen.IntRange(0, 20),
	))

	properties.Property("never exceeds max delay", prop.ForAll(
		func(baseMs int, maxMs int, multTimes10 int, attempt int) bool {
			p := &Policy{
				BaseDelay:  time.Duration(baseMs) * time.Millisecond,
				MaxDelay:   time.Duration(maxMs) * time.Millisecond,
				Multiplier: float64(multTimes10) / 10.0,
			}
			return p.Delay(attempt) <= p.MaxDelay
		},
		gen.IntRange(1, 1000),
		gen.IntRange(1, 60000),
		gen.IntRange(10, 40),
		gen.IntRange(0, 50),
	))

	properties.TestingRun(t)
}
