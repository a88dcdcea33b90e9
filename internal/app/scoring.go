package app

import (
	"math"
	"time"
)

const (
	// BasePoints is awarded for any correct answer.
	BasePoints = 500
	// bonusPerSecond scales the seconds left on the clock into bonus points.
	bonusPerSecond = 10
)

// Points scores one answer. Correct answers earn BasePoints plus ten points per
// second remaining, rounded half to even; wrong answers earn nothing.
func Points(timeLimitSeconds int, elapsed time.Duration, correct bool) int {
	if !correct {
		return 0
	}
	remaining := math.Max(0, float64(timeLimitSeconds)-elapsed.Seconds())
	return BasePoints + int(math.RoundToEven(remaining*bonusPerSecond))
}
