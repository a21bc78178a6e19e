package scoring

import "math"

// DefaultZ is the z value for the confidence interval, roughly a 90%
// one-sided confidence level. Carried over unchanged from the production
// data set; stored scores were computed with this value.
const DefaultZ = 1.28155

// DefaultVisibilityThreshold is the minimum stored score an example needs
// to appear in default listings. Examples below it are suppressed into the
// hidden set. Items with too few votes to be statistically significant
// score near zero and stay visible.
const DefaultVisibilityThreshold = -0.2

// Score computes the Wilson lower-bound confidence score for the given
// vote counts using DefaultZ. Returns 0 when there are no votes.
func Score(upvotes, downvotes int) float64 {
	return ScoreWithZ(upvotes, downvotes, DefaultZ)
}

// ScoreWithZ computes the Wilson lower-bound confidence score with an
// explicit z value.
//
//	n     = upvotes + downvotes
//	p     = upvotes / n
//	left  = p + z²/(2n) − z·sqrt((p(1−p) + z²/(4n)) / n)
//	right = 1 + z²/n
//	score = left / right
//
// The function is pure and handles n as small as 1 without division
// errors; n == 0 returns 0.
func ScoreWithZ(upvotes, downvotes int, z float64) float64 {
	n := float64(upvotes + downvotes)
	if n == 0 {
		return 0
	}

	p := float64(upvotes) / n
	z2 := z * z

	left := p + z2/(2*n) - z*math.Sqrt((p*(1-p)+z2/(4*n))/n)
	right := 1 + z2/n

	return left / right
}
