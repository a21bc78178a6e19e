// Package scoring provides the confidence scoring used to rank
// community-submitted pronunciation examples.
//
// Examples are ranked by the lower bound of a one-sided binomial
// confidence interval (Wilson score) over their upvote/downvote counts.
// The lower bound penalizes items with few votes: a single upvote does
// not outrank a hundred votes at 95% approval, because the interval
// around one observation is wide.
//
// The z value and the visibility threshold are fixed constants carried
// over from the production data set. They are exposed through Params and
// a JSON calibration file so they can be tuned without a code change,
// but the defaults must be preserved for behavioral compatibility with
// existing stored scores.
//
// Usage:
//
//	params, _ := scoring.LoadCalibration("calibration.json")
//	score := params.Score(9, 1) // ≈ 0.72
//	visible := score >= params.VisibilityThreshold
package scoring
