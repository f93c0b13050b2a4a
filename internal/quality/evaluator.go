package quality

const (
	// MaxScore is the score of a reading with no penalties applied.
	MaxScore = 100

	phIdealMin    = 6.5
	phIdealMax    = 6.8
	phPenalty     = 30
	tempCeiling   = 10.0
	warmthPenalty = 20
)

// Evaluator maps raw sensor readings to a quality score in [0, MaxScore].
type Evaluator interface {
	Score(ph, temperature float64) int
}

// ThresholdEvaluator applies the fixed pH band and temperature ceiling rules.
type ThresholdEvaluator struct{}

// Score implements Evaluator.
func (ThresholdEvaluator) Score(ph, temperature float64) int {
	return Evaluate(ph, temperature)
}

// Evaluate scores a reading. A pH outside the ideal band costs a flat 30 points
// regardless of distance; milk warmer than 10°C costs 20. The result never drops below zero.
func Evaluate(ph, temperature float64) int {
	score := MaxScore
	if ph < phIdealMin || ph > phIdealMax {
		score -= phPenalty
	}
	if temperature > tempCeiling {
		score -= warmthPenalty
	}
	if score < 0 {
		score = 0
	}
	return score
}
