package appraisal

import "math"

// Answers maps a catalog question ID to the 1-5 level a rater assigned.
type Answers map[string]int

// levelPoints fixes the points awarded per level: 1 -> 2 ... 5 -> 10.
var levelPoints = map[int]int{1: 2, 2: 4, 3: 6, 4: 8, 5: 10}

type ScoreSummary struct {
	Total      int    `json:"total"`
	Percentage int    `json:"percentage"`
	Rating     string `json:"rating"`
}

// ScoreOf returns the fixed point value for a level.
func ScoreOf(level int) (int, error) {
	points, ok := levelPoints[level]
	if !ok {
		return 0, ErrInvalidLevel
	}
	return points, nil
}

// TotalScore sums the point values of every answered question. Unanswered
// questions contribute zero.
func TotalScore(answers Answers) (int, error) {
	total := 0
	for _, level := range answers {
		points, err := ScoreOf(level)
		if err != nil {
			return 0, err
		}
		total += points
	}
	return total, nil
}

// Percentage expresses the total score out of 100. With the reference catalog the
// maximum total is already 100, so a complete answer set scores identically under
// both views.
func Percentage(answers Answers) (int, error) {
	total, err := TotalScore(answers)
	if err != nil {
		return 0, err
	}
	return int(math.Round(float64(total) / float64(MaxTotalScore()) * 100)), nil
}

// RatingLabel maps a percentage to its band, highest band first. Each boundary
// value belongs to the higher band.
func RatingLabel(percentage int) string {
	switch {
	case percentage >= 80:
		return RatingExcellent
	case percentage >= 60:
		return RatingGood
	case percentage >= 40:
		return RatingModerate
	case percentage >= 20:
		return RatingWeak
	default:
		return RatingVeryWeak
	}
}

// Summarize scores a complete answer set into total, percentage, and band.
func Summarize(answers Answers) (ScoreSummary, error) {
	total, err := TotalScore(answers)
	if err != nil {
		return ScoreSummary{}, err
	}
	percentage, err := Percentage(answers)
	if err != nil {
		return ScoreSummary{}, err
	}
	return ScoreSummary{Total: total, Percentage: percentage, Rating: RatingLabel(percentage)}, nil
}
