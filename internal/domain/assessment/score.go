package assessment

// Risk tiers.
const (
	TierHigh   = "HIGH"
	TierMedium = "MEDIUM"
	TierLow    = "LOW"
	TierNone   = "N/A"
)

// Part 1 question keys. These are the only answers that carry points.
const (
	QuestionRecentFalls   = "recentFalls"
	QuestionHighRiskMeds  = "highRiskMeds"
	QuestionPsychological = "psychological"
	QuestionCognitive     = "cognitive"
)

// ScoredQuestions lists the part 1 questions in form order.
var ScoredQuestions = []string{
	QuestionRecentFalls,
	QuestionHighRiskMeds,
	QuestionPsychological,
	QuestionCognitive,
}

var weights = map[string]map[string]int{
	QuestionRecentFalls:   {"none": 2, "3to12": 4, "3mo": 6, "inpatient": 8},
	QuestionHighRiskMeds:  {"none": 1, "one": 2, "two": 3, "more": 4},
	QuestionPsychological: {"none": 1, "mild": 2, "moderate": 3, "severe": 4},
	QuestionCognitive:     {"intact": 1, "mild": 2, "moderate": 3, "severe": 4},
}

// Points returns the weight of answer to question, or 0 when either is
// unknown.
func Points(question, answer string) int {
	return weights[question][answer]
}

// Score sums the weights of the four scored answers. Missing or unknown
// answers add nothing, so a complete form scores between 5 and 20.
func Score(part1 Answers) int {
	total := 0
	for _, q := range ScoredQuestions {
		total += Points(q, part1.String(q))
	}
	return total
}

// Tier maps a score to its risk tier. Every minimum answer sums to 5, which
// is LOW; only partial forms can fall below it and map to N/A.
func Tier(score int) string {
	switch {
	case score >= 16:
		return TierHigh
	case score >= 12:
		return TierMedium
	case score >= 5:
		return TierLow
	default:
		return TierNone
	}
}

// QuestionPoints is one line of a score breakdown.
type QuestionPoints struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Points   int    `json:"points"`
}

// Breakdown returns the points of each scored question in form order.
func Breakdown(part1 Answers) []QuestionPoints {
	out := make([]QuestionPoints, 0, len(ScoredQuestions))
	for _, q := range ScoredQuestions {
		a := part1.String(q)
		out = append(out, QuestionPoints{Question: q, Answer: a, Points: Points(q, a)})
	}
	return out
}
