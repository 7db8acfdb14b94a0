package assessment

import "time"

// Draft stages, derived from how much of the form is filled in.
const (
	StagePart1Incomplete = "part1_incomplete"
	StagePart1Complete   = "part1_complete"
	StagePart2Complete   = "part2_complete"
)

// Part2Questions lists the part 2 risk factors in form order.
var Part2Questions = []string{
	"vision", "mobility", "transfers", "behaviours", "adl", "equipment",
	"footwear", "environment", "nutrition", "continence", "other",
}

// Draft is an unsubmitted form kept in the client session.
type Draft struct {
	PatientID string    `json:"patientId"`
	Part1     Answers   `json:"part1"`
	Part2     Answers   `json:"part2"`
	SavedAt   time.Time `json:"savedAt"`
}

// EmptyDraft returns a draft with no answers for patientID.
func EmptyDraft(patientID string) Draft {
	return Draft{PatientID: patientID, Part1: Answers{}, Part2: Answers{}}
}

// Stage reports how far the draft has progressed. Part 2 counts as complete
// once every factor has a yes or no answer.
func (d Draft) Stage() string {
	for _, q := range ScoredQuestions {
		if d.Part1.String(q) == "" {
			return StagePart1Incomplete
		}
	}
	for _, q := range Part2Questions {
		if _, ok := d.Part2[q].(bool); !ok {
			return StagePart1Complete
		}
	}
	return StagePart2Complete
}
