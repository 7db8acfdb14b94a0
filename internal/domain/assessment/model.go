package assessment

import (
	"time"

	"github.com/frat/frat/internal/domain/patient"
)

// Answers holds raw form answers keyed by question.
type Answers map[string]interface{}

// String returns the answer to key when it is a string.
func (a Answers) String(key string) string {
	s, _ := a[key].(string)
	return s
}

// Entry is one submitted assessment. Entries are never modified once
// stored.
type Entry struct {
	AssessmentID string            `json:"assessment_id" bson:"assessment_id"`
	Timestamp    time.Time         `json:"timestamp" bson:"timestamp"`
	RiskScore    int               `json:"risk_score" bson:"risk_score"`
	RiskLevel    string            `json:"risk_level" bson:"risk_level"`
	LabelVersion string            `json:"label_version,omitempty" bson:"label_version,omitempty"`
	Part1        map[string]Answer `json:"part1" bson:"part1"`
	Part2        map[string]Answer `json:"part2" bson:"part2"`
}

// Record is the assessment history of one patient. Entries are in
// submission order; the latest is last.
type Record struct {
	ID          string       `json:"id"`
	PatientID   string       `json:"patient_id"`
	PatientInfo patient.Info `json:"patient_info"`
	Assessments []Entry      `json:"assessments"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// Latest returns the most recent entry.
func (r *Record) Latest() (Entry, bool) {
	if len(r.Assessments) == 0 {
		return Entry{}, false
	}
	return r.Assessments[len(r.Assessments)-1], true
}

// Find returns the entry with id.
func (r *Record) Find(id string) (Entry, bool) {
	for _, e := range r.Assessments {
		if e.AssessmentID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// TrendPoint is one point of a patient's score history.
type TrendPoint struct {
	AssessmentID string    `json:"assessment_id"`
	Timestamp    time.Time `json:"timestamp"`
	RiskScore    int       `json:"risk_score"`
	RiskLevel    string    `json:"risk_level"`
}
