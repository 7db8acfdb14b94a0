package patient

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Record is one free-form clinical entry (condition, medication,
// observation, immunization). Fields are read through the typed accessors.
type Record map[string]interface{}

// String returns the field as text. Numbers and booleans are formatted;
// missing and null fields yield "".
func (r Record) String(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	default:
		return fmt.Sprint(v)
	}
}

// Number returns the field as a float. Numeric strings are parsed.
func (r Record) Number(key string) (float64, bool) {
	switch v := r[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Patient is a hospital patient as ingested from the bundle or seeder.
type Patient struct {
	ID            string    `json:"id"`
	HospitalID    string    `json:"hospitalId"`
	FirstName     string    `json:"firstName,omitempty"`
	MiddleName    string    `json:"middleName,omitempty"`
	LastName      string    `json:"lastName,omitempty"`
	FullName      string    `json:"fullName"`
	Gender        string    `json:"gender,omitempty"`
	BirthDate     string    `json:"birthDate,omitempty"`
	Age           *int      `json:"age,omitempty"`
	Conditions    []Record  `json:"conditions"`
	Medications   []Record  `json:"medications"`
	Observations  []Record  `json:"observations"`
	Immunizations []Record  `json:"immunizations"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Normalize fills derived fields: fullName from the name parts, age from
// birthDate, and empty record lists instead of nil.
func (p *Patient) Normalize(now time.Time) {
	p.HospitalID = strings.TrimSpace(p.HospitalID)
	if strings.TrimSpace(p.FullName) == "" {
		parts := lo.Filter([]string{p.FirstName, p.MiddleName, p.LastName}, func(s string, _ int) bool {
			return strings.TrimSpace(s) != ""
		})
		p.FullName = strings.Join(parts, " ")
	}
	if p.Age == nil {
		if age, ok := AgeOn(p.BirthDate, now); ok {
			p.Age = &age
		}
	}
	if p.Conditions == nil {
		p.Conditions = []Record{}
	}
	if p.Medications == nil {
		p.Medications = []Record{}
	}
	if p.Observations == nil {
		p.Observations = []Record{}
	}
	if p.Immunizations == nil {
		p.Immunizations = []Record{}
	}
}

// Validate checks the ingestion invariants.
func (p *Patient) Validate() error {
	if p.HospitalID == "" {
		return ErrHospitalIDRequired
	}
	if strings.TrimSpace(p.FullName) == "" {
		return ErrFullNameRequired
	}
	return nil
}

// AgeOn returns the age in whole years on now for a YYYY-MM-DD birth date.
func AgeOn(birthDate string, now time.Time) (int, bool) {
	if len(birthDate) < 10 {
		return 0, false
	}
	born, err := time.Parse("2006-01-02", birthDate[:10])
	if err != nil || born.After(now) {
		return 0, false
	}
	age := now.Year() - born.Year()
	if now.Month() < born.Month() || (now.Month() == born.Month() && now.Day() < born.Day()) {
		age--
	}
	return age, true
}

// Summary is the list projection of a patient.
type Summary struct {
	ID         string   `json:"id"`
	HospitalID string   `json:"hospitalId"`
	FullName   string   `json:"fullName"`
	Gender     string   `json:"gender,omitempty"`
	Age        *int     `json:"age,omitempty"`
	BirthDate  string   `json:"birthDate,omitempty"`
	Conditions []Record `json:"conditions"`
}

// Summarize projects p for the patient list.
func (p *Patient) Summarize() Summary {
	conditions := p.Conditions
	if conditions == nil {
		conditions = []Record{}
	}
	return Summary{
		ID:         p.ID,
		HospitalID: p.HospitalID,
		FullName:   p.FullName,
		Gender:     p.Gender,
		Age:        p.Age,
		BirthDate:  p.BirthDate,
		Conditions: conditions,
	}
}

// Info is the patient snapshot stored with every assessment record. It is
// copied at submission time and never re-derived from the live patient.
type Info struct {
	ID             string   `json:"id" bson:"id"`
	Name           string   `json:"name" bson:"name"`
	BirthDate      string   `json:"birthDate" bson:"birthDate"`
	Gender         string   `json:"gender" bson:"gender"`
	Age            *int     `json:"age" bson:"age"`
	HospitalID     string   `json:"hospital_id" bson:"hospital_id"`
	MedicalHistory []string `json:"medical_history" bson:"medical_history"`
	Medications    []string `json:"medications" bson:"medications"`
	Observations   []string `json:"observations" bson:"observations"`
	AMTSScore      *float64 `json:"amts_score" bson:"amts_score"`
	Immunizations  []string `json:"immunizations" bson:"immunizations"`
}

const amtsObservation = "abbreviated mental test"

// Info builds the assessment snapshot of p.
func (p *Patient) Info() Info {
	info := Info{
		ID:         p.ID,
		Name:       p.FullName,
		BirthDate:  p.BirthDate,
		Gender:     p.Gender,
		Age:        p.Age,
		HospitalID: p.HospitalID,
		MedicalHistory: lo.Map(p.Conditions, func(r Record, _ int) string {
			if status := r.String("status"); status != "" {
				return fmt.Sprintf("%s (%s)", r.String("name"), status)
			}
			return r.String("name")
		}),
		Medications: lo.Map(p.Medications, func(r Record, _ int) string {
			return r.String("name")
		}),
		Observations: lo.Map(p.Observations, func(r Record, _ int) string {
			s := fmt.Sprintf("%s: %s", r.String("type"), r.String("value"))
			if interp := r.String("interpretation"); interp != "" {
				s += " - " + interp
			}
			return s
		}),
		Immunizations: lo.Map(p.Immunizations, func(r Record, _ int) string {
			if date := r.String("date"); date != "" {
				return fmt.Sprintf("%s on %s", r.String("vaccine"), date)
			}
			return r.String("vaccine")
		}),
	}

	if obs, ok := lo.Find(p.Observations, func(r Record) bool {
		return strings.Contains(strings.ToLower(r.String("type")), amtsObservation)
	}); ok {
		if v, ok := obs.Number("value"); ok {
			info.AMTSScore = &v
		}
	}
	return info
}
