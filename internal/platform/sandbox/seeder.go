// Package sandbox generates synthetic FRAT patients and assessment
// histories for demo and development environments. Output is reproducible
// for a given seed.
package sandbox

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/frat/frat/internal/domain/assessment"
	"github.com/frat/frat/internal/domain/patient"
	"github.com/frat/frat/internal/platform/bundle"
)

// SeedConfig controls the volume of generated data.
type SeedConfig struct {
	PatientCount            int   `json:"patientCount"`
	ConditionsPerPatient    int   `json:"conditionsPerPatient"`
	MedicationsPerPatient   int   `json:"medicationsPerPatient"`
	ObservationsPerPatient  int   `json:"observationsPerPatient"`
	ImmunizationsPerPatient int   `json:"immunizationsPerPatient"`
	AssessmentsPerPatient   int   `json:"assessmentsPerPatient"`
	Seed                    int64 `json:"seed"`
}

// DefaultSeedConfig returns a small ward's worth of data.
func DefaultSeedConfig() SeedConfig {
	return SeedConfig{
		PatientCount:            20,
		ConditionsPerPatient:    3,
		MedicationsPerPatient:   4,
		ObservationsPerPatient:  3,
		ImmunizationsPerPatient: 2,
		AssessmentsPerPatient:   2,
	}
}

// SeedResult summarizes a generation run.
type SeedResult struct {
	Patients    int           `json:"patients"`
	Assessments int           `json:"assessments"`
	Duration    time.Duration `json:"duration"`
}

type codeEntry struct {
	Code    string
	Display string
}

type observationDef struct {
	Type string
	Unit string
	Low  float64
	High float64
}

var (
	firstNamesMale = []string{
		"Arthur", "Albert", "Harold", "Walter", "Frank", "George", "Ernest",
		"Stanley", "Leonard", "Norman", "Kenneth", "Raymond", "Bernard",
		"Douglas", "Ronald", "Gordon", "Keith", "Colin", "Dennis", "Alan",
	}
	firstNamesFemale = []string{
		"Margaret", "Dorothy", "Joan", "Betty", "Doris", "Irene", "Edna",
		"Elsie", "Gladys", "Marjorie", "Jean", "Patricia", "Shirley",
		"Barbara", "Maureen", "Sheila", "Brenda", "Valerie", "Pauline", "June",
	}
	middleNames = []string{"", "", "Anne", "Mary", "James", "John", "Rose", "Edward"}
	lastNames   = []string{
		"Smith", "Jones", "Williams", "Taylor", "Brown", "Davies", "Evans",
		"Wilson", "Thomas", "Roberts", "Johnson", "Lewis", "Walker", "Robinson",
		"Wood", "Thompson", "White", "Watson", "Jackson", "Wright", "Green",
		"Harris", "Cooper", "King", "Lee", "Martin", "Clarke", "Hughes",
	}

	fallsConditions = []codeEntry{
		{"M81.0", "Osteoporosis"},
		{"I10", "Essential hypertension"},
		{"E11.9", "Type 2 diabetes mellitus"},
		{"G20", "Parkinson's disease"},
		{"F03", "Dementia"},
		{"I48.91", "Atrial fibrillation"},
		{"M17.9", "Osteoarthritis of knee"},
		{"H25.9", "Age-related cataract"},
		{"I95.1", "Orthostatic hypotension"},
		{"N39.4", "Urinary incontinence"},
		{"I63.9", "Cerebral infarction"},
		{"F32.9", "Depressive episode"},
		{"E55.9", "Vitamin D deficiency"},
		{"G62.9", "Peripheral neuropathy"},
	}
	conditionStatuses = []string{"active", "active", "active", "resolved", "inactive"}

	wardMedications = []string{
		"Temazepam 10 mg", "Zopiclone 7.5 mg", "Diazepam 2 mg", "Quetiapine 25 mg",
		"Sertraline 50 mg", "Amlodipine 5 mg", "Furosemide 40 mg", "Ramipril 5 mg",
		"Metformin 500 mg", "Paracetamol 1 g", "Oxycodone 5 mg", "Levodopa/Carbidopa 100/25 mg",
		"Apixaban 5 mg", "Alendronic acid 70 mg", "Colecalciferol 1000 units", "Donepezil 10 mg",
	}

	vitalObservations = []observationDef{
		{"Systolic blood pressure", "mmHg", 90, 180},
		{"Heart rate", "beats/minute", 50, 110},
		{"Oxygen saturation", "%", 90, 100},
		{"Body weight", "kg", 40, 110},
		{"Body temperature", "degC", 35.8, 38.2},
	}

	vaccines = []string{
		"Influenza", "Pneumococcal polysaccharide", "COVID-19", "Shingles (zoster)", "Tetanus-diphtheria",
	}

	recentFallsOptions   = []string{"none", "3to12", "3mo", "inpatient"}
	highRiskMedsOptions  = []string{"none", "one", "two", "more"}
	psychologicalOptions = []string{"none", "mild", "moderate", "severe"}
	cognitiveOptions     = []string{"intact", "mild", "moderate", "severe"}
)

// DataGenerator produces synthetic records from a seeded source.
type DataGenerator struct {
	rng     *rand.Rand
	counter uint64
	now     time.Time
}

// NewDataGenerator returns a generator seeded for reproducibility. If seed is
// 0 a time-based seed is chosen.
func NewDataGenerator(seed int64) *DataGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
		now: time.Now().UTC(),
	}
}

func (g *DataGenerator) nextID(prefix string) string {
	g.counter++
	return fmt.Sprintf("%s-%08x-%04x", prefix, g.rng.Uint32(), g.counter)
}

func (g *DataGenerator) pick(pool []string) string {
	return pool[g.rng.Intn(len(pool))]
}

func (g *DataGenerator) randomDate(minYear, maxYear int) string {
	y := minYear + g.rng.Intn(maxYear-minYear+1)
	m := 1 + g.rng.Intn(12)
	d := 1 + g.rng.Intn(28)
	return fmt.Sprintf("%04d-%02d-%02d", y, m, d)
}

func (g *DataGenerator) uuid() string {
	var b [16]byte
	g.rng.Read(b[:])
	id, _ := uuid.FromBytes(b[:])
	return id.String()
}

// GeneratePatient produces an inpatient aged 65 to 100 with a falls-relevant
// history. Exactly one observation is an Abbreviated Mental Test score.
func (g *DataGenerator) GeneratePatient(cfg SeedConfig) *patient.Patient {
	var first, gender string
	if g.rng.Intn(2) == 0 {
		first, gender = g.pick(firstNamesMale), "male"
	} else {
		first, gender = g.pick(firstNamesFemale), "female"
	}
	year := g.now.Year()

	p := &patient.Patient{
		ID:         g.nextID("pat"),
		HospitalID: fmt.Sprintf("MRN%07d", g.rng.Intn(10000000)),
		FirstName:  first,
		MiddleName: g.pick(middleNames),
		LastName:   g.pick(lastNames),
		Gender:     gender,
		BirthDate:  g.randomDate(year-100, year-65),
	}

	for i, idx := range g.rng.Perm(len(fallsConditions)) {
		if i >= cfg.ConditionsPerPatient {
			break
		}
		c := fallsConditions[idx]
		p.Conditions = append(p.Conditions, patient.Record{
			"code":      c.Code,
			"name":      c.Display,
			"status":    g.pick(conditionStatuses),
			"onsetDate": g.randomDate(year-20, year-1),
		})
	}
	for i, idx := range g.rng.Perm(len(wardMedications)) {
		if i >= cfg.MedicationsPerPatient {
			break
		}
		p.Medications = append(p.Medications, patient.Record{
			"name":   wardMedications[idx],
			"status": "active",
		})
	}

	amts := float64(g.rng.Intn(11))
	interp := "Normal"
	if amts < 8 {
		interp = "Cognitive impairment"
	}
	p.Observations = append(p.Observations, patient.Record{
		"type":           "Abbreviated Mental Test Score",
		"value":          amts,
		"unit":           "score",
		"interpretation": interp,
	})
	for i := 1; i < cfg.ObservationsPerPatient; i++ {
		def := vitalObservations[g.rng.Intn(len(vitalObservations))]
		v := def.Low + g.rng.Float64()*(def.High-def.Low)
		p.Observations = append(p.Observations, patient.Record{
			"type":  def.Type,
			"value": float64(int(v*10)) / 10,
			"unit":  def.Unit,
		})
	}

	for i := 0; i < cfg.ImmunizationsPerPatient; i++ {
		p.Immunizations = append(p.Immunizations, patient.Record{
			"vaccine": g.pick(vaccines),
			"date":    g.randomDate(year-5, year-1),
		})
	}

	p.Normalize(g.now)
	return p
}

// GenerateAnswers produces a complete form. Cognitive answers lean on the
// patient's AMTS so that histories look plausible.
func (g *DataGenerator) GenerateAnswers(info patient.Info) (assessment.Answers, assessment.Answers) {
	cognitive := g.pick(cognitiveOptions)
	if info.AMTSScore != nil {
		switch s := *info.AMTSScore; {
		case s >= 8:
			cognitive = "intact"
		case s >= 6:
			cognitive = "mild"
		case s >= 4:
			cognitive = "moderate"
		default:
			cognitive = "severe"
		}
	}
	part1 := assessment.Answers{
		assessment.QuestionRecentFalls:   g.pick(recentFallsOptions),
		assessment.QuestionHighRiskMeds:  g.pick(highRiskMedsOptions),
		assessment.QuestionPsychological: g.pick(psychologicalOptions),
		assessment.QuestionCognitive:     cognitive,
	}
	part2 := assessment.Answers{}
	for _, q := range assessment.Part2Questions {
		part2[q] = g.rng.Intn(3) == 0
	}
	return part1, part2
}

// GenerateRecord builds an assessment history of n entries, one per week
// ending today, scored the same way live submissions are.
func (g *DataGenerator) GenerateRecord(p *patient.Patient, n int) *assessment.Record {
	info := p.Info()
	rec := &assessment.Record{PatientID: p.ID, PatientInfo: info}
	for i := 0; i < n; i++ {
		part1, part2 := g.GenerateAnswers(info)
		f1, f2 := assessment.Format(part1, part2)
		score := assessment.Score(part1)
		rec.Assessments = append(rec.Assessments, assessment.Entry{
			AssessmentID: g.uuid(),
			Timestamp:    g.now.AddDate(0, 0, -7*(n-1-i)),
			RiskScore:    score,
			RiskLevel:    assessment.Tier(score),
			LabelVersion: assessment.LabelTableVersion,
			Part1:        f1,
			Part2:        f2,
		})
	}
	if n > 0 {
		rec.CreatedAt = rec.Assessments[0].Timestamp
		rec.UpdatedAt = rec.Assessments[n-1].Timestamp
	}
	return rec
}

// Seeder produces a bundle from a SeedConfig.
type Seeder struct {
	config SeedConfig
	gen    *DataGenerator
}

func NewSeeder(config SeedConfig) *Seeder {
	return &Seeder{config: config, gen: NewDataGenerator(config.Seed)}
}

// Generate returns the synthetic bundle. Hospital ids are unique within
// it.
func (s *Seeder) Generate() (*bundle.Bundle, *SeedResult) {
	start := time.Now()
	b := &bundle.Bundle{}
	res := &SeedResult{}
	seen := make(map[string]bool, s.config.PatientCount)

	for len(b.Patients) < s.config.PatientCount {
		p := s.gen.GeneratePatient(s.config)
		if seen[p.HospitalID] {
			continue
		}
		seen[p.HospitalID] = true
		b.Patients = append(b.Patients, p)
		res.Patients++

		if s.config.AssessmentsPerPatient > 0 {
			b.Assessments = append(b.Assessments, s.gen.GenerateRecord(p, s.config.AssessmentsPerPatient))
			res.Assessments += s.config.AssessmentsPerPatient
		}
	}
	res.Duration = time.Since(start)
	return b, res
}
