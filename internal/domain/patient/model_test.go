package patient

import (
	"encoding/json"
	"testing"
	"time"
)

func TestRecord_Accessors(t *testing.T) {
	r := Record{"name": "Diabetes", "value": 8.0, "count": 3, "text": "7.5", "flag": true, "none": nil}

	if r.String("name") != "Diabetes" {
		t.Errorf("unexpected name %q", r.String("name"))
	}
	if r.String("value") != "8" {
		t.Errorf("expected whole float to format as 8, got %q", r.String("value"))
	}
	if r.String("flag") != "true" || r.String("none") != "" || r.String("missing") != "" {
		t.Error("unexpected formatting of bool/null/missing")
	}
	if v, ok := r.Number("text"); !ok || v != 7.5 {
		t.Errorf("expected numeric string to parse, got %v %v", v, ok)
	}
	if v, ok := r.Number("count"); !ok || v != 3 {
		t.Errorf("expected int to convert, got %v %v", v, ok)
	}
	if _, ok := r.Number("name"); ok {
		t.Error("expected non-numeric string to fail")
	}
}

func TestNormalize_DerivesFields(t *testing.T) {
	now := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	p := &Patient{HospitalID: " H1 ", FirstName: "Mary", LastName: "Jones", BirthDate: "1950-06-16"}
	p.Normalize(now)

	if p.HospitalID != "H1" {
		t.Errorf("expected trimmed hospitalId, got %q", p.HospitalID)
	}
	if p.FullName != "Mary Jones" {
		t.Errorf("expected full name from parts, got %q", p.FullName)
	}
	if p.Age == nil || *p.Age != 75 {
		t.Errorf("expected age 75 the day before the birthday, got %v", p.Age)
	}
	if p.Conditions == nil || p.Immunizations == nil {
		t.Error("expected empty record lists, not nil")
	}
	if err := p.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestNormalize_KeepsExplicitAge(t *testing.T) {
	age := 80
	p := &Patient{HospitalID: "H1", FullName: "A B", BirthDate: "1950-01-01", Age: &age}
	p.Normalize(time.Now())
	if *p.Age != 80 {
		t.Errorf("expected explicit age to be kept, got %d", *p.Age)
	}
}

func TestValidate(t *testing.T) {
	if err := (&Patient{FullName: "x"}).Validate(); err != ErrHospitalIDRequired {
		t.Errorf("expected ErrHospitalIDRequired, got %v", err)
	}
	if err := (&Patient{HospitalID: "H1"}).Validate(); err != ErrFullNameRequired {
		t.Errorf("expected ErrFullNameRequired, got %v", err)
	}
}

func TestAgeOn(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		birth string
		want  int
		ok    bool
	}{
		{"1940-03-01", 86, true},
		{"1940-03-02", 85, true},
		{"1940-02-29", 86, true},
		{"2030-01-01", 0, false},
		{"not a date", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := AgeOn(tt.birth, now)
		if got != tt.want || ok != tt.ok {
			t.Errorf("AgeOn(%q) = %d,%v want %d,%v", tt.birth, got, ok, tt.want, tt.ok)
		}
	}
}

func samplePatient() *Patient {
	age := 82
	return &Patient{
		ID:         "p1",
		HospitalID: "H-1001",
		FullName:   "Margaret Smith",
		Gender:     "female",
		BirthDate:  "1944-02-10",
		Age:        &age,
		Conditions: []Record{
			{"name": "Hypertension", "status": "active"},
			{"name": "Osteoporosis"},
		},
		Medications: []Record{{"name": "Amlodipine", "dosage": "5mg"}},
		Observations: []Record{
			{"type": "Blood Pressure", "value": "150/90", "interpretation": "High"},
			{"type": "Abbreviated Mental Test Score", "value": 7.0},
			{"type": "abbreviated mental test (repeat)", "value": 9.0},
		},
		Immunizations: []Record{
			{"vaccine": "Influenza", "date": "2025-10-01"},
		},
	}
}

func TestInfo_Snapshot(t *testing.T) {
	info := samplePatient().Info()

	if info.Name != "Margaret Smith" || info.HospitalID != "H-1001" || info.ID != "p1" {
		t.Errorf("unexpected identity fields %+v", info)
	}
	if info.MedicalHistory[0] != "Hypertension (active)" || info.MedicalHistory[1] != "Osteoporosis" {
		t.Errorf("unexpected medical history %v", info.MedicalHistory)
	}
	if info.Medications[0] != "Amlodipine" {
		t.Errorf("unexpected medications %v", info.Medications)
	}
	if info.Observations[0] != "Blood Pressure: 150/90 - High" {
		t.Errorf("unexpected observation %q", info.Observations[0])
	}
	if info.Immunizations[0] != "Influenza on 2025-10-01" {
		t.Errorf("unexpected immunization %q", info.Immunizations[0])
	}
	if info.AMTSScore == nil || *info.AMTSScore != 7 {
		t.Errorf("expected first AMTS observation (7), got %v", info.AMTSScore)
	}
}

func TestInfo_NoAMTSIsNull(t *testing.T) {
	p := samplePatient()
	p.Observations = p.Observations[:1]
	raw, err := json.Marshal(p.Info())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var m map[string]interface{}
	_ = json.Unmarshal(raw, &m)
	if v, ok := m["amts_score"]; !ok || v != nil {
		t.Errorf("expected amts_score null, got %v (present=%v)", v, ok)
	}
}

func TestSummarize(t *testing.T) {
	s := samplePatient().Summarize()
	if s.ID != "p1" || s.FullName != "Margaret Smith" || len(s.Conditions) != 2 {
		t.Errorf("unexpected summary %+v", s)
	}
	if (&Patient{}).Summarize().Conditions == nil {
		t.Error("expected empty conditions, not nil")
	}
}
