package bundle

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/frat/frat/internal/domain/account"
	"github.com/frat/frat/internal/domain/assessment"
	"github.com/frat/frat/internal/domain/patient"
)

// PatientImporter creates or replaces a patient by hospitalId and sets its
// store id.
type PatientImporter interface {
	Import(ctx context.Context, p *patient.Patient) (bool, error)
}

// RecordImporter stores an assessment record as is.
type RecordImporter interface {
	Import(ctx context.Context, rec *assessment.Record) error
}

// UserImporter stores a user unless one with the same login exists.
type UserImporter interface {
	Import(ctx context.Context, u *account.User) (bool, error)
}

// Report counts what an import did.
type Report struct {
	PatientsCreated int `json:"patients_created"`
	PatientsUpdated int `json:"patients_updated"`
	Records         int `json:"records"`
	RecordsSkipped  int `json:"records_skipped"`
	UsersCreated    int `json:"users_created"`
	UsersSkipped    int `json:"users_skipped"`
}

// Importer loads bundles. Users is optional.
type Importer struct {
	Patients    PatientImporter
	Assessments RecordImporter
	Users       UserImporter
	Logger      zerolog.Logger
}

// Run imports b. Patients go first so that assessment records can be
// re-pointed from bundle ids to store ids; records whose patient is not in
// the bundle are skipped. Running the same bundle twice leaves the stores
// unchanged.
func (im *Importer) Run(ctx context.Context, b *Bundle) (Report, error) {
	var rep Report
	ids := make(map[string]string, len(b.Patients))

	for _, p := range b.Patients {
		bundleID := p.ID
		created, err := im.Patients.Import(ctx, p)
		if err != nil {
			return rep, fmt.Errorf("import patient %s: %w", p.HospitalID, err)
		}
		if created {
			rep.PatientsCreated++
		} else {
			rep.PatientsUpdated++
		}
		if bundleID != "" {
			ids[bundleID] = p.ID
		}
		im.Logger.Debug().Str("hospital_id", p.HospitalID).Str("id", p.ID).Bool("created", created).Msg("patient imported")
	}

	for _, rec := range b.Assessments {
		newID, ok := ids[rec.PatientID]
		if !ok {
			im.Logger.Warn().Str("patient_id", rec.PatientID).Msg("skipping assessments for patient not in bundle")
			rep.RecordsSkipped++
			continue
		}
		rec.ID = ""
		rec.PatientID = newID
		rec.PatientInfo.ID = newID
		if err := im.Assessments.Import(ctx, rec); err != nil {
			return rep, fmt.Errorf("import assessments of patient %s: %w", newID, err)
		}
		rep.Records++
	}

	if im.Users != nil {
		for _, u := range b.Users {
			created, err := im.Users.Import(ctx, u)
			if err != nil {
				return rep, fmt.Errorf("import user %s: %w", u.Username, err)
			}
			if created {
				rep.UsersCreated++
			} else {
				rep.UsersSkipped++
			}
		}
	}

	im.Logger.Info().
		Int("patients_created", rep.PatientsCreated).
		Int("patients_updated", rep.PatientsUpdated).
		Int("records", rep.Records).
		Int("records_skipped", rep.RecordsSkipped).
		Int("users_created", rep.UsersCreated).
		Msg("bundle imported")
	return rep, nil
}
