package assessment

import (
	"context"

	"github.com/frat/frat/internal/domain/patient"
	"github.com/frat/frat/internal/platform/apperr"
)

var (
	ErrNoPatientSelected  = apperr.New(apperr.ErrValidation, "No patient selected. Please select a patient first.")
	ErrNoActivePatient    = apperr.New(apperr.ErrValidation, "No patient selected")
	ErrRecordNotFound     = apperr.New(apperr.ErrNotFound, "No assessment result found for this patient")
	ErrNoAssessmentData   = apperr.New(apperr.ErrNotFound, "No assessment data found for this patient")
	ErrAssessmentNotFound = apperr.New(apperr.ErrNotFound, "Assessment not found")
)

// Repository stores one Record per patient.
type Repository interface {
	// Append adds entry to the patient's record and replaces its patient
	// snapshot in a single write, creating the record when absent.
	Append(ctx context.Context, info patient.Info, entry Entry) error
	GetByPatient(ctx context.Context, patientID string) (*Record, error)
	// ListAll returns every record, most recently updated first.
	ListAll(ctx context.Context) ([]*Record, error)
	// Put stores rec as is, replacing any record of the same patient. It
	// is used by bundle import.
	Put(ctx context.Context, rec *Record) error
}
