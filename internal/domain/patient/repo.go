package patient

import (
	"context"

	"github.com/frat/frat/internal/platform/apperr"
)

var (
	ErrPatientNotFound     = apperr.New(apperr.ErrNotFound, "Patient not found")
	ErrDuplicateHospitalID = apperr.New(apperr.ErrConflict, "A patient with this hospitalId already exists")
	ErrHospitalIDRequired  = apperr.New(apperr.ErrValidation, "hospitalId is required")
	ErrFullNameRequired    = apperr.New(apperr.ErrValidation, "fullName is required")
)

// Repository stores patients. Listing returns patients ordered by fullName;
// a zero limit returns all of them.
type Repository interface {
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
	GetByID(ctx context.Context, id string) (*Patient, error)
	GetByHospitalID(ctx context.Context, hospitalID string) (*Patient, error)
	Create(ctx context.Context, p *Patient) error
	Update(ctx context.Context, p *Patient) error
}
