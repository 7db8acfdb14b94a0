package patient

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/frat/frat/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const patientCols = `id, hospital_id, full_name, COALESCE(first_name, ''), COALESCE(middle_name, ''),
	COALESCE(last_name, ''), COALESCE(gender, ''), COALESCE(birth_date, ''), age,
	conditions, medications, observations, immunizations, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.HospitalID, &p.FullName, &p.FirstName, &p.MiddleName,
		&p.LastName, &p.Gender, &p.BirthDate, &p.Age,
		&p.Conditions, &p.Medications, &p.Observations, &p.Immunizations,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM patient`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count patients: %w", err)
	}

	query := `SELECT ` + patientCols + ` FROM patient ORDER BY full_name, id OFFSET $1`
	args := []interface{}{offset}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan patient: %w", err)
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *repoPG) GetByID(ctx context.Context, id string) (*Patient, error) {
	p, err := scanPatient(r.pool.QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, ErrPatientNotFound
	}
	return p, err
}

func (r *repoPG) GetByHospitalID(ctx context.Context, hospitalID string) (*Patient, error) {
	p, err := scanPatient(r.pool.QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE hospital_id = $1`, hospitalID))
	if db.IsNoRows(err) {
		return nil, ErrPatientNotFound
	}
	return p, err
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	_, err := r.pool.Exec(ctx, `
		INSERT INTO patient (id, hospital_id, full_name, first_name, middle_name, last_name, gender,
			birth_date, age, conditions, medications, observations, immunizations, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		p.ID, p.HospitalID, p.FullName, p.FirstName, p.MiddleName, p.LastName, p.Gender,
		p.BirthDate, p.Age, p.Conditions, p.Medications, p.Observations, p.Immunizations,
		p.CreatedAt, p.UpdatedAt)
	if db.IsUniqueViolation(err, "patient_hospital_id_key") {
		return ErrDuplicateHospitalID
	}
	return err
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	p.UpdatedAt = time.Now().UTC()
	tag, err := r.pool.Exec(ctx, `
		UPDATE patient SET hospital_id=$2, full_name=$3, first_name=$4, middle_name=$5, last_name=$6,
			gender=$7, birth_date=$8, age=$9, conditions=$10, medications=$11, observations=$12,
			immunizations=$13, updated_at=$14
		WHERE id = $1`,
		p.ID, p.HospitalID, p.FullName, p.FirstName, p.MiddleName, p.LastName,
		p.Gender, p.BirthDate, p.Age, p.Conditions, p.Medications, p.Observations,
		p.Immunizations, p.UpdatedAt)
	if db.IsUniqueViolation(err, "patient_hospital_id_key") {
		return ErrDuplicateHospitalID
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPatientNotFound
	}
	return nil
}
