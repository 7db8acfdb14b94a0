package assessment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/frat/frat/internal/domain/patient"
	"github.com/frat/frat/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const recordCols = `id, patient_id, patient_info, assessments, created_at, updated_at`

func scanRecord(row pgx.Row) (*Record, error) {
	var r Record
	var info, entries []byte
	if err := row.Scan(&r.ID, &r.PatientID, &info, &entries, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(info, &r.PatientInfo); err != nil {
		return nil, fmt.Errorf("decode patient_info: %w", err)
	}
	if err := json.Unmarshal(entries, &r.Assessments); err != nil {
		return nil, fmt.Errorf("decode assessments: %w", err)
	}
	return &r, nil
}

// Append relies on the unique patient_id constraint: concurrent submissions
// for one patient serialize on the row and both entries survive.
func (r *repoPG) Append(ctx context.Context, info patient.Info, entry Entry) error {
	infoJSON, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encode patient_info: %w", err)
	}
	entryJSON, err := json.Marshal([]Entry{entry})
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO assessment_record (id, patient_id, patient_info, assessments)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (patient_id) DO UPDATE SET
			patient_info = EXCLUDED.patient_info,
			assessments = assessment_record.assessments || EXCLUDED.assessments,
			updated_at = NOW()`,
		uuid.NewString(), info.ID, infoJSON, entryJSON)
	if err != nil {
		return fmt.Errorf("append assessment: %w", err)
	}
	return nil
}

func (r *repoPG) GetByPatient(ctx context.Context, patientID string) (*Record, error) {
	rec, err := scanRecord(r.pool.QueryRow(ctx,
		`SELECT `+recordCols+` FROM assessment_record WHERE patient_id = $1`, patientID))
	if db.IsNoRows(err) {
		return nil, ErrRecordNotFound
	}
	return rec, err
}

func (r *repoPG) ListAll(ctx context.Context) ([]*Record, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+recordCols+` FROM assessment_record ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list assessment records: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assessment record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *repoPG) Put(ctx context.Context, rec *Record) error {
	infoJSON, err := json.Marshal(rec.PatientInfo)
	if err != nil {
		return fmt.Errorf("encode patient_info: %w", err)
	}
	if rec.Assessments == nil {
		rec.Assessments = []Entry{}
	}
	entriesJSON, err := json.Marshal(rec.Assessments)
	if err != nil {
		return fmt.Errorf("encode assessments: %w", err)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO assessment_record (id, patient_id, patient_info, assessments, created_at, updated_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, NOW()), COALESCE($6, NOW()))
		ON CONFLICT (patient_id) DO UPDATE SET
			patient_info = EXCLUDED.patient_info,
			assessments = EXCLUDED.assessments,
			updated_at = EXCLUDED.updated_at`,
		rec.ID, rec.PatientID, infoJSON, entriesJSON, nullTime(rec.CreatedAt), nullTime(rec.UpdatedAt))
	if err != nil {
		return fmt.Errorf("put assessment record: %w", err)
	}
	return nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
