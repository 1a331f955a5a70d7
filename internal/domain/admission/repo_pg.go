package admission

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hms/hms/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const admissionCols = `a.id, a.admission_code, a.patient_id, a.bed_id,
	a.admitting_doctor_id, a.attending_doctor_id, a.admission_date, a.admission_type,
	a.admitting_diagnosis, a.chief_complaints, a.treatment_plan, a.diet_type,
	a.special_instructions, a.expected_discharge_date, a.status,
	a.discharge_type, a.discharge_summary, a.actual_discharge_date,
	a.created_by, a.created_at, a.updated_at`

const hydratedCols = admissionCols + `,
	p.name, p.patient_code,
	COALESCE(b.bed_number, ''), COALESCE(w.name, ''), COALESCE(d.name, '')`

const hydratedFrom = ` FROM ipd_admissions a
	JOIN patients p ON p.id = a.patient_id
	LEFT JOIN beds b ON b.id = a.bed_id
	LEFT JOIN wards w ON w.id = b.ward_id
	LEFT JOIN doctors d ON d.id = a.attending_doctor_id`

func (r *repoPG) scanAdmission(row pgx.Row) (*Admission, error) {
	var a Admission
	err := row.Scan(&a.ID, &a.AdmissionCode, &a.PatientID, &a.BedID,
		&a.AdmittingDoctorID, &a.AttendingDoctorID, &a.AdmissionDate, &a.AdmissionType,
		&a.AdmittingDiagnosis, &a.ChiefComplaints, &a.TreatmentPlan, &a.DietType,
		&a.SpecialInstructions, &a.ExpectedDischargeDate, &a.Status,
		&a.DischargeType, &a.DischargeSummary, &a.ActualDischargeDate,
		&a.CreatedBy, &a.CreatedAt, &a.UpdatedAt,
		&a.PatientName, &a.PatientCode, &a.BedNumber, &a.WardName, &a.DoctorName)
	if err != nil {
		return nil, db.Translate(err)
	}
	return &a, nil
}

func (r *repoPG) Create(ctx context.Context, a *Admission) error {
	a.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO ipd_admissions (id, admission_code, patient_id, bed_id,
			admitting_doctor_id, attending_doctor_id, admission_date, admission_type,
			admitting_diagnosis, chief_complaints, treatment_plan, diet_type,
			special_instructions, expected_discharge_date, status, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		a.ID, a.AdmissionCode, a.PatientID, a.BedID,
		a.AdmittingDoctorID, a.AttendingDoctorID, a.AdmissionDate, a.AdmissionType,
		a.AdmittingDiagnosis, a.ChiefComplaints, a.TreatmentPlan, a.DietType,
		a.SpecialInstructions, a.ExpectedDischargeDate, a.Status, a.CreatedBy)
	return db.Translate(err)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Admission, error) {
	return r.scanAdmission(r.conn(ctx).QueryRow(ctx,
		`SELECT `+hydratedCols+hydratedFrom+` WHERE a.id = $1`, id))
}

func (r *repoPG) LockByID(ctx context.Context, id uuid.UUID) (*Admission, error) {
	// Lock the bare row; the hydrating joins would spread the lock.
	var a Admission
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, admission_code, patient_id, bed_id, status
		FROM ipd_admissions WHERE id = $1 FOR UPDATE`, id).
		Scan(&a.ID, &a.AdmissionCode, &a.PatientID, &a.BedID, &a.Status)
	if err != nil {
		return nil, db.Translate(err)
	}
	return &a, nil
}

func (r *repoPG) UpdateBed(ctx context.Context, id uuid.UUID, bedID *uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE ipd_admissions SET bed_id = $2, updated_at = NOW() WHERE id = $1`, id, bedID)
	return db.Translate(err)
}

// Discharge keeps bed_id so discharged records still hydrate their bed and
// ward display fields; status alone marks the binding inactive.
func (r *repoPG) Discharge(ctx context.Context, a *Admission) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE ipd_admissions SET status = $2, discharge_type = $3,
			discharge_summary = $4, actual_discharge_date = $5, updated_at = NOW()
		WHERE id = $1`,
		a.ID, a.Status, a.DischargeType, a.DischargeSummary, a.ActualDischargeDate)
	return db.Translate(err)
}

func (r *repoPG) List(ctx context.Context, status string, patientID *uuid.UUID, limit, offset int) ([]*Admission, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	if status != "" {
		args = append(args, status)
		where += fmt.Sprintf(` AND a.status = $%d`, len(args))
	}
	if patientID != nil {
		args = append(args, *patientID)
		where += fmt.Sprintf(` AND a.patient_id = $%d`, len(args))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM ipd_admissions a`+where, args...).Scan(&total); err != nil {
		return nil, 0, db.Translate(err)
	}

	query := fmt.Sprintf(`SELECT `+hydratedCols+hydratedFrom+where+
		` ORDER BY a.admission_date DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, db.Translate(err)
	}
	defer rows.Close()

	var items []*Admission
	for rows.Next() {
		a, err := r.scanAdmission(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, nil
}

func (r *repoPG) ListActive(ctx context.Context) ([]*Admission, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+hydratedCols+hydratedFrom+`
		WHERE a.status = 'Active' ORDER BY a.admission_date DESC`)
	if err != nil {
		return nil, db.Translate(err)
	}
	defer rows.Close()

	var items []*Admission
	for rows.Next() {
		a, err := r.scanAdmission(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, nil
}

func (r *repoPG) NextCode(ctx context.Context) (string, error) {
	var max int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COALESCE(MAX(CAST(SUBSTRING(admission_code FROM 5) AS INTEGER)), 0)
		FROM ipd_admissions WHERE admission_code LIKE 'ADM-%'`).Scan(&max)
	if err != nil {
		return "", db.Translate(err)
	}
	return fmt.Sprintf("ADM-%04d", max+1), nil
}
